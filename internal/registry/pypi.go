package registry

import (
	"context"
	"net/url"
	"strings"
)

const osiClassifierPrefix = "License :: OSI Approved :: "

// PyPILicense queries PyPI for a package's license, preferring trove
// classifiers (more structured) over the free-form license field.
func (c *Client) PyPILicense(ctx context.Context, name, version string) (string, bool) {
	endpoint := c.PyPIBase + "/" + url.PathEscape(name)
	if version != "" {
		endpoint += "/" + url.PathEscape(version)
	}
	endpoint += "/json"

	var data struct {
		Info struct {
			Classifiers []string `json:"classifiers"`
			License     string   `json:"license"`
		} `json:"info"`
	}
	if err := c.getJSON(ctx, endpoint, nil, &data); err != nil {
		return "", false
	}

	for _, classifier := range data.Info.Classifiers {
		if strings.HasPrefix(classifier, osiClassifierPrefix) {
			parts := strings.Split(classifier, " :: ")
			return parts[len(parts)-1], true
		}
	}

	lic := data.Info.License
	if lic != "" && !strings.EqualFold(lic, "UNKNOWN") {
		return lic, true
	}
	return "", false
}
