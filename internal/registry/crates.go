package registry

import (
	"context"
	"net/url"
)

// CratesLicense queries the crates.io API for a crate version's license field.
func (c *Client) CratesLicense(ctx context.Context, name, version string) (string, bool) {
	endpoint := c.CratesBase + "/" + url.PathEscape(name) + "/" + url.PathEscape(version)

	var data struct {
		Version struct {
			License string `json:"license"`
		} `json:"version"`
	}
	if err := c.getJSON(ctx, endpoint, nil, &data); err != nil {
		return "", false
	}

	lic := data.Version.License
	if lic == "" || lic == "UNKNOWN" || lic == "Unknown" {
		return "", false
	}
	return lic, true
}
