package registry

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

// NPMLicense queries the npm registry for a package's license field.
// Scoped names are encoded with the @ preserved (@scope/pkg -> @scope%2Fpkg).
func (c *Client) NPMLicense(ctx context.Context, name, version string) (string, bool) {
	encoded := strings.ReplaceAll(url.PathEscape(name), "%40", "@")
	spec := encoded
	if version != "" {
		spec += "/" + url.PathEscape(version)
	}

	var data struct {
		License json.RawMessage `json:"license"`
	}
	if err := c.getJSON(ctx, c.NPMBase+"/"+spec, nil, &data); err != nil {
		return "", false
	}

	lic := decodeNPMLicense(data.License)
	if lic == "" || lic == "UNLICENSED" || lic == "UNKNOWN" || lic == "Unknown" {
		return "", false
	}
	return lic, true
}

// decodeNPMLicense handles both the modern string form and the legacy
// {"type": "..."} object form of the npm license field.
func decodeNPMLicense(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Type
	}
	return ""
}
