package registry

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strings"
)

var nugetLicenseURLs = map[string]string{
	"apache.org/licenses/LICENSE-2.0": "Apache-2.0",
	"opensource.org/licenses/MIT":     "MIT",
	"opensource.org/licenses/BSD":     "BSD-3-Clause",
	"mozilla.org/MPL/2.0":             "MPL-2.0",
	"gnu.org/licenses/lgpl":           "LGPL-2.1",
	"gnu.org/licenses/gpl":            "GPL-3.0",
}

// NuGetLicense looks up a package's license via the NuGet v3 registration
// endpoint. Prefers the SPDX licenseExpression; falls back to mapping
// well-known license URLs.
func (c *Client) NuGetLicense(ctx context.Context, name, version string) (string, bool) {
	endpoint := c.NuGetBase + "/" + url.PathEscape(strings.ToLower(name)) + "/" + url.PathEscape(version) + ".json"

	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return "", false
	}
	body = gunzipIfNeeded(body)

	var data struct {
		CatalogEntry json.RawMessage `json:"catalogEntry"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", false
	}

	catalog := c.resolveCatalogEntry(ctx, data.CatalogEntry)
	if catalog == nil {
		return "", false
	}

	if catalog.LicenseExpression != "" {
		return catalog.LicenseExpression, true
	}
	for pattern, spdx := range nugetLicenseURLs {
		if strings.Contains(catalog.LicenseURL, pattern) {
			return spdx, true
		}
	}
	return "", false
}

type nugetCatalogEntry struct {
	LicenseExpression string `json:"licenseExpression"`
	LicenseURL        string `json:"licenseUrl"`
}

// resolveCatalogEntry handles catalogEntry being either inline or a URL
// string. URL entries are only followed when they point at NuGet itself.
func (c *Client) resolveCatalogEntry(ctx context.Context, raw json.RawMessage) *nugetCatalogEntry {
	if len(raw) == 0 {
		return nil
	}

	var entry nugetCatalogEntry
	if err := json.Unmarshal(raw, &entry); err == nil {
		return &entry
	}

	var ref string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	switch parsed.Hostname() {
	case "api.nuget.org", "nuget.org", "www.nuget.org":
	default:
		return nil
	}

	body, err := c.get(ctx, ref, nil)
	if err != nil {
		return nil
	}
	body = gunzipIfNeeded(body)
	if err := json.Unmarshal(body, &entry); err != nil {
		return nil
	}
	return &entry
}

// gunzipIfNeeded decompresses bodies served as raw gzip content (the
// registration5-gz endpoints) detected by magic bytes.
func gunzipIfNeeded(body []byte) []byte {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	defer func() { _ = zr.Close() }()
	out, err := io.ReadAll(zr)
	if err != nil {
		return body
	}
	return out
}
