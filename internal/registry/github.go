package registry

import (
	"context"
	"net/url"
	"strings"
)

// ParseGitHubURL extracts (owner, repo) from a GitHub URL in any of the
// common forms (https, ssh-ish, trailing .git).
func ParseGitHubURL(raw string) (string, string, bool) {
	raw = strings.TrimRight(raw, "/")
	raw = strings.TrimSuffix(raw, ".git")
	idx := strings.Index(raw, "github.com/")
	if idx < 0 {
		return "", "", false
	}
	parts := strings.Split(raw[idx+len("github.com/"):], "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// GitHubLicense looks up a repository's license via the GitHub API,
// returning the SPDX identifier when one is asserted. Uses a bearer token
// when one is available for higher rate limits.
func (c *Client) GitHubLicense(ctx context.Context, owner, repo string) (string, bool) {
	endpoint := c.GitHubBase + "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/license"

	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if tok := c.githubAuth(ctx); tok != "" {
		headers["Authorization"] = "Bearer " + tok
	}

	var data struct {
		License struct {
			SPDXID string `json:"spdx_id"`
		} `json:"license"`
	}
	if err := c.getJSON(ctx, endpoint, headers, &data); err != nil {
		return "", false
	}

	spdx := data.License.SPDXID
	if spdx == "" || spdx == "NOASSERTION" {
		return "", false
	}
	return spdx, true
}
