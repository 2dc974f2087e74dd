package registry

import (
	"context"
	"net/url"
	"strings"
)

// PubDevRepo looks up a Dart package's GitHub repository via the pub.dev
// API (repository first, then homepage). pub.dev does not expose license
// metadata directly, so the caller chains this into GitHubLicense.
func (c *Client) PubDevRepo(ctx context.Context, name string) (string, string, bool) {
	endpoint := c.PubDevBase + "/" + url.PathEscape(name)

	var data struct {
		Latest struct {
			Pubspec struct {
				Repository string `json:"repository"`
				Homepage   string `json:"homepage"`
			} `json:"pubspec"`
		} `json:"latest"`
	}
	if err := c.getJSON(ctx, endpoint, nil, &data); err != nil {
		return "", "", false
	}

	for _, repoURL := range []string{data.Latest.Pubspec.Repository, data.Latest.Pubspec.Homepage} {
		if repoURL != "" && strings.Contains(repoURL, "github.com/") {
			if owner, repo, ok := ParseGitHubURL(repoURL); ok {
				return owner, repo, true
			}
		}
	}
	return "", "", false
}
