// Package registry implements best-effort license lookups against the
// public package registries (npm, PyPI, crates.io, NuGet, Maven Central,
// pub.dev) and the GitHub repository-license API.
//
// Every lookup returns (value, ok): network errors, malformed responses,
// and 404s all collapse to not-ok so that a single failed package never
// aborts a scan.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/licscan/licscan/internal/exec"
	"github.com/licscan/licscan/pkg/buildinfo"
)

// Default endpoint bases. Overridable on Client for tests.
const (
	npmBase        = "https://registry.npmjs.org"
	pypiBase       = "https://pypi.org/pypi"
	cratesBase     = "https://crates.io/api/v1/crates"
	nugetBase      = "https://api.nuget.org/v3/registration5-gz-semver2"
	mavenBase      = "https://repo1.maven.org/maven2"
	googleMavenBase = "https://dl.google.com/dl/android/maven2"
	githubAPIBase  = "https://api.github.com"
	pubDevBase     = "https://pub.dev/api/packages"
)

// Client performs registry lookups with short per-request timeouts.
type Client struct {
	httpClient *http.Client

	NPMBase         string
	PyPIBase        string
	CratesBase      string
	NuGetBase       string
	MavenBase       string
	GoogleMavenBase string
	GitHubBase      string
	PubDevBase      string

	githubToken     string
	tokenResolved   bool
}

// NewClient returns a Client with the given per-request timeout.
// Registry lookups are cheap single-package requests; 5-10s is plenty.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		NPMBase:         npmBase,
		PyPIBase:        pypiBase,
		CratesBase:      cratesBase,
		NuGetBase:       nugetBase,
		MavenBase:       mavenBase,
		GoogleMavenBase: googleMavenBase,
		GitHubBase:      githubAPIBase,
		PubDevBase:      pubDevBase,
	}
}

// getJSON fetches a URL and decodes the JSON response into v.
func (c *Client) getJSON(ctx context.Context, url string, headers map[string]string, v interface{}) error {
	body, err := c.get(ctx, url, headers)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// get fetches a URL, returning the body for 2xx responses only.
func (c *Client) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// githubAuth resolves a bearer token once per client: environment first,
// then the gh CLI. Absence of a token is not an error; requests simply
// run unauthenticated at lower rate limits.
func (c *Client) githubAuth(ctx context.Context) string {
	if c.tokenResolved {
		return c.githubToken
	}
	c.tokenResolved = true

	for _, env := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if tok := strings.TrimSpace(os.Getenv(env)); tok != "" {
			c.githubToken = tok
			return tok
		}
	}

	if res, err := exec.Run(ctx, "", 5*time.Second, "gh", "auth", "token"); err == nil {
		if tok := strings.TrimSpace(res.Stdout); tok != "" {
			c.githubToken = tok
		}
	}
	return c.githubToken
}
