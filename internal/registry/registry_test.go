package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srv *httptest.Server) *Client {
	c := NewClient(5 * time.Second)
	c.NPMBase = srv.URL
	c.PyPIBase = srv.URL
	c.CratesBase = srv.URL
	c.NuGetBase = srv.URL
	c.MavenBase = srv.URL
	c.GoogleMavenBase = srv.URL
	c.GitHubBase = srv.URL
	c.PubDevBase = srv.URL
	c.tokenResolved = true // keep tests offline
	return c
}

func TestNPMLicense(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/left-pad/1.3.0":
			_, _ = w.Write([]byte(`{"license": "MIT"}`))
		case "/legacy-pkg/0.1.0":
			_, _ = w.Write([]byte(`{"license": {"type": "ISC"}}`))
		case "/@scope%2Fpkg/2.0.0":
			_, _ = w.Write([]byte(`{"license": "Apache-2.0"}`))
		case "/unlicensed-pkg/1.0.0":
			_, _ = w.Write([]byte(`{"license": "UNLICENSED"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := testClient(srv)
	ctx := context.Background()

	lic, ok := c.NPMLicense(ctx, "left-pad", "1.3.0")
	require.True(t, ok)
	assert.Equal(t, "MIT", lic)

	lic, ok = c.NPMLicense(ctx, "legacy-pkg", "0.1.0")
	require.True(t, ok)
	assert.Equal(t, "ISC", lic)

	lic, ok = c.NPMLicense(ctx, "@scope/pkg", "2.0.0")
	require.True(t, ok, "scoped package path must be encoded with @ preserved")
	assert.Equal(t, "Apache-2.0", lic)

	_, ok = c.NPMLicense(ctx, "unlicensed-pkg", "1.0.0")
	assert.False(t, ok, "UNLICENSED is not a usable license")

	_, ok = c.NPMLicense(ctx, "missing-pkg", "1.0.0")
	assert.False(t, ok)
}

func TestPyPILicensePrefersClassifiers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/requests/2.31.0/json":
			_, _ = w.Write([]byte(`{"info": {"classifiers": ["Development Status :: 5 - Production/Stable", "License :: OSI Approved :: Apache Software License"], "license": "Apache 2.0"}}`))
		case "/fielder/1.0/json":
			_, _ = w.Write([]byte(`{"info": {"classifiers": [], "license": "BSD"}}`))
		case "/mystery/0.1/json":
			_, _ = w.Write([]byte(`{"info": {"classifiers": [], "license": "UNKNOWN"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := testClient(srv)
	ctx := context.Background()

	lic, ok := c.PyPILicense(ctx, "requests", "2.31.0")
	require.True(t, ok)
	assert.Equal(t, "Apache Software License", lic)

	lic, ok = c.PyPILicense(ctx, "fielder", "1.0")
	require.True(t, ok)
	assert.Equal(t, "BSD", lic)

	_, ok = c.PyPILicense(ctx, "mystery", "0.1")
	assert.False(t, ok)
}

func TestCratesLicense(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/serde/1.0.200" {
			_, _ = w.Write([]byte(`{"version": {"license": "MIT OR Apache-2.0"}}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	c := testClient(srv)

	lic, ok := c.CratesLicense(context.Background(), "serde", "1.0.200")
	require.True(t, ok)
	assert.Equal(t, "MIT OR Apache-2.0", lic)
}

func TestNuGetLicense(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/newtonsoft.json/13.0.3.json":
			_, _ = w.Write([]byte(`{"catalogEntry": {"licenseExpression": "MIT"}}`))
		case "/urlonly/1.0.0.json":
			_, _ = w.Write([]byte(`{"catalogEntry": {"licenseExpression": "", "licenseUrl": "https://www.apache.org/licenses/LICENSE-2.0"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := testClient(srv)
	ctx := context.Background()

	lic, ok := c.NuGetLicense(ctx, "Newtonsoft.Json", "13.0.3")
	require.True(t, ok, "package name must be lowercased for the registration endpoint")
	assert.Equal(t, "MIT", lic)

	lic, ok = c.NuGetLicense(ctx, "urlonly", "1.0.0")
	require.True(t, ok)
	assert.Equal(t, "Apache-2.0", lic)
}

func TestNuGetCatalogEntryURLRestriction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"catalogEntry": "https://evil.example.com/catalog.json"}`))
	}))
	defer srv.Close()
	c := testClient(srv)

	_, ok := c.NuGetLicense(context.Background(), "pkg", "1.0.0")
	assert.False(t, ok, "catalogEntry URLs outside nuget.org must not be followed")
}

func TestMavenLicense(t *testing.T) {
	pom := `<?xml version="1.0"?>
<project>
  <licenses>
    <license>
      <name>The Apache Software License, Version 2.0</name>
    </license>
  </licenses>
</project>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/com/squareup/okhttp3/okhttp/4.12.0/okhttp-4.12.0.pom" {
			_, _ = w.Write([]byte(pom))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	c := testClient(srv)

	lic, ok := c.MavenLicense(context.Background(), "com.squareup.okhttp3", "okhttp", "4.12.0")
	require.True(t, ok)
	assert.Equal(t, "Apache-2.0", lic)
}

func TestMavenLicenseUnrecognizedNameReturnedRaw(t *testing.T) {
	pom := `<project><licenses><license><name>Custom Corp License</name></license></licenses></project>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pom))
	}))
	defer srv.Close()
	c := testClient(srv)

	lic, ok := c.MavenLicense(context.Background(), "org.example", "widget", "1.0")
	require.True(t, ok)
	assert.Equal(t, "Custom Corp License", lic)
}

func TestGitHubLicense(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/golang/go/license":
			_, _ = w.Write([]byte(`{"license": {"spdx_id": "BSD-3-Clause"}}`))
		case "/repos/acme/blob/license":
			_, _ = w.Write([]byte(`{"license": {"spdx_id": "NOASSERTION"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := testClient(srv)
	ctx := context.Background()

	lic, ok := c.GitHubLicense(ctx, "golang", "go")
	require.True(t, ok)
	assert.Equal(t, "BSD-3-Clause", lic)

	_, ok = c.GitHubLicense(ctx, "acme", "blob")
	assert.False(t, ok, "NOASSERTION must not count as a license")
}

func TestPubDevRepo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/http" {
			_, _ = w.Write([]byte(`{"latest": {"pubspec": {"repository": "https://github.com/dart-lang/http"}}}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	c := testClient(srv)

	owner, repo, ok := c.PubDevRepo(context.Background(), "http")
	require.True(t, ok)
	assert.Equal(t, "dart-lang", owner)
	assert.Equal(t, "http", repo)
}

func TestParseGitHubURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		owner string
		repo  string
		ok    bool
	}{
		{"https", "https://github.com/foo/bar", "foo", "bar", true},
		{"trailing git", "https://github.com/foo/bar.git", "foo", "bar", true},
		{"trailing slash", "https://github.com/foo/bar/", "foo", "bar", true},
		{"git protocol", "git@github.com/foo/bar.git", "foo", "bar", true},
		{"not github", "https://gitlab.com/foo/bar", "", "", false},
		{"missing repo", "https://github.com/foo", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, ok := ParseGitHubURL(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		})
	}
}
