package scan

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licscan/licscan/internal/ecosystem"
	"github.com/licscan/licscan/internal/license"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func npmFixture(t *testing.T) string {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "package-lock.json"), `{}`)
	write(t, filepath.Join(dir, "package.json"),
		`{"dependencies": {"mit-pkg": "^1.0.0", "gpl-pkg": "^2.0.0"}}`)
	write(t, filepath.Join(dir, "node_modules", "mit-pkg", "package.json"),
		`{"version": "1.0.0", "license": "MIT"}`)
	write(t, filepath.Join(dir, "node_modules", "gpl-pkg", "package.json"),
		`{"version": "2.0.0", "license": "GPL-3.0"}`)
	write(t, filepath.Join(dir, "node_modules", "mpl-pkg", "package.json"),
		`{"version": "3.0.0", "license": "MPL-2.0"}`)
	return dir
}

func TestScanNpmProject(t *testing.T) {
	dir := npmFixture(t)
	scanner := NewScanner(license.DefaultConfig(), nil)

	result, err := scanner.DetectAndScan(context.Background(), dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, ecosystem.PMNpm, result.PackageManager)
	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Permissive)
	assert.Equal(t, 1, result.Summary.WeakCopyleft)
	assert.Equal(t, 1, result.Summary.Restrictive)
	assert.True(t, result.HasViolations)
	require.Len(t, result.Violations.High, 1)
	assert.Equal(t, "gpl-pkg", result.Violations.High[0].Name)
	require.Len(t, result.Violations.Medium, 1)
	assert.Nil(t, result.AllPackages)

	result, err = scanner.DetectAndScan(context.Background(), dir, Options{Verbose: true})
	require.NoError(t, err)
	require.NotNil(t, result.AllPackages)
	assert.Equal(t, 3, result.AllPackages.Total())
}

func TestScanResultJSONShape(t *testing.T) {
	dir := npmFixture(t)
	scanner := NewScanner(license.DefaultConfig(), nil)

	result, err := scanner.DetectAndScan(context.Background(), dir, Options{})
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"project", "package_manager", "is_monorepo", "workspace_count",
		"prod_only", "elapsed_seconds", "summary", "has_violations", "violations", "custom", "unknown"} {
		assert.Contains(t, decoded, key)
	}
	assert.NotContains(t, decoded, "all_packages")

	// Empty buckets render as arrays, not null.
	assert.Equal(t, []any{}, decoded["custom"])
}

func TestDetectAndScanNoLockfile(t *testing.T) {
	scanner := NewScanner(license.DefaultConfig(), nil)
	_, err := scanner.DetectAndScan(context.Background(), t.TempDir(), Options{})
	require.Error(t, err)

	var scanErr *Error
	require.ErrorAs(t, err, &scanErr)
	assert.Contains(t, scanErr.Message, "No lockfile found")
}

func TestScanUnsupportedPM(t *testing.T) {
	scanner := NewScanner(license.DefaultConfig(), nil)
	_, err := scanner.Scan(context.Background(), t.TempDir(), "composer", Options{})
	require.Error(t, err)
}

func TestNormalizeRepoSlug(t *testing.T) {
	assert.Equal(t, "org/repo", normalizeRepoSlug("org/repo"))
	assert.Equal(t, "org/repo", normalizeRepoSlug("https://github.com/org/repo"))
	assert.Equal(t, "org/repo", normalizeRepoSlug("github.com/org/repo/"))
	assert.Equal(t, "gitlab.com/org/repo", normalizeRepoSlug("gitlab.com/org/repo"))
}
