package license

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licscan/licscan/internal/ecosystem"
)

type fakeResolver struct {
	npm    map[string]string
	pypi   map[string]string
	crates map[string]string
	calls  int
}

func (f *fakeResolver) NPMLicense(_ context.Context, name, _ string) (string, bool) {
	f.calls++
	lic, ok := f.npm[name]
	return lic, ok
}

func (f *fakeResolver) PyPILicense(_ context.Context, name, _ string) (string, bool) {
	f.calls++
	lic, ok := f.pypi[name]
	return lic, ok
}

func (f *fakeResolver) CratesLicense(_ context.Context, name, _ string) (string, bool) {
	f.calls++
	lic, ok := f.crates[name]
	return lic, ok
}

func TestClassifyBuckets(t *testing.T) {
	cfg := DefaultConfig()
	packages := []ecosystem.Package{
		{Name: "a", Version: "1.0.0", License: "MIT"},
		{Name: "b", Version: "2.0.0", License: "MPL-2.0"},
		{Name: "c", Version: "3.0.0", License: "GPL-3.0"},
		{Name: "d", Version: "4.0.0", License: "Proprietary EULA"},
	}

	result := cfg.Classify(context.Background(), packages, ecosystem.RegistryNpm, nil)

	assert.Len(t, result.Permissive, 1)
	assert.Len(t, result.WeakCopyleft, 1)
	assert.Len(t, result.Restrictive, 1)
	assert.Len(t, result.Unknown, 1)
	assert.Equal(t, 4, result.Total())

	assert.Equal(t, SeverityLow, result.Permissive[0].Severity)
	assert.Equal(t, SeverityMedium, result.WeakCopyleft[0].Severity)
	assert.Equal(t, SeverityHigh, result.Restrictive[0].Severity)
	assert.Equal(t, SeverityReview, result.Unknown[0].Severity)
}

func TestClassifyOverrideWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LicenseOverrides = map[string]Override{
		"leftpad": {License: "MIT", Tier: TierPermissive, Note: "relicensed upstream"},
	}

	packages := []ecosystem.Package{
		{Name: "leftpad", Version: "1.3.0", License: "GPL-3.0"},
	}
	result := cfg.Classify(context.Background(), packages, ecosystem.RegistryNpm, nil)

	require.Len(t, result.Permissive, 1)
	assert.Empty(t, result.Restrictive)
	entry := result.Permissive[0]
	assert.Equal(t, "MIT", entry.License)
	assert.Equal(t, "GPL-3.0", entry.RawLicense)
	assert.Equal(t, "relicensed upstream", entry.Note)
}

func TestClassifySentinels(t *testing.T) {
	cfg := DefaultConfig()
	packages := []ecosystem.Package{
		{Name: "a", Version: "1.0.0", License: "SEE LICENSE IN LICENSE.md"},
		{Name: "b", Version: "1.0.0", License: "UNLICENSED"},
		{Name: "c", Version: "1.0.0", License: ""},
	}
	result := cfg.Classify(context.Background(), packages, ecosystem.RegistryNpm, nil)

	require.Len(t, result.Unknown, 3)
	assert.Equal(t, ecosystem.UnknownLicense, result.Unknown[2].License)
	assert.Equal(t, ecosystem.UnknownLicense, result.Unknown[2].RawLicense)
}

func TestClassifyDevSeverityReduction(t *testing.T) {
	cfg := DefaultConfig()
	packages := []ecosystem.Package{
		{Name: "gpl-tool", Version: "1.0.0", License: "GPL-3.0", IsDev: true},
		{Name: "mpl-tool", Version: "1.0.0", License: "MPL-2.0", IsDev: true},
		{Name: "mit-tool", Version: "1.0.0", License: "MIT", IsDev: true},
	}
	result := cfg.Classify(context.Background(), packages, ecosystem.RegistryNpm, nil)

	// The tier does not move, only the severity softens.
	require.Len(t, result.Restrictive, 1)
	assert.Equal(t, SeverityMedium, result.Restrictive[0].Severity)
	require.Len(t, result.WeakCopyleft, 1)
	assert.Equal(t, SeverityLow, result.WeakCopyleft[0].Severity)
	require.Len(t, result.Permissive, 1)
	assert.Equal(t, SeverityLow, result.Permissive[0].Severity)
}

func TestClassifySecondPassResolution(t *testing.T) {
	cfg := DefaultConfig()
	resolver := &fakeResolver{npm: map[string]string{"mystery": "MIT"}}

	packages := []ecosystem.Package{
		{Name: "mystery", Version: "1.0.0", License: ""},
		{Name: "stays-unknown", Version: "1.0.0", License: ""},
	}
	result := cfg.Classify(context.Background(), packages, ecosystem.RegistryNpm, resolver)

	require.Len(t, result.Permissive, 1)
	entry := result.Permissive[0]
	assert.Equal(t, "MIT", entry.License)
	assert.Equal(t, "UNKNOWN -> npm:MIT", entry.RawLicense)
	assert.Equal(t, "npm_registry", entry.ResolvedVia)

	require.Len(t, result.Unknown, 1)
	assert.Equal(t, "stays-unknown", result.Unknown[0].Name)
	assert.Empty(t, result.Unknown[0].ResolvedVia)
}

func TestClassifySecondPassPerEcosystem(t *testing.T) {
	cfg := DefaultConfig()
	resolver := &fakeResolver{
		crates: map[string]string{"serde-ish": "Apache-2.0"},
		pypi:   map[string]string{"requests-ish": "Apache-2.0"},
	}

	result := cfg.Classify(context.Background(),
		[]ecosystem.Package{{Name: "serde-ish", Version: "1.0.0"}},
		ecosystem.RegistryCargo, resolver)
	require.Len(t, result.Permissive, 1)
	assert.Equal(t, "crates.io_registry", result.Permissive[0].ResolvedVia)

	result = cfg.Classify(context.Background(),
		[]ecosystem.Package{{Name: "requests-ish", Version: "1.0.0"}},
		ecosystem.RegistryPyPI, resolver)
	require.Len(t, result.Permissive, 1)
	assert.Equal(t, "pypi_registry", result.Permissive[0].ResolvedVia)
}

func TestClassifySecondPassSkippedEcosystems(t *testing.T) {
	cfg := DefaultConfig()
	resolver := &fakeResolver{npm: map[string]string{"anything": "MIT"}}

	for _, tag := range []string{ecosystem.RegistryGitHub, ecosystem.RegistryMaven, ecosystem.RegistryNuGet} {
		result := cfg.Classify(context.Background(),
			[]ecosystem.Package{{Name: "anything", Version: "1.0.0"}},
			tag, resolver)
		assert.Len(t, result.Unknown, 1, "tag %s", tag)
	}
	assert.Zero(t, resolver.calls)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "licenses.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"license_tiers": "not-an-object"}`), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "licenses.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"aliases": {"MIT License": "MIT"},
		"license_tiers": {"permissive": ["MIT"], "restrictive": ["GPL-3.0"]},
		"license_overrides": {"leftpad": {"license": "MIT", "tier": "permissive"}},
		"severity_map": {"permissive": "LOW", "restrictive": "HIGH"},
		"dev_severity_reduction": {"HIGH": "MEDIUM"}
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "MIT", cfg.Aliases["MIT License"])
	_, tier := cfg.EvaluateSPDX("GPL-3.0")
	assert.Equal(t, TierRestrictive, tier)
}
