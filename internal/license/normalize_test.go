package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateSPDX(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name        string
		expr        string
		wantLicense string
		wantTier    string
	}{
		{"single permissive", "MIT", "MIT", TierPermissive},
		{"single restrictive", "GPL-3.0", "GPL-3.0", TierRestrictive},
		{"alias normalized", "MIT License", "MIT", TierPermissive},
		{"or picks most permissive", "MIT OR GPL-3.0", "MIT", TierPermissive},
		{"or with parens", "(MIT OR GPL-3.0)", "MIT", TierPermissive},
		{"and picks most restrictive", "MIT AND GPL-3.0", "GPL-3.0", TierRestrictive},
		{"and weak copyleft governs over permissive", "Apache-2.0 AND MPL-2.0", "MPL-2.0", TierWeakCopyleft},
		{"slash as or", "MIT/Apache-2.0", "MIT", TierPermissive},
		{"slash reversed", "Apache-2.0/MIT", "MIT", TierPermissive},
		{"space padded slash", "Apache-2.0 / MIT", "MIT", TierPermissive},
		{"slash with unlicense", "Unlicense/MIT", "MIT", TierPermissive},
		{"identifier with embedded dash not split", "LGPL-2.1-or-later", "LGPL-2.1-or-later", TierWeakCopyleft},
		{"unknown single", "Proprietary Corp License", "Proprietary Corp License", TierUnknown},
		{"slash with no recognized operand left intact", "w3c/rec", "w3c/rec", TierUnknown},
		{"three way or", "GPL-3.0 OR LGPL-3.0 OR MIT", "MIT", TierPermissive},
		{"three way and", "MIT AND ISC AND AGPL-3.0", "AGPL-3.0", TierRestrictive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			license, tier := cfg.EvaluateSPDX(tt.expr)
			assert.Equal(t, tt.wantLicense, license)
			assert.Equal(t, tt.wantTier, tier)
		})
	}
}

func TestTierMembershipVerbatim(t *testing.T) {
	cfg := DefaultConfig()

	// Every configured member must classify into its own tier with the
	// string reported verbatim.
	for tier, members := range cfg.LicenseTiers {
		for _, lic := range members {
			gotLicense, gotTier := cfg.EvaluateSPDX(lic)
			if gotTier != tier {
				t.Errorf("EvaluateSPDX(%q) tier = %q, want %q", lic, gotTier, tier)
			}
			if gotLicense != lic {
				t.Errorf("EvaluateSPDX(%q) license = %q, want verbatim", lic, gotLicense)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "UNKNOWN", cfg.Normalize(""))
	assert.Equal(t, "MIT", cfg.Normalize("  MIT License  "))
	assert.Equal(t, "Apache-2.0", cfg.Normalize("Apache Software License"))
	assert.Equal(t, "SomethingElse", cfg.Normalize("SomethingElse"))
}

func TestFindOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LicenseOverrides = map[string]Override{
		"leftpad":      {License: "MIT", Tier: TierPermissive, Note: "vendored fork"},
		"@corp/*":      {License: "Proprietary", Tier: TierCustom, Note: "internal"},
		"@corp/exact":  {License: "MIT", Tier: TierPermissive},
	}

	ov, ok := cfg.FindOverride("leftpad")
	assert.True(t, ok)
	assert.Equal(t, "vendored fork", ov.Note)

	// Exact match wins over the glob that also matches.
	ov, ok = cfg.FindOverride("@corp/exact")
	assert.True(t, ok)
	assert.Equal(t, TierPermissive, ov.Tier)

	ov, ok = cfg.FindOverride("@corp/other")
	assert.True(t, ok)
	assert.Equal(t, TierCustom, ov.Tier)

	_, ok = cfg.FindOverride("unrelated")
	assert.False(t, ok)
}
