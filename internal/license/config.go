// Package license implements license normalization, SPDX expression
// evaluation, and tier classification of extracted dependencies.
package license

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tier buckets, ordered from least to most restrictive. custom is reserved
// for override-driven classification; no computed path populates it.
const (
	TierPermissive   = "permissive"
	TierWeakCopyleft = "weak_copyleft"
	TierRestrictive  = "restrictive"
	TierCustom       = "custom"
	TierUnknown      = "unknown"
)

// Severity labels derived from tiers via the configured severity map.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
	SeverityReview = "REVIEW"
)

// Override forces a package's license and tier, with an optional advisory note.
type Override struct {
	License string `json:"license"`
	Tier    string `json:"tier"`
	Note    string `json:"note,omitempty"`
}

// Config holds the classification tables. Classification is a pure
// function of these tables: identical inputs always produce identical
// tiers and normalized license strings.
type Config struct {
	Aliases              map[string]string   `json:"aliases"`
	LicenseTiers         map[string][]string `json:"license_tiers"`
	LicenseOverrides     map[string]Override `json:"license_overrides"`
	SeverityMap          map[string]string   `json:"severity_map"`
	DevSeverityReduction map[string]string   `json:"dev_severity_reduction"`
}

// LoadConfig reads and validates a classification config file.
// The tables are case-sensitive (license identifiers are), so they are
// decoded with encoding/json directly rather than a case-folding loader.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := ValidateConfig(data); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// DefaultConfig returns the compiled-in classification tables used when no
// config file is supplied.
func DefaultConfig() *Config {
	return &Config{
		Aliases: map[string]string{
			"MIT License":                          "MIT",
			"The MIT License":                      "MIT",
			"MIT license":                          "MIT",
			"Expat":                                "MIT",
			"Apache Software License":              "Apache-2.0",
			"Apache License":                       "Apache-2.0",
			"Apache License 2.0":                   "Apache-2.0",
			"Apache License, Version 2.0":          "Apache-2.0",
			"Apache 2.0":                           "Apache-2.0",
			"Apache-2":                             "Apache-2.0",
			"Apache2":                              "Apache-2.0",
			"BSD":                                  "BSD-3-Clause",
			"BSD License":                          "BSD-3-Clause",
			"BSD 3-Clause":                         "BSD-3-Clause",
			"BSD-3":                                "BSD-3-Clause",
			"New BSD License":                      "BSD-3-Clause",
			"BSD 2-Clause":                         "BSD-2-Clause",
			"Simplified BSD License":               "BSD-2-Clause",
			"ISC License (ISCL)":                   "ISC",
			"ISC License":                          "ISC",
			"The Unlicense (Unlicense)":            "Unlicense",
			"Zope Public License":                  "ZPL-2.1",
			"Python Software Foundation License":   "PSF-2.0",
			"GNU General Public License v2 (GPLv2)": "GPL-2.0",
			"GNU General Public License v3 (GPLv3)": "GPL-3.0",
			"GPLv2":                                "GPL-2.0",
			"GPLv3":                                "GPL-3.0",
			"GPL v3":                               "GPL-3.0",
			"GNU Lesser General Public License v2 (LGPLv2)":    "LGPL-2.1",
			"GNU Lesser General Public License v2.1 (LGPLv2.1)": "LGPL-2.1",
			"GNU Lesser General Public License v3 (LGPLv3)":    "LGPL-3.0",
			"GNU Library or Lesser General Public License (LGPL)": "LGPL-3.0",
			"LGPL":                             "LGPL-3.0",
			"Mozilla Public License 2.0 (MPL 2.0)": "MPL-2.0",
			"MPL 2.0":                          "MPL-2.0",
			"MPL-2.0 license":                  "MPL-2.0",
			"Eclipse Public License 2.0 (EPL-2.0)": "EPL-2.0",
			"GNU Affero General Public License v3": "AGPL-3.0",
			"GNU Affero General Public License v3 or later (AGPLv3+)": "AGPL-3.0",
			"AGPLv3": "AGPL-3.0",
		},
		LicenseTiers: map[string][]string{
			TierPermissive: {
				"MIT", "Apache-2.0", "BSD-2-Clause", "BSD-3-Clause", "ISC",
				"0BSD", "Unlicense", "CC0-1.0", "Zlib", "BlueOak-1.0.0",
				"PSF-2.0", "Python-2.0", "ZPL-2.1", "WTFPL", "MIT-0",
				"Apache-1.1", "BSD-3-Clause-Clear", "Artistic-2.0",
				"BSL-1.0", "Unicode-DFS-2016", "MS-PL",
			},
			TierWeakCopyleft: {
				"LGPL-2.0", "LGPL-2.1", "LGPL-3.0",
				"LGPL-2.1-only", "LGPL-2.1-or-later",
				"LGPL-3.0-only", "LGPL-3.0-or-later",
				"MPL-1.1", "MPL-2.0", "EPL-1.0", "EPL-2.0",
				"CDDL-1.0", "CC-BY-3.0", "CC-BY-4.0", "OSL-3.0",
			},
			TierRestrictive: {
				"GPL-2.0", "GPL-3.0",
				"GPL-2.0-only", "GPL-2.0-or-later",
				"GPL-3.0-only", "GPL-3.0-or-later",
				"AGPL-3.0", "AGPL-3.0-only", "AGPL-3.0-or-later",
				"SSPL-1.0", "BUSL-1.1", "Elastic-2.0",
				"CC-BY-NC-4.0", "CC-BY-SA-4.0", "CC-BY-NC-SA-4.0",
			},
		},
		LicenseOverrides: map[string]Override{},
		SeverityMap: map[string]string{
			TierPermissive:   SeverityLow,
			TierWeakCopyleft: SeverityMedium,
			TierRestrictive:  SeverityHigh,
			TierCustom:       SeverityReview,
			TierUnknown:      SeverityReview,
		},
		DevSeverityReduction: map[string]string{
			SeverityHigh:   SeverityMedium,
			SeverityMedium: SeverityLow,
		},
	}
}
