// Package ecosystem implements package-manager detection and per-ecosystem
// dependency extraction for the eleven supported package managers.
package ecosystem

import (
	"context"
	"time"
)

// PackageManager tags identify the detected manager for a project.
const (
	PMPnpm     = "pnpm"
	PMNpm      = "npm"
	PMYarn     = "yarn"
	PMCargo    = "cargo"
	PMPoetry   = "poetry"
	PMUv       = "uv"
	PMPipenv   = "pipenv"
	PMPip      = "pip"
	PMSwift    = "swift"
	PMGradle   = "gradle"
	PMDart     = "dart"
	PMGo       = "go"
	PMCSharp   = "csharp"
	PMSolidity = "solidity"
)

// Registry tags name the registry family used for second-pass license
// resolution. Ecosystems tagged github/maven/nuget already queried a
// registry during extraction and are skipped in the second pass.
const (
	RegistryNpm    = "npm"
	RegistryCargo  = "cargo"
	RegistryPyPI   = "pypi"
	RegistryGitHub = "github"
	RegistryMaven  = "maven"
	RegistryNuGet  = "nuget"
)

// UnknownLicense is the sentinel for "no license could be determined".
// Extraction never fails a package for a missing license; classification
// is where ambiguity is finally resolved or left unresolved.
const UnknownLicense = "UNKNOWN"

// Package is the unit flowing through the pipeline: one unique
// (name, version) per project scan, immutable after extraction.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	License string `json:"license"`
	IsDev   bool   `json:"is_dev"`
}

// Extraction is the result of running one ecosystem extractor.
type Extraction struct {
	Packages       []Package
	IsMonorepo     bool
	WorkspaceCount int
}

// Options carries extractor knobs shared across ecosystems.
type Options struct {
	ProdOnly bool
	// Timeout bounds a single package-manager subprocess invocation.
	Timeout time.Duration
}

// Extractor produces a normalized dependency list for one ecosystem family.
type Extractor interface {
	// Extract returns the project's dependency list. A missing native tool
	// or non-zero tool exit is an error (there is no reliable dependency
	// list without it); a failed per-package registry lookup is not, and
	// degrades that package's license to UNKNOWN.
	Extract(ctx context.Context, root string, opts Options) (*Extraction, error)
}

// RegistryTag maps a package manager to its second-pass registry family.
func RegistryTag(pm string) string {
	switch pm {
	case PMCargo:
		return RegistryCargo
	case PMPoetry, PMUv, PMPipenv, PMPip:
		return RegistryPyPI
	case PMSwift, PMDart, PMGo:
		return RegistryGitHub
	case PMGradle:
		return RegistryMaven
	case PMCSharp:
		return RegistryNuGet
	default:
		// JS family and Solidity resolve unknowns through npm.
		return RegistryNpm
	}
}
