package license

import (
	"context"
	"fmt"
	"strings"

	"github.com/licscan/licscan/internal/ecosystem"
	"github.com/licscan/licscan/pkg/logger"
)

// Entry is a classified dependency record.
type Entry struct {
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	License     string        `json:"license"`
	RawLicense  string        `json:"raw_license"`
	Tier        string        `json:"tier"`
	Severity    string        `json:"severity"`
	IsDev       bool          `json:"is_dev"`
	Note        string        `json:"note,omitempty"`
	ResolvedVia string        `json:"resolved_via,omitempty"`
	IntroducedBy *Introduction `json:"introduced_by,omitempty"`
}

// Introduction attributes a high-severity dependency to the commit that
// introduced its responsible direct dependency. Populated by the blame
// tracer; absent when no introducing commit can be found.
type Introduction struct {
	DirectDependency string   `json:"direct_dependency"`
	DependencyChain  []string `json:"dependency_chain"`
	Commit           string   `json:"commit"`
	Author           string   `json:"author"`
	Date             string   `json:"date"`
	Message          string   `json:"message"`
}

// Result partitions a project's dependencies into the five tier buckets.
// Rebuilt fresh on every scan; carries no other state.
type Result struct {
	Permissive   []*Entry `json:"permissive"`
	WeakCopyleft []*Entry `json:"weak_copyleft"`
	Restrictive  []*Entry `json:"restrictive"`
	Custom       []*Entry `json:"custom"`
	Unknown      []*Entry `json:"unknown"`
}

func (r *Result) bucket(tier string) *[]*Entry {
	switch tier {
	case TierPermissive:
		return &r.Permissive
	case TierWeakCopyleft:
		return &r.WeakCopyleft
	case TierRestrictive:
		return &r.Restrictive
	case TierCustom:
		return &r.Custom
	default:
		return &r.Unknown
	}
}

// Total returns the number of classified entries across all buckets.
func (r *Result) Total() int {
	return len(r.Permissive) + len(r.WeakCopyleft) + len(r.Restrictive) +
		len(r.Custom) + len(r.Unknown)
}

// Resolver is the registry surface needed for second-pass resolution.
// Satisfied by registry.Client.
type Resolver interface {
	NPMLicense(ctx context.Context, name, version string) (string, bool)
	PyPILicense(ctx context.Context, name, version string) (string, bool)
	CratesLicense(ctx context.Context, name, version string) (string, bool)
}

// Classify assigns every package to exactly one tier bucket.
//
// Overrides win over computed classification. Packages still unknown
// after normalization are resolved against the ecosystem's registry in a
// second pass — skipped for registry tags whose extractor already queried
// a registry (github, maven, nuget), to avoid duplicate network calls.
// Pass a nil resolver to disable the second pass entirely.
func (c *Config) Classify(ctx context.Context, packages []ecosystem.Package, registryTag string, resolver Resolver) *Result {
	result := &Result{}

	type pending struct {
		entry *Entry
	}
	var unknowns []pending

	for _, pkg := range packages {
		rawLicense := pkg.License
		if rawLicense == "" {
			rawLicense = ecosystem.UnknownLicense
		}

		if ov, ok := c.FindOverride(pkg.Name); ok {
			entry := &Entry{
				Name:       pkg.Name,
				Version:    pkg.Version,
				License:    ov.License,
				RawLicense: rawLicense,
				Tier:       ov.Tier,
				Severity:   c.severityFor(ov.Tier, SeverityReview),
				IsDev:      pkg.IsDev,
				Note:       ov.Note,
			}
			if pkg.IsDev {
				entry.Severity = c.reduceDevSeverity(entry.Severity)
			}
			*result.bucket(ov.Tier) = append(*result.bucket(ov.Tier), entry)
			continue
		}

		var normalized, tier string
		switch {
		case strings.HasPrefix(strings.ToUpper(rawLicense), "SEE LICENSE IN"):
			normalized, tier = rawLicense, TierUnknown
		case rawLicense == "UNLICENSED":
			normalized, tier = "UNLICENSED", TierUnknown
		case rawLicense == "Unknown" || rawLicense == ecosystem.UnknownLicense:
			normalized, tier = ecosystem.UnknownLicense, TierUnknown
		default:
			normalized, tier = c.EvaluateSPDX(rawLicense)
		}

		severity := c.severityFor(tier, SeverityLow)
		if pkg.IsDev {
			severity = c.reduceDevSeverity(severity)
		}

		entry := &Entry{
			Name:       pkg.Name,
			Version:    pkg.Version,
			License:    normalized,
			RawLicense: rawLicense,
			Tier:       tier,
			Severity:   severity,
			IsDev:      pkg.IsDev,
		}

		if tier == TierUnknown {
			unknowns = append(unknowns, pending{entry: entry})
		} else {
			*result.bucket(tier) = append(*result.bucket(tier), entry)
		}
	}

	if resolver == nil || len(unknowns) == 0 || secondPassSkipped(registryTag) {
		for _, p := range unknowns {
			result.Unknown = append(result.Unknown, p.entry)
		}
		return result
	}

	logger.Info(fmt.Sprintf("Resolving %d unknown licenses via %s", len(unknowns), registryTag))
	resolved := 0
	for _, p := range unknowns {
		entry := p.entry
		regLicense, sourceTag, ok := lookupRegistry(ctx, resolver, registryTag, entry.Name, entry.Version)
		if !ok {
			result.Unknown = append(result.Unknown, entry)
			continue
		}

		normalized, tier := c.EvaluateSPDX(regLicense)
		entry.License = normalized
		entry.RawLicense = fmt.Sprintf("%s -> %s:%s", entry.RawLicense, sourceTag, regLicense)
		entry.Tier = tier
		entry.Severity = c.severityFor(tier, SeverityLow)
		if entry.IsDev {
			entry.Severity = c.reduceDevSeverity(entry.Severity)
		}
		entry.ResolvedVia = sourceTag + "_registry"
		*result.bucket(tier) = append(*result.bucket(tier), entry)
		resolved++
	}
	if resolved > 0 {
		logger.Info(fmt.Sprintf("Resolved %d/%d via %s", resolved, len(unknowns), registryTag))
	}

	return result
}

func secondPassSkipped(registryTag string) bool {
	switch registryTag {
	case ecosystem.RegistryGitHub, ecosystem.RegistryMaven, ecosystem.RegistryNuGet:
		return true
	}
	return false
}

func lookupRegistry(ctx context.Context, resolver Resolver, registryTag, name, version string) (string, string, bool) {
	switch registryTag {
	case ecosystem.RegistryCargo:
		lic, ok := resolver.CratesLicense(ctx, name, version)
		return lic, "crates.io", ok
	case ecosystem.RegistryPyPI:
		lic, ok := resolver.PyPILicense(ctx, name, version)
		return lic, "pypi", ok
	default:
		lic, ok := resolver.NPMLicense(ctx, name, version)
		return lic, "npm", ok
	}
}

func (c *Config) severityFor(tier, fallback string) string {
	if sev, ok := c.SeverityMap[tier]; ok {
		return sev
	}
	return fallback
}

func (c *Config) reduceDevSeverity(severity string) string {
	if reduced, ok := c.DevSeverityReduction[severity]; ok {
		return reduced
	}
	return severity
}
