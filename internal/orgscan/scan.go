package orgscan

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/licscan/licscan/internal/exec"
	"github.com/licscan/licscan/internal/license"
	"github.com/licscan/licscan/internal/scan"
	"github.com/licscan/licscan/pkg/logger"
)

// repoScanTimeout bounds one repo end to end: clone, install, extract,
// resolve. Large monorepos need most of it.
const repoScanTimeout = 15 * time.Minute

// DescriptionSource fetches one-line package descriptions for report
// enrichment. Satisfied by registry.Client.
type DescriptionSource interface {
	NPMDescription(ctx context.Context, name string) (string, bool)
	CratesDescription(ctx context.Context, name string) (string, bool)
	PyPIDescription(ctx context.Context, name string) (string, bool)
}

// Orchestrator drives discovery and scanning against a tracker file.
type Orchestrator struct {
	Tracker      *Tracker
	TrackerPath  string
	Scanner      *scan.Scanner
	Descriptions DescriptionSource

	run runner
}

// NewOrchestrator wires an orchestrator around a loaded tracker. The
// tracker path may be empty when crash-safe saves are not wanted.
func NewOrchestrator(t *Tracker, trackerPath string, scanner *scan.Scanner, descs DescriptionSource) *Orchestrator {
	return &Orchestrator{
		Tracker:      t,
		TrackerPath:  trackerPath,
		Scanner:      scanner,
		Descriptions: descs,
		run:          exec.Run,
	}
}

// Session summarizes one scanning run.
type Session struct {
	Scanned    int      `json:"scanned"`
	Errors     int      `json:"errors"`
	Skipped    int      `json:"skipped"`
	Violations []string `json:"violations"`
}

// RunScans scans each candidate, updating and persisting the tracker
// after every repo so an interrupted run resumes where it stopped.
func (o *Orchestrator) RunScans(ctx context.Context, candidates []string) *Session {
	session := &Session{Violations: []string{}}

	if len(candidates) == 0 {
		logger.Info("No repos to scan.")
		return session
	}

	logger.Info(fmt.Sprintf("Scanning %d repos...", len(candidates)))
	for i, name := range candidates {
		logger.Info(fmt.Sprintf("[%d/%d] %s", i+1, len(candidates), name))

		summary, packages, scanErr := o.scanRepo(ctx, name)
		info := o.Tracker.Repos[name]
		info.LastScanned = strPtr(nowISO())

		if scanErr != "" {
			info.ScanError = strPtr(scanErr)
			session.Errors++
			logger.Warn("Error: " + truncate(scanErr, 100))
		} else {
			info.NonPermissive = packages
			info.LastResultSummary = summary
			info.ScanError = nil
			info.PackageManager = strPtr(summary.PackageManager)
			info.IsMonorepo = boolPtr(summary.IsMonorepo)
			session.Scanned++

			if summary.HasViolations {
				session.Violations = append(session.Violations, name)
				logger.Warn("Violations found!")
			} else {
				logger.Info("Clean")
			}
		}

		if o.TrackerPath != "" {
			if err := SaveTracker(o.Tracker, o.TrackerPath); err != nil {
				logger.Warn("Failed to save tracker: " + err.Error())
			}
		}
	}

	return session
}

// scanRepo clones and scans one repo. A non-empty error string is a
// classified failure; violations are not failures.
func (o *Orchestrator) scanRepo(ctx context.Context, name string) (*ScanSummary, []PackageDetail, string) {
	logger.Info("Scanning " + name + "...")

	ctx, cancel := context.WithTimeout(ctx, repoScanTimeout)
	defer cancel()

	dir, pm, err := scan.CloneAndInstall(ctx, name, "")
	if err != nil {
		return nil, nil, ClassifyError(truncate(err.Error(), 500))
	}
	defer os.RemoveAll(dir)

	result, err := o.Scanner.Scan(ctx, dir, pm, scan.Options{Verbose: true})
	if err != nil {
		return nil, nil, ClassifyError(truncate(err.Error(), 500))
	}

	summary := &ScanSummary{
		Permissive:     result.Summary.Permissive,
		WeakCopyleft:   result.Summary.WeakCopyleft,
		Restrictive:    result.Summary.Restrictive,
		Custom:         result.Summary.Custom,
		Unknown:        result.Summary.Unknown,
		Total:          result.Summary.Total,
		HasViolations:  result.HasViolations,
		PackageManager: result.PackageManager,
		IsMonorepo:     result.IsMonorepo,
	}

	packages := collectNonPermissive(result)
	o.enrich(ctx, packages, pm)
	return summary, packages, ""
}

// collectNonPermissive flattens the non-permissive buckets of a scan
// result into appendix records, deduplicating weak-copyleft entries that
// already appear among the violations.
func collectNonPermissive(result *scan.Result) []PackageDetail {
	var packages []PackageDetail
	add := func(entries []*license.Entry, classification string) {
		for _, e := range entries {
			packages = append(packages, PackageDetail{
				Name:           e.Name,
				Version:        e.Version,
				License:        e.License,
				IsDev:          e.IsDev,
				Classification: classification,
			})
		}
	}
	add(result.Violations.High, "restrictive")
	add(result.Violations.Medium, "weak_copyleft")
	add(result.Custom, "custom")
	add(result.Unknown, "unknown")

	if result.AllPackages != nil {
		seen := map[string]bool{}
		for _, p := range packages {
			seen[p.Name] = true
		}
		for _, e := range result.AllPackages.WeakCopyleft {
			if !seen[e.Name] {
				add([]*license.Entry{e}, "weak_copyleft")
			}
		}
	}
	return packages
}

// enrich attaches registry descriptions and curated advisory notes.
func (o *Orchestrator) enrich(ctx context.Context, packages []PackageDetail, pm string) {
	if len(packages) == 0 {
		return
	}

	descriptions := o.fetchDescriptions(ctx, packages, pm)
	for i := range packages {
		packages[i].Description = descriptions[packages[i].Name]
		if note, ok := NotesFor(packages[i].Name); ok {
			packages[i].Alternative = note.Alternative
			packages[i].Removable = note.Removable
		}
	}
}

// fetchDescriptions routes description lookups to the registry matching
// the repo's package manager. Failures are silently skipped.
func (o *Orchestrator) fetchDescriptions(ctx context.Context, packages []PackageDetail, pm string) map[string]string {
	descriptions := map[string]string{}
	if o.Descriptions == nil {
		return descriptions
	}

	seen := map[string]bool{}
	var names []string
	for _, p := range packages {
		if p.Name != "" && !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return descriptions
	}
	sort.Strings(names)

	lookup := o.Descriptions.NPMDescription
	source := "npm"
	switch pm {
	case "cargo":
		lookup, source = o.Descriptions.CratesDescription, "crates.io"
	case "poetry", "uv", "pipenv", "pip":
		lookup, source = o.Descriptions.PyPIDescription, "PyPI"
	}

	logger.Info(fmt.Sprintf("Fetching descriptions for %d packages from %s...", len(names), source))
	for _, name := range names {
		if desc, ok := lookup(ctx, name); ok {
			descriptions[name] = desc
		}
	}
	return descriptions
}

// ClassifyError maps raw scan output to a clean category for tracking
// and reporting.
func ClassifyError(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "no package manager detected"):
		return "No lockfile detected in repo"
	case strings.Contains(lower, "err_pnpm_outdated_lockfile"):
		return "Outdated lockfile (pnpm-lock.yaml out of sync with package.json)"
	case strings.Contains(lower, "frozen-lockfile") || strings.Contains(lower, "yn0050"):
		return "Outdated lockfile (yarn.lock out of sync)"
	case strings.Contains(lower, "corepack"):
		return "Corepack version conflict (packageManager field requires different version)"
	case strings.Contains(lower, "dep0169"):
		return "Node.js deprecation breaking install"
	case strings.Contains(lower, "timeout"):
		return "Install timed out (likely large monorepo)"
	case strings.Contains(lower, "clone failed"):
		return "Failed to clone repo"
	case strings.Contains(lower, "install failed"):
		return "Dependency install failed"
	case strings.Contains(lower, "no packages found"):
		return "No packages found (deps installed but license extraction returned empty)"
	case strings.Contains(lower, "dependencies not installed"):
		return "Dependencies not installed"
	case strings.Contains(lower, "resolving") && strings.Contains(lower, "unknown licenses"):
		return "Scan stalled during license resolution (likely timeout)"
	case strings.Contains(lower, "monorepo: true") && strings.HasSuffix(strings.TrimRight(raw, " \t\n"), "workspaces)"):
		return "Scan stalled after detecting monorepo (likely timeout during install)"
	}
	return truncate(strings.TrimSpace(strings.ReplaceAll(raw, "\n", " ")), 120)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
