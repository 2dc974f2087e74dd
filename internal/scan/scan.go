// Package scan orchestrates a full project scan: detection, extraction,
// classification, blame tracing, and result assembly.
package scan

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/licscan/licscan/internal/blame"
	"github.com/licscan/licscan/internal/ecosystem"
	"github.com/licscan/licscan/internal/license"
	"github.com/licscan/licscan/internal/registry"
	"github.com/licscan/licscan/pkg/logger"
)

// Summary counts classified packages per tier.
type Summary struct {
	Permissive   int `json:"permissive"`
	WeakCopyleft int `json:"weak_copyleft"`
	Restrictive  int `json:"restrictive"`
	Custom       int `json:"custom"`
	Unknown      int `json:"unknown"`
	Total        int `json:"total"`
}

// Violations groups the entries that demand attention, by severity.
type Violations struct {
	High   []*license.Entry `json:"high"`
	Medium []*license.Entry `json:"medium"`
}

// Result is the scan output. Violations and review buckets are always
// present; AllPackages only in verbose runs.
type Result struct {
	Project        string           `json:"project"`
	PackageManager string           `json:"package_manager"`
	IsMonorepo     bool             `json:"is_monorepo"`
	WorkspaceCount int              `json:"workspace_count"`
	ProdOnly       bool             `json:"prod_only"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`
	Summary        Summary          `json:"summary"`
	HasViolations  bool             `json:"has_violations"`
	Violations     Violations       `json:"violations"`
	Custom         []*license.Entry `json:"custom"`
	Unknown        []*license.Entry `json:"unknown"`
	AllPackages    *license.Result  `json:"all_packages,omitempty"`
}

// Error is a scan failure tied to a project path, rendered as a
// structured payload rather than a bare message.
type Error struct {
	Message string `json:"error"`
	Project string `json:"project"`
}

func (e *Error) Error() string { return e.Message }

// Options carries the scan knobs from the CLI.
type Options struct {
	ProdOnly bool
	Verbose  bool
	// Timeout bounds individual package-manager subprocess calls.
	Timeout time.Duration
}

// Scanner wires the pipeline stages together.
type Scanner struct {
	Config   *license.Config
	Registry *registry.Client
}

func NewScanner(cfg *license.Config, client *registry.Client) *Scanner {
	return &Scanner{Config: cfg, Registry: client}
}

// Scan runs the pipeline for an already-detected package manager.
func (s *Scanner) Scan(ctx context.Context, root, pm string, opts Options) (*Result, error) {
	start := time.Now()

	extractor, ok := ecosystem.ForPM(pm, s.Registry)
	if !ok {
		return nil, &Error{Message: fmt.Sprintf("unsupported package manager %q", pm), Project: root}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	extraction, err := extractor.Extract(ctx, root, ecosystem.Options{
		ProdOnly: opts.ProdOnly,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, &Error{Message: err.Error(), Project: root}
	}

	logger.Debug(fmt.Sprintf("Package manager: %s, monorepo: %v (%d workspaces)",
		pm, extraction.IsMonorepo, extraction.WorkspaceCount))

	var resolver license.Resolver
	if s.Registry != nil {
		resolver = s.Registry
	}
	classified := s.Config.Classify(ctx, extraction.Packages, ecosystem.RegistryTag(pm), resolver)

	// Provenance only makes sense inside a git checkout.
	if len(classified.Restrictive) > 0 && fileExists(filepath.Join(root, ".git")) {
		blame.NewTracer(root, pm).Trace(ctx, classified.Restrictive)
	}

	result := &Result{
		Project:        root,
		PackageManager: pm,
		IsMonorepo:     extraction.IsMonorepo,
		WorkspaceCount: extraction.WorkspaceCount,
		ProdOnly:       opts.ProdOnly,
		ElapsedSeconds: math.Round(time.Since(start).Seconds()*10) / 10,
		Summary: Summary{
			Permissive:   len(classified.Permissive),
			WeakCopyleft: len(classified.WeakCopyleft),
			Restrictive:  len(classified.Restrictive),
			Custom:       len(classified.Custom),
			Unknown:      len(classified.Unknown),
			Total:        len(extraction.Packages),
		},
		HasViolations: len(classified.Restrictive) > 0,
		Violations: Violations{
			High:   emptyNotNil(classified.Restrictive),
			Medium: emptyNotNil(classified.WeakCopyleft),
		},
		Custom:  emptyNotNil(classified.Custom),
		Unknown: emptyNotNil(classified.Unknown),
	}
	if opts.Verbose {
		result.AllPackages = classified
	}
	return result, nil
}

// DetectAndScan detects the package manager first, failing with the list
// of recognized lockfiles when nothing matches.
func (s *Scanner) DetectAndScan(ctx context.Context, root string, opts Options) (*Result, error) {
	pm := ecosystem.Detect(root)
	if pm == "" {
		return nil, &Error{
			Message: "No lockfile found. Expected pnpm-lock.yaml, yarn.lock, package-lock.json, " +
				"Cargo.toml, poetry.lock, uv.lock, Pipfile.lock, or requirements.txt.",
			Project: root,
		}
	}
	return s.Scan(ctx, root, pm, opts)
}

// JSON arrays should render as [] rather than null.
func emptyNotNil(entries []*license.Entry) []*license.Entry {
	if entries == nil {
		return []*license.Entry{}
	}
	return entries
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
