// Package orgscan discovers repositories across GitHub organizations,
// tracks which have been scanned, and orchestrates per-repo license
// scans with crash-safe resume via a tracker file.
package orgscan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// RepoRecord tracks one repository's discovery and scan state. Nullable
// fields use pointers so the tracker file round-trips unchanged.
type RepoRecord struct {
	DiscoveredAt      string          `json:"discovered_at"`
	PrimaryLanguage   string          `json:"primary_language"`
	PushedAt          *string         `json:"pushed_at"`
	HasLockfile       *bool           `json:"has_lockfile"`
	PackageManager    *string         `json:"package_manager"`
	IsMonorepo        *bool           `json:"is_monorepo"`
	LastScanned       *string         `json:"last_scanned"`
	LastResultSummary *ScanSummary    `json:"last_result_summary"`
	ScanError         *string         `json:"scan_error"`
	SkipReason        *string         `json:"skip_reason"`
	NonPermissive     []PackageDetail `json:"non_permissive_packages,omitempty"`
}

// ScanSummary is the per-repo scan digest persisted in the tracker.
type ScanSummary struct {
	Permissive     int    `json:"permissive"`
	WeakCopyleft   int    `json:"weak_copyleft"`
	Restrictive    int    `json:"restrictive"`
	Custom         int    `json:"custom"`
	Unknown        int    `json:"unknown"`
	Total          int    `json:"total"`
	HasViolations  bool   `json:"has_violations"`
	PackageManager string `json:"package_manager"`
	IsMonorepo     bool   `json:"is_monorepo"`
}

// PackageDetail is one non-permissive package kept for report appendices,
// enriched with a registry description and curated advisory notes.
type PackageDetail struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	License        string `json:"license"`
	IsDev          bool   `json:"is_dev"`
	Classification string `json:"classification"`
	Description    string `json:"description"`
	Alternative    string `json:"alternative,omitempty"`
	Removable      string `json:"removable,omitempty"`
}

// Tracker is the persistent discovery and scan state for a set of orgs.
type Tracker struct {
	Orgs          []string               `json:"orgs"`
	LastDiscovery *string                `json:"last_discovery"`
	Repos         map[string]*RepoRecord `json:"repos"`
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{Orgs: []string{}, Repos: map[string]*RepoRecord{}}
}

// LoadTracker reads a tracker file, returning an empty tracker when the
// file does not exist yet.
func LoadTracker(path string) (*Tracker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewTracker(), nil
		}
		return nil, fmt.Errorf("read tracker: %w", err)
	}
	t := NewTracker()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parse tracker %s: %w", path, err)
	}
	if t.Repos == nil {
		t.Repos = map[string]*RepoRecord{}
	}
	if t.Orgs == nil {
		t.Orgs = []string{}
	}
	return t, nil
}

// SaveTracker writes the tracker to disk, creating parent directories.
func SaveTracker(t *Tracker, path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create tracker dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// sortedRepoNames returns repo full names in stable order so output and
// report sections do not shuffle between runs.
func sortedRepoNames(repos map[string]*RepoRecord) []string {
	names := make([]string, 0, len(repos))
	for name := range repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
