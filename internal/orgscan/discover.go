package orgscan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/licscan/licscan/internal/exec"
	"github.com/licscan/licscan/pkg/logger"
)

// SupportedLanguages lists GitHub primary languages that map to an
// ecosystem the scanner can extract dependencies from.
var SupportedLanguages = map[string]bool{
	"JavaScript": true,
	"TypeScript": true,
	"Rust":       true,
	"Python":     true,
	"Dart":       true,
	"Go":         true,
	"C#":         true,
	"Kotlin":     true,
	"Swift":      true,
	"Solidity":   true,
}

// languageManifests maps a primary language to the manifest checked via
// the GitHub contents API when deciding whether a repo is scannable.
var languageManifests = map[string]string{
	"JavaScript": "package.json",
	"TypeScript": "package.json",
	"Rust":       "Cargo.toml",
	"Python":     "pyproject.toml",
	"Dart":       "pubspec.yaml",
	"Go":         "go.mod",
	"C#":         "Directory.Packages.props",
	"Kotlin":     "gradle/libs.versions.toml",
	"Swift":      "Package.resolved",
	"Solidity":   "foundry.toml",
}

// manifestFallbacks are tried when the primary manifest is absent; some
// ecosystems keep theirs under different names or only in older layouts.
var manifestFallbacks = map[string][]string{
	"Python":   {"poetry.lock", "uv.lock", "Pipfile.lock", "requirements.txt"},
	"Kotlin":   {"build.gradle.kts", "build.gradle", "settings.gradle.kts"},
	"Swift":    {".package.resolved", "Package.swift"},
	"Solidity": {"hardhat.config.js", "hardhat.config.ts"},
}

// noManifestSkipReasons name why a repo with a supported language is
// still unscannable.
var noManifestSkipReasons = map[string]string{
	"Rust":     "no_cargo_toml",
	"Python":   "no_python_lockfile",
	"Dart":     "no_pubspec",
	"Go":       "no_go_mod",
	"C#":       "no_csproj",
	"Kotlin":   "no_gradle",
	"Swift":    "no_package_resolved",
	"Solidity": "no_foundry_toml",
}

// ghRepo is one entry from `gh repo list --json`.
type ghRepo struct {
	Name            string `json:"name"`
	NameWithOwner   string `json:"nameWithOwner"`
	PrimaryLanguage *struct {
		Name string `json:"name"`
	} `json:"primaryLanguage"`
	PushedAt string `json:"pushedAt"`
}

// Discover lists repositories for each org via the gh CLI and merges
// them into the tracker. Repos previously skipped for a language that is
// now supported get their lockfile state reset for re-checking.
func (o *Orchestrator) Discover(ctx context.Context, orgs []string) {
	timestamp := nowISO()
	newCount := 0
	totalDiscovered := 0

	for _, org := range orgs {
		if !containsString(o.Tracker.Orgs, org) {
			o.Tracker.Orgs = append(o.Tracker.Orgs, org)
		}

		logger.Info("Discovering repos in " + org)
		res, _ := o.run(ctx, "", 30*time.Second, "gh",
			"repo", "list", org,
			"--no-archived",
			"--json", "name,nameWithOwner,primaryLanguage,pushedAt",
			"--limit", "1000")
		if !res.OK() {
			logger.Warn(fmt.Sprintf("Failed to list repos for %s: %s", org, res.Message()))
			continue
		}

		var repos []ghRepo
		if err := json.Unmarshal([]byte(res.Stdout), &repos); err != nil {
			logger.Warn("Failed to parse repo list for " + org)
			continue
		}

		totalDiscovered += len(repos)
		for _, repo := range repos {
			lang := ""
			if repo.PrimaryLanguage != nil {
				lang = repo.PrimaryLanguage.Name
			}
			if existing, ok := o.Tracker.Repos[repo.NameWithOwner]; ok {
				existing.PrimaryLanguage = lang
				existing.PushedAt = strPtr(repo.PushedAt)
				continue
			}
			o.Tracker.Repos[repo.NameWithOwner] = &RepoRecord{
				DiscoveredAt:    timestamp,
				PrimaryLanguage: lang,
				PushedAt:        strPtr(repo.PushedAt),
			}
			newCount++
		}
		logger.Info(fmt.Sprintf("%s: %d repos found", org, len(repos)))
	}

	migrated := 0
	for _, info := range o.Tracker.Repos {
		if info.SkipReason == nil || !strings.HasPrefix(*info.SkipReason, "language:") {
			continue
		}
		lang := strings.TrimPrefix(*info.SkipReason, "language:")
		if SupportedLanguages[lang] {
			info.SkipReason = nil
			info.HasLockfile = nil
			migrated++
		}
	}
	if migrated > 0 {
		logger.Info(fmt.Sprintf("Migrated %d repos from unsupported to supported (will re-check lockfiles)", migrated))
	}

	o.Tracker.LastDiscovery = strPtr(timestamp)
	logger.Info(fmt.Sprintf("Discovery complete: %d total, %d new", totalDiscovered, newCount))
}

// CheckLockfiles probes the GitHub contents API for each unchecked repo
// and records whether it carries a scannable manifest.
func (o *Orchestrator) CheckLockfiles(ctx context.Context) {
	var unchecked []string
	for _, name := range sortedRepoNames(o.Tracker.Repos) {
		if o.Tracker.Repos[name].HasLockfile == nil {
			unchecked = append(unchecked, name)
		}
	}
	if len(unchecked) == 0 {
		return
	}

	logger.Info(fmt.Sprintf("Checking %d repos for lockfiles...", len(unchecked)))
	checked := 0

	for _, name := range unchecked {
		info := o.Tracker.Repos[name]
		lang := info.PrimaryLanguage

		if lang != "" && !SupportedLanguages[lang] {
			info.HasLockfile = boolPtr(false)
			info.SkipReason = strPtr("language:" + lang)
			checked++
			continue
		}

		checkFile, ok := languageManifests[lang]
		if !ok {
			checkFile = "package.json"
		}

		if o.repoHasFile(ctx, name, checkFile) {
			info.HasLockfile = boolPtr(true)
			info.SkipReason = nil
		} else {
			found := false
			for _, fallback := range manifestFallbacks[lang] {
				if o.repoHasFile(ctx, name, fallback) {
					found = true
					break
				}
			}
			if found {
				info.HasLockfile = boolPtr(true)
				info.SkipReason = nil
			} else {
				info.HasLockfile = boolPtr(false)
				reason, ok := noManifestSkipReasons[lang]
				if !ok {
					reason = "no_package_json"
				}
				info.SkipReason = strPtr(reason)
			}
		}

		checked++
		// Pace contents-API probes to stay inside secondary rate limits.
		if checked%20 == 0 {
			logger.Info(fmt.Sprintf("Checked %d/%d...", checked, len(unchecked)))
			time.Sleep(500 * time.Millisecond)
		}
	}

	logger.Info(fmt.Sprintf("Lockfile check complete: %d repos checked", checked))
}

func (o *Orchestrator) repoHasFile(ctx context.Context, repo, file string) bool {
	res, _ := o.run(ctx, "", 10*time.Second, "gh",
		"api", fmt.Sprintf("/repos/%s/contents/%s", repo, file),
		"--jq", ".name")
	return res.OK() && strings.TrimSpace(res.Stdout) != ""
}

// Candidates returns repos due for scanning: scannable, matching the
// optional only-list, and either never scanned or older than staleDays.
func (o *Orchestrator) Candidates(staleDays *int, only []string) []string {
	var candidates []string
	for _, name := range sortedRepoNames(o.Tracker.Repos) {
		info := o.Tracker.Repos[name]

		if only != nil && !containsString(only, name) {
			continue
		}
		if info.HasLockfile == nil || !*info.HasLockfile {
			continue
		}
		if info.LastScanned == nil {
			candidates = append(candidates, name)
			continue
		}
		if staleDays != nil {
			last, err := time.Parse(time.RFC3339, *info.LastScanned)
			if err != nil {
				continue
			}
			if int(time.Since(last).Hours()/24) >= *staleDays {
				candidates = append(candidates, name)
			}
		}
	}
	return candidates
}

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// runner is the exec seam; tests swap it out.
type runner func(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (exec.Result, error)
