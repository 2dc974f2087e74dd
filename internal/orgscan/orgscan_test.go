package orgscan

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licscan/licscan/internal/exec"
)

func stubRunner(responses map[string]exec.Result) runner {
	return func(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (exec.Result, error) {
		key := strings.Join(append([]string{name}, args...), " ")
		if res, ok := responses[key]; ok {
			if res.ExitCode != 0 {
				return res, errors.New(res.Stderr)
			}
			return res, nil
		}
		return exec.Result{ExitCode: 1, Stderr: "no such file"}, errors.New("no such file")
	}
}

func repoListJSON(t *testing.T, repos []ghRepo) string {
	t.Helper()
	data, err := json.Marshal(repos)
	require.NoError(t, err)
	return string(data)
}

func TestDiscoverMergesRepos(t *testing.T) {
	tracker := NewTracker()
	tracker.Repos["acme/existing"] = &RepoRecord{
		DiscoveredAt:    "2026-01-01T00:00:00Z",
		PrimaryLanguage: "JavaScript",
	}

	listing := repoListJSON(t, []ghRepo{
		{NameWithOwner: "acme/existing", PrimaryLanguage: &struct {
			Name string `json:"name"`
		}{Name: "TypeScript"}, PushedAt: "2026-08-01T00:00:00Z"},
		{NameWithOwner: "acme/newrepo", PrimaryLanguage: &struct {
			Name string `json:"name"`
		}{Name: "Rust"}, PushedAt: "2026-08-02T00:00:00Z"},
		{NameWithOwner: "acme/nolang", PushedAt: "2026-08-03T00:00:00Z"},
	})

	o := NewOrchestrator(tracker, "", nil, nil)
	o.run = stubRunner(map[string]exec.Result{
		"gh repo list acme --no-archived --json name,nameWithOwner,primaryLanguage,pushedAt --limit 1000": {Stdout: listing},
	})

	o.Discover(context.Background(), []string{"acme"})

	assert.Equal(t, []string{"acme"}, tracker.Orgs)
	require.NotNil(t, tracker.LastDiscovery)
	require.Len(t, tracker.Repos, 3)

	existing := tracker.Repos["acme/existing"]
	assert.Equal(t, "TypeScript", existing.PrimaryLanguage)
	assert.Equal(t, "2026-01-01T00:00:00Z", existing.DiscoveredAt)

	assert.Equal(t, "Rust", tracker.Repos["acme/newrepo"].PrimaryLanguage)
	assert.Equal(t, "", tracker.Repos["acme/nolang"].PrimaryLanguage)
}

func TestDiscoverMigratesNowSupportedLanguages(t *testing.T) {
	tracker := NewTracker()
	tracker.Repos["acme/oldgo"] = &RepoRecord{
		PrimaryLanguage: "Go",
		HasLockfile:     boolPtr(false),
		SkipReason:      strPtr("language:Go"),
	}
	tracker.Repos["acme/haskell"] = &RepoRecord{
		PrimaryLanguage: "Haskell",
		HasLockfile:     boolPtr(false),
		SkipReason:      strPtr("language:Haskell"),
	}

	o := NewOrchestrator(tracker, "", nil, nil)
	o.run = stubRunner(map[string]exec.Result{
		"gh repo list acme --no-archived --json name,nameWithOwner,primaryLanguage,pushedAt --limit 1000": {Stdout: "[]"},
	})
	o.Discover(context.Background(), []string{"acme"})

	assert.Nil(t, tracker.Repos["acme/oldgo"].SkipReason)
	assert.Nil(t, tracker.Repos["acme/oldgo"].HasLockfile)
	require.NotNil(t, tracker.Repos["acme/haskell"].SkipReason)
	assert.Equal(t, "language:Haskell", *tracker.Repos["acme/haskell"].SkipReason)
}

func TestCheckLockfiles(t *testing.T) {
	tracker := NewTracker()
	tracker.Repos["acme/js"] = &RepoRecord{PrimaryLanguage: "TypeScript"}
	tracker.Repos["acme/py"] = &RepoRecord{PrimaryLanguage: "Python"}
	tracker.Repos["acme/bare-rust"] = &RepoRecord{PrimaryLanguage: "Rust"}
	tracker.Repos["acme/docs"] = &RepoRecord{PrimaryLanguage: "HTML"}
	tracker.Repos["acme/done"] = &RepoRecord{PrimaryLanguage: "Rust", HasLockfile: boolPtr(true)}

	o := NewOrchestrator(tracker, "", nil, nil)
	o.run = stubRunner(map[string]exec.Result{
		"gh api /repos/acme/js/contents/package.json --jq .name": {Stdout: "package.json"},
		// pyproject.toml absent, poetry.lock fallback hits
		"gh api /repos/acme/py/contents/poetry.lock --jq .name": {Stdout: "poetry.lock"},
	})

	o.CheckLockfiles(context.Background())

	assert.True(t, *tracker.Repos["acme/js"].HasLockfile)
	assert.Nil(t, tracker.Repos["acme/js"].SkipReason)

	assert.True(t, *tracker.Repos["acme/py"].HasLockfile)

	assert.False(t, *tracker.Repos["acme/bare-rust"].HasLockfile)
	assert.Equal(t, "no_cargo_toml", *tracker.Repos["acme/bare-rust"].SkipReason)

	assert.False(t, *tracker.Repos["acme/docs"].HasLockfile)
	assert.Equal(t, "language:HTML", *tracker.Repos["acme/docs"].SkipReason)

	// Already-checked repos are untouched.
	assert.Nil(t, tracker.Repos["acme/done"].SkipReason)
}

func TestCandidates(t *testing.T) {
	old := time.Now().UTC().Add(-40 * 24 * time.Hour).Format(time.RFC3339)
	recent := time.Now().UTC().Add(-2 * 24 * time.Hour).Format(time.RFC3339)

	tracker := NewTracker()
	tracker.Repos["acme/fresh"] = &RepoRecord{HasLockfile: boolPtr(true)}
	tracker.Repos["acme/stale"] = &RepoRecord{HasLockfile: boolPtr(true), LastScanned: strPtr(old)}
	tracker.Repos["acme/current"] = &RepoRecord{HasLockfile: boolPtr(true), LastScanned: strPtr(recent)}
	tracker.Repos["acme/nolock"] = &RepoRecord{HasLockfile: boolPtr(false)}
	tracker.Repos["acme/unchecked"] = &RepoRecord{}

	o := NewOrchestrator(tracker, "", nil, nil)

	assert.Equal(t, []string{"acme/fresh"}, o.Candidates(nil, nil))

	staleDays := 30
	assert.Equal(t, []string{"acme/fresh", "acme/stale"}, o.Candidates(&staleDays, nil))

	assert.Equal(t, []string{"acme/stale"},
		o.Candidates(&staleDays, []string{"acme/stale", "acme/nolock"}))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"ERR_PNPM_OUTDATED_LOCKFILE something", "Outdated lockfile (pnpm-lock.yaml out of sync with package.json)"},
		{"error YN0050: lockfile would change", "Outdated lockfile (yarn.lock out of sync)"},
		{"install failed: corepack prepare failed", "Corepack version conflict (packageManager field requires different version)"},
		{"Timeout after 900s: gh repo clone", "Install timed out (likely large monorepo)"},
		{"clone failed: repository not found", "Failed to clone repo"},
		{"install failed: exit status 1", "Dependency install failed"},
		{"no packages found", "No packages found (deps installed but license extraction returned empty)"},
		{"dependencies not installed, run `pnpm install` first", "Dependencies not installed"},
		{"Resolving 12 unknown licenses", "Scan stalled during license resolution (likely timeout)"},
		{"no package manager detected in cloned repo", "No lockfile detected in repo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyError(tt.raw), tt.raw)
	}

	long := strings.Repeat("x", 300) + "\nsecond line"
	got := ClassifyError(long)
	assert.Len(t, got, 120)
	assert.NotContains(t, got, "\n")
}

func TestNotesFor(t *testing.T) {
	note, ok := NotesFor("axe-core")
	require.True(t, ok)
	assert.Contains(t, note.Removable, "industry standard")

	note, ok = NotesFor("@reown/appkit")
	require.True(t, ok)
	assert.Contains(t, note.Alternative, "First-party")

	_, ok = NotesFor("left-pad")
	assert.False(t, ok)
}

func TestBuildOutput(t *testing.T) {
	tracker := NewTracker()
	tracker.Orgs = []string{"acme"}
	tracker.LastDiscovery = strPtr("2026-08-30T00:00:00Z")
	tracker.Repos["acme/app"] = &RepoRecord{
		PrimaryLanguage: "TypeScript",
		HasLockfile:     boolPtr(true),
		LastScanned:     strPtr("2026-08-30T01:00:00Z"),
		LastResultSummary: &ScanSummary{
			Permissive: 90, Restrictive: 2, Unknown: 3, Total: 95,
			HasViolations: true,
		},
	}
	tracker.Repos["acme/tool"] = &RepoRecord{
		PrimaryLanguage: "Rust",
		HasLockfile:     boolPtr(true),
	}
	tracker.Repos["acme/broken"] = &RepoRecord{
		PrimaryLanguage: "TypeScript",
		HasLockfile:     boolPtr(true),
		LastScanned:     strPtr("2026-08-30T01:00:00Z"),
		ScanError:       strPtr("install failed"),
	}
	tracker.Repos["acme/docs"] = &RepoRecord{
		PrimaryLanguage: "",
		HasLockfile:     boolPtr(false),
		SkipReason:      strPtr("no_package_json"),
	}

	session := &Session{Scanned: 1, Violations: []string{"acme/app"}}
	out := BuildOutput(tracker, session, false)

	assert.Equal(t, 4, out.Counts.TotalRepos)
	assert.Equal(t, 3, out.Counts.ScannableRepos)
	assert.Equal(t, 1, out.Counts.SkippedRepos)
	assert.Equal(t, 1, out.Counts.ScannedRepos)
	assert.Equal(t, 1, out.Counts.ErrorRepos)
	assert.Equal(t, []string{"acme/tool"}, out.UnscannedRepos)

	assert.Equal(t, 90, out.AggregateLicenses.Permissive)
	assert.Equal(t, 2, out.AggregateLicenses.Restrictive)
	assert.Equal(t, 95, out.AggregateLicenses.Total)
	assert.Equal(t, []string{"acme/app"}, out.ReposWithViolations)
	assert.Equal(t, []string{"acme/app"}, out.ReposWithUnknowns)
	assert.Equal(t, "install failed", out.ErrorRepos["acme/broken"])
	require.NotNil(t, out.ScanSession)
	assert.Equal(t, 1, out.ScanSession.Scanned)

	discovery := BuildOutput(tracker, nil, true)
	assert.True(t, discovery.DiscoverOnly)
	assert.Nil(t, discovery.ScanSession)
}

func TestLanguageBreakdownOrderedJSON(t *testing.T) {
	lb := rankLanguages(map[string]int{"Rust": 2, "TypeScript": 5, "Go": 2})
	data, err := json.Marshal(lb)
	require.NoError(t, err)
	assert.Equal(t, `{"TypeScript":5,"Go":2,"Rust":2}`, string(data))
}

func TestTrackerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracker.json")

	tracker := NewTracker()
	tracker.Orgs = []string{"acme"}
	tracker.Repos["acme/app"] = &RepoRecord{
		DiscoveredAt:    "2026-08-30T00:00:00Z",
		PrimaryLanguage: "TypeScript",
		HasLockfile:     boolPtr(true),
		NonPermissive: []PackageDetail{
			{Name: "axe-core", License: "MPL-2.0", Classification: "weak_copyleft"},
		},
	}

	require.NoError(t, SaveTracker(tracker, path))

	loaded, err := LoadTracker(path)
	require.NoError(t, err)
	assert.Equal(t, tracker.Orgs, loaded.Orgs)
	require.Contains(t, loaded.Repos, "acme/app")
	assert.True(t, *loaded.Repos["acme/app"].HasLockfile)
	require.Len(t, loaded.Repos["acme/app"].NonPermissive, 1)
	assert.Equal(t, "axe-core", loaded.Repos["acme/app"].NonPermissive[0].Name)

	missing, err := LoadTracker(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, missing.Repos)
}
