package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licscan/licscan/internal/orgscan"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func pad(s string, width int) string     { return s + strings.Repeat(" ", width-len(s)) }
func leftPad(s string, width int) string { return strings.Repeat(" ", width-len(s)) + s }

func sampleTracker() *orgscan.Tracker {
	t := orgscan.NewTracker()
	t.Orgs = []string{"Acme", "other-org"}
	t.LastDiscovery = strPtr("2026-08-30T00:00:00Z")

	t.Repos["acme/app"] = &orgscan.RepoRecord{
		PrimaryLanguage: "TypeScript",
		HasLockfile:     boolPtr(true),
		LastScanned:     strPtr("2026-08-30T01:00:00Z"),
		LastResultSummary: &orgscan.ScanSummary{
			Permissive: 1200, WeakCopyleft: 3, Restrictive: 1, Unknown: 2,
			Total: 1206, HasViolations: true,
			PackageManager: "pnpm", IsMonorepo: true,
		},
		NonPermissive: []orgscan.PackageDetail{
			{Name: "gpl-thing", Version: "1.0.0", License: "GPL-3.0", Classification: "restrictive",
				Description: "does | things"},
			{Name: "axe-core", Version: "4.8.0", License: "MPL-2.0", Classification: "weak_copyleft",
				Alternative: "No permissive alternative for a11y testing", Removable: "No"},
		},
	}
	t.Repos["acme/lib"] = &orgscan.RepoRecord{
		PrimaryLanguage: "Rust",
		HasLockfile:     boolPtr(true),
		LastScanned:     strPtr("2026-08-29T00:00:00Z"),
		LastResultSummary: &orgscan.ScanSummary{
			Permissive: 40, Total: 40, PackageManager: "cargo",
		},
	}
	t.Repos["acme/broken"] = &orgscan.RepoRecord{
		PrimaryLanguage: "JavaScript",
		HasLockfile:     boolPtr(true),
		LastScanned:     strPtr("2026-08-28T00:00:00Z"),
		ScanError:       strPtr("ERR_PNPM_OUTDATED_LOCKFILE"),
	}
	t.Repos["acme/legacy"] = &orgscan.RepoRecord{
		PrimaryLanguage: "Ruby",
		HasLockfile:     boolPtr(false),
		SkipReason:      strPtr("language:Ruby"),
	}
	return t
}

func TestRenderFullReport(t *testing.T) {
	out, err := Render(sampleTracker())
	require.NoError(t, err)

	assert.Contains(t, out, "# Org-Wide License Compliance Report")
	assert.Contains(t, out, "**Verdict: FAIL: restrictive licenses (GPL/AGPL/SSPL) detected**")
	assert.Contains(t, out, "**Orgs:** Acme, other-org")

	// Notable and clean repos land in separate org-grouped sections.
	assert.Contains(t, out, "## Repos Needing Attention")
	assert.Contains(t, out, "### acme")
	assert.Contains(t, out, "| app ")
	assert.Contains(t, out, "## Clean Repos")
	assert.Contains(t, out, "1 repos with only permissive licenses.")
	assert.Contains(t, out, "| lib ")

	// Errors get classified, not dumped raw.
	assert.Contains(t, out, "## Scan Errors")
	assert.Contains(t, out, "Outdated lockfile (pnpm-lock.yaml out of sync with package.json)")

	assert.Contains(t, out, "## Unsupported Languages")
	assert.Contains(t, out, "| Ruby ")

	assert.Contains(t, out, "## Action Items")
	assert.Contains(t, out, "1. **1 restrictive licenses**")

	// Appendix groups packages by classification with escaped pipes.
	assert.Contains(t, out, "## Appendix: Package Detail")
	assert.Contains(t, out, "### acme/app")
	assert.Contains(t, out, "#### Restrictive (1)")
	assert.Contains(t, out, "#### Weak Copyleft (1)")
	assert.Contains(t, out, `does \| things`)
	assert.Contains(t, out, "**Monorepo:** Yes")
	assert.Contains(t, out, "1,206")
}

func TestRenderVerdicts(t *testing.T) {
	tests := []struct {
		summary orgscan.ScanSummary
		want    string
	}{
		{orgscan.ScanSummary{Restrictive: 1}, "FAIL"},
		{orgscan.ScanSummary{Unknown: 21}, "REVIEW NEEDED"},
		{orgscan.ScanSummary{Unknown: 5}, "PASS (with minor unknowns to review)"},
		{orgscan.ScanSummary{Permissive: 10, Total: 10}, "PASS: all dependencies"},
	}
	for _, tt := range tests {
		tracker := orgscan.NewTracker()
		tracker.Orgs = []string{"acme"}
		summary := tt.summary
		tracker.Repos["acme/app"] = &orgscan.RepoRecord{
			HasLockfile:       boolPtr(true),
			LastScanned:       strPtr("2026-08-30T01:00:00Z"),
			LastResultSummary: &summary,
		}
		out, err := Render(tracker)
		require.NoError(t, err)
		assert.Contains(t, out, tt.want)
	}
}

func TestGenerateWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "compliance.md")
	require.NoError(t, Generate(sampleTracker(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Org-Wide License Compliance Report"))
}

func TestRenderTableAlignment(t *testing.T) {
	out := renderTable(
		[]string{"Name", "Count"},
		"lr",
		[][]string{{"alpha", "1"}, {"a-much-longer-name", "1,234"}},
	)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	// Every row is padded to the same width.
	for _, line := range lines[1:] {
		assert.Equal(t, len(lines[0]), len(line), line)
	}
	assert.Contains(t, lines[1], ":|", "right-aligned column keeps its marker")
	assert.True(t, strings.HasPrefix(lines[1], "|:"))
	assert.Equal(t, "| "+pad("alpha", 18)+" | "+leftPad("1", 5)+" |", lines[2])
	assert.Contains(t, lines[3], "| a-much-longer-name | 1,234 |")
}

func TestCommaFormatting(t *testing.T) {
	assert.Equal(t, "0", comma(0))
	assert.Equal(t, "999", comma(999))
	assert.Equal(t, "1,000", comma(1000))
	assert.Equal(t, "1,234,567", comma(1234567))
}
