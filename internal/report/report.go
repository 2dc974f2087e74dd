// Package report renders the org-wide compliance report as markdown
// from tracker state: verdict, aggregate summary, per-org repo tables,
// scan errors, and a package-level appendix.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aymerick/raymond"

	"github.com/licscan/licscan/internal/orgscan"
	"github.com/licscan/licscan/pkg/logger"
)

const reportTemplate = `# Org-Wide License Compliance Report

**Verdict: {{verdict}}**

**Generated:** {{generated}}
**Orgs:** {{orgList}}
**Total repos:** {{totalRepos}} | **Scannable repos:** {{scannableRepos}} | **Scanned:** {{scannedRepos}} | **Errors:** {{errorRepos}} | **Skipped:** {{skippedRepos}}

## Aggregate License Summary

{{{aggregateTable}}}
{{#if notableOrgs}}
## Repos Needing Attention

{{#each notableOrgs}}
### {{name}}

{{{table}}}
{{/each}}
{{/if}}
{{#if cleanOrgs}}
## Clean Repos

{{cleanCount}} repos with only permissive licenses.

{{#each cleanOrgs}}
### {{name}}

{{{table}}}
{{/each}}
{{/if}}
{{#if errorTable}}
## Scan Errors

{{{errorTable}}}
{{/if}}
{{#if unsupportedTable}}
## Unsupported Languages

Ranked by repo count. Informs which ecosystem to add license scanning support for next.

{{{unsupportedTable}}}
{{/if}}
## Action Items

{{#each actionItems}}
{{this}}
{{/each}}
{{#if appendix}}
---

## Appendix: Package Detail

{{#each appendix}}
### {{name}}

**Package Manager:** {{packageManager}} | **Monorepo:** {{monorepo}} | **Total Dependencies:** {{total}}

{{#each groups}}
#### {{label}} ({{count}})

{{{table}}}
{{/each}}
{{/each}}
{{/if}}`

// reportLanguageNoise lists languages excluded from the unsupported
// table: config, docs, and notebook formats that never carry a
// dependency tree worth scanning.
var reportLanguageNoise = map[string]bool{
	"Unknown": true, "HCL": true, "Shell": true, "MDX": true,
	"TeX": true, "Jsonnet": true, "Dockerfile": true, "CSS": true,
	"Jupyter Notebook": true,
}

type scannedRepo struct {
	name    string
	record  *orgscan.RepoRecord
	summary *orgscan.ScanSummary
}

// Generate writes the markdown report to reportPath.
func Generate(t *orgscan.Tracker, reportPath string) error {
	rendered, err := Render(t)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(reportPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(reportPath, []byte(rendered), 0o644); err != nil {
		return err
	}
	logger.Info("Report written to " + reportPath)
	return nil
}

// Render produces the report markdown without touching the filesystem.
func Render(t *orgscan.Tracker) (string, error) {
	out, err := raymond.Render(reportTemplate, buildData(t, time.Now()))
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}

func buildData(t *orgscan.Tracker, now time.Time) map[string]interface{} {
	var scanned []scannedRepo
	var errored []scannedRepo
	scannableCount := 0
	skippedCount := 0
	langs := map[string]int{}

	for _, name := range sortedNames(t.Repos) {
		info := t.Repos[name]
		if info.HasLockfile != nil && *info.HasLockfile {
			scannableCount++
		}
		if info.SkipReason != nil && *info.SkipReason != "" {
			skippedCount++
		}
		lang := info.PrimaryLanguage
		if lang == "" {
			lang = "Unknown"
		}
		langs[lang]++

		switch {
		case info.ScanError != nil && *info.ScanError != "":
			errored = append(errored, scannedRepo{name: name, record: info})
		case info.LastScanned != nil && info.LastResultSummary != nil:
			scanned = append(scanned, scannedRepo{name: name, record: info, summary: info.LastResultSummary})
		}
	}

	total := orgscan.ScanSummary{}
	for _, r := range scanned {
		total.Permissive += r.summary.Permissive
		total.WeakCopyleft += r.summary.WeakCopyleft
		total.Restrictive += r.summary.Restrictive
		total.Custom += r.summary.Custom
		total.Unknown += r.summary.Unknown
		total.Total += r.summary.Total
	}

	var notable, clean []scannedRepo
	for _, r := range scanned {
		s := r.summary
		if s.WeakCopyleft > 0 || s.Restrictive > 0 || s.Custom > 0 || s.Unknown > 0 {
			notable = append(notable, r)
		} else {
			clean = append(clean, r)
		}
	}
	byTotalDesc := func(repos []scannedRepo) {
		sort.SliceStable(repos, func(i, j int) bool {
			return repos[i].summary.Total > repos[j].summary.Total
		})
	}
	byTotalDesc(notable)
	byTotalDesc(clean)

	data := map[string]interface{}{
		"verdict":        verdict(total),
		"generated":      now.Format("2006-01-02 15:04"),
		"orgList":        strings.Join(t.Orgs, ", "),
		"totalRepos":     len(t.Repos),
		"scannableRepos": scannableCount,
		"scannedRepos":   len(scanned),
		"errorRepos":     len(errored),
		"skippedRepos":   skippedCount,
		"aggregateTable": aggregateTable(total),
		"notableOrgs":    notableSections(t.Orgs, notable),
		"cleanCount":     len(clean),
		"cleanOrgs":      cleanSections(t.Orgs, clean),
		"errorTable":     errorTable(errored),
		"actionItems":    actionItems(total, notable, errored, unsupported(langs)),
		"appendix":       appendix(notable),
	}
	if table := unsupportedTable(unsupported(langs)); table != "" {
		data["unsupportedTable"] = table
	}
	return data
}

func verdict(total orgscan.ScanSummary) string {
	switch {
	case total.Restrictive > 0:
		return "FAIL: restrictive licenses (GPL/AGPL/SSPL) detected"
	case total.Unknown > 20:
		return "REVIEW NEEDED: no restrictive licenses, but significant unknowns"
	case total.Unknown > 0:
		return "PASS (with minor unknowns to review)"
	default:
		return "PASS: all dependencies use permissive or documented licenses"
	}
}

func aggregateTable(total orgscan.ScanSummary) string {
	restrictiveStatus := "OK"
	if total.Restrictive > 0 {
		restrictiveStatus = "HIGH"
	}
	return renderTable(
		[]string{"Classification", "Count", "Status"},
		"lrl",
		[][]string{
			{"Permissive", comma(total.Permissive), "OK"},
			{"Weak Copyleft", comma(total.WeakCopyleft), "MEDIUM"},
			{"Restrictive", comma(total.Restrictive), restrictiveStatus},
			{"Custom", comma(total.Custom), "Review"},
			{"Unknown", comma(total.Unknown), "Review"},
			{"**Total**", "**" + comma(total.Total) + "**", ""},
		})
}

// groupByOrg splits repos into per-org sections following the tracker's
// org order, matching org names case-insensitively.
func groupByOrg(orgs []string, repos []scannedRepo, render func([]scannedRepo) string) []map[string]interface{} {
	byOrg := map[string][]scannedRepo{}
	display := map[string]string{}
	for _, r := range repos {
		org := repoOrg(r.name)
		key := strings.ToLower(org)
		byOrg[key] = append(byOrg[key], r)
		display[key] = org
	}

	var sections []map[string]interface{}
	for _, org := range orgs {
		key := strings.ToLower(org)
		group := byOrg[key]
		if len(group) == 0 {
			continue
		}
		name := display[key]
		if name == "" {
			name = org
		}
		sections = append(sections, map[string]interface{}{
			"name":  name,
			"table": render(group),
		})
	}
	return sections
}

func notableSections(orgs []string, notable []scannedRepo) []map[string]interface{} {
	return groupByOrg(orgs, notable, func(group []scannedRepo) string {
		rows := make([][]string, 0, len(group))
		for _, r := range group {
			s := r.summary
			rows = append(rows, []string{
				repoShort(r.name), packageManager(r), comma(s.Total),
				fmt.Sprint(s.WeakCopyleft), fmt.Sprint(s.Restrictive),
				fmt.Sprint(s.Custom), fmt.Sprint(s.Unknown),
				shortDate(r.record.LastScanned),
			})
		}
		return renderTable(
			[]string{"Repo", "Package Manager", "Total", "Weak Copyleft", "Restrictive", "Custom", "Unknown", "Last Scanned"},
			"llrrrrrl", rows)
	})
}

func cleanSections(orgs []string, clean []scannedRepo) []map[string]interface{} {
	return groupByOrg(orgs, clean, func(group []scannedRepo) string {
		rows := make([][]string, 0, len(group))
		for _, r := range group {
			rows = append(rows, []string{
				repoShort(r.name), packageManager(r),
				comma(r.summary.Total), shortDate(r.record.LastScanned),
			})
		}
		return renderTable(
			[]string{"Repo", "Package Manager", "Total Dependencies", "Last Scanned"},
			"llrl", rows)
	})
}

func errorTable(errored []scannedRepo) string {
	if len(errored) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(errored))
	for _, r := range errored {
		rows = append(rows, []string{r.name, orgscan.ClassifyError(*r.record.ScanError)})
	}
	return renderTable([]string{"Repo", "Error"}, "ll", rows)
}

type langCount struct {
	lang  string
	count int
}

func unsupported(langs map[string]int) []langCount {
	var out []langCount
	for lang, count := range langs {
		if orgscan.SupportedLanguages[lang] || reportLanguageNoise[lang] {
			continue
		}
		out = append(out, langCount{lang: lang, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].lang < out[j].lang
	})
	return out
}

func unsupportedTable(langs []langCount) string {
	if len(langs) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(langs))
	for _, lc := range langs {
		rows = append(rows, []string{lc.lang, fmt.Sprint(lc.count)})
	}
	return renderTable([]string{"Language", "Repos"}, "lr", rows)
}

func actionItems(total orgscan.ScanSummary, notable []scannedRepo, errored []scannedRepo, langs []langCount) []string {
	var items []string
	add := func(format string, args ...interface{}) {
		items = append(items, fmt.Sprintf("%d. "+format, append([]interface{}{len(items) + 1}, args...)...))
	}

	if total.Restrictive > 0 {
		add("**%d restrictive licenses** must be replaced or receive legal approval", total.Restrictive)
	}
	if total.Unknown > 0 {
		reposWithUnknowns := 0
		for _, r := range notable {
			if r.summary.Unknown > 0 {
				reposWithUnknowns++
			}
		}
		add("**%d unknown licenses** across %d repos need manual review or config overrides", total.Unknown, reposWithUnknowns)
	}
	if total.WeakCopyleft > 0 {
		add("**%d weak copyleft** (MPL-2.0, LGPL) are likely acceptable but worth documenting", total.WeakCopyleft)
	}
	if len(errored) > 0 {
		add("**%d scan errors**: repos with outdated lockfiles, missing lockfiles, or install failures", len(errored))
	}
	if len(langs) > 0 {
		add("**%s (%d repos)** is the largest unsupported ecosystem, add support next", langs[0].lang, langs[0].count)
	}
	return items
}

// appendix builds per-repo package detail sections for notable repos
// that carry non-permissive package records.
func appendix(notable []scannedRepo) []map[string]interface{} {
	classOrder := []string{"restrictive", "weak_copyleft", "custom", "unknown"}
	classLabels := map[string]string{
		"restrictive":   "Restrictive",
		"weak_copyleft": "Weak Copyleft",
		"custom":        "Custom",
		"unknown":       "Unknown",
	}

	var sections []map[string]interface{}
	for _, r := range notable {
		pkgs := r.record.NonPermissive
		if len(pkgs) == 0 {
			continue
		}

		byClass := map[string][]orgscan.PackageDetail{}
		for _, pkg := range pkgs {
			byClass[pkg.Classification] = append(byClass[pkg.Classification], pkg)
		}

		var groups []map[string]interface{}
		for _, cls := range classOrder {
			clsPkgs := byClass[cls]
			if len(clsPkgs) == 0 {
				continue
			}
			sort.Slice(clsPkgs, func(i, j int) bool { return clsPkgs[i].Name < clsPkgs[j].Name })

			rows := make([][]string, 0, len(clsPkgs))
			for _, pkg := range clsPkgs {
				rows = append(rows, []string{
					orValue(pkg.Name, "?"), orValue(pkg.Version, "?"), orValue(pkg.License, "?"),
					escapePipes(orValue(pkg.Description, "?")),
					escapePipes(orValue(pkg.Alternative, "Needs review")),
					orValue(pkg.Removable, "Needs review"),
				})
			}
			groups = append(groups, map[string]interface{}{
				"label": classLabels[cls],
				"count": len(clsPkgs),
				"table": renderTable(
					[]string{"Package", "Version", "License", "Purpose", "Permissive Alternative", "Removable?"},
					"llllll", rows),
			})
		}

		monorepo := "No"
		if r.summary.IsMonorepo {
			monorepo = "Yes"
		}
		sections = append(sections, map[string]interface{}{
			"name":           r.name,
			"packageManager": packageManager(r),
			"monorepo":       monorepo,
			"total":          comma(r.summary.Total),
			"groups":         groups,
		})
	}
	return sections
}

func packageManager(r scannedRepo) string {
	if r.summary != nil && r.summary.PackageManager != "" {
		return r.summary.PackageManager
	}
	if r.record.PackageManager != nil && *r.record.PackageManager != "" {
		return *r.record.PackageManager
	}
	return "?"
}

func shortDate(iso *string) string {
	if iso == nil || *iso == "" {
		return "never"
	}
	parsed, err := time.Parse(time.RFC3339, *iso)
	if err != nil {
		return "?"
	}
	return parsed.Format("2006-01-02")
}

func repoOrg(name string) string {
	if org, _, ok := strings.Cut(name, "/"); ok {
		return org
	}
	return ""
}

func repoShort(name string) string {
	if _, short, ok := strings.Cut(name, "/"); ok {
		return short
	}
	return name
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func orValue(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// comma formats an integer with thousands separators.
func comma(n int) string {
	s := fmt.Sprint(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func sortedNames(repos map[string]*orgscan.RepoRecord) []string {
	names := make([]string, 0, len(repos))
	for name := range repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
