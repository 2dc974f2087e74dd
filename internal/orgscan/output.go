package orgscan

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/licscan/licscan/internal/scan"
)

// Counts breaks down tracker repos by status.
type Counts struct {
	TotalRepos     int `json:"total_repos"`
	ScannableRepos int `json:"scannable_repos"`
	SkippedRepos   int `json:"skipped_repos"`
	ScannedRepos   int `json:"scanned_repos"`
	ErrorRepos     int `json:"error_repos"`
	UnscannedRepos int `json:"unscanned_repos"`
}

// LanguageCount pairs a primary language with its repo count.
type LanguageCount struct {
	Language string
	Count    int
}

// LanguageBreakdown marshals as a JSON object whose keys keep the
// descending-count order, so consumers see the ranking directly.
type LanguageBreakdown []LanguageCount

func (lb LanguageBreakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, lc := range lb {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(lc.Language)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		count, err := json.Marshal(lc.Count)
		if err != nil {
			return nil, err
		}
		buf.Write(count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Output is the machine-readable result of an orgscan run.
type Output struct {
	Orgs                []string          `json:"orgs"`
	LastDiscovery       *string           `json:"last_discovery"`
	DiscoverOnly        bool              `json:"discover_only"`
	Counts              Counts            `json:"counts"`
	LanguageBreakdown   LanguageBreakdown `json:"language_breakdown"`
	AggregateLicenses   scan.Summary      `json:"aggregate_licenses"`
	ReposWithViolations []string          `json:"repos_with_violations"`
	ReposWithUnknowns   []string          `json:"repos_with_unknowns"`
	ErrorRepos          map[string]string `json:"error_repos"`
	UnscannedRepos      []string          `json:"unscanned_repos"`
	ScanSession         *Session          `json:"scan_session,omitempty"`
}

// BuildOutput aggregates tracker state, and the session when scanning
// actually ran, into the final output payload.
func BuildOutput(t *Tracker, session *Session, discoverOnly bool) *Output {
	out := &Output{
		Orgs:                t.Orgs,
		LastDiscovery:       t.LastDiscovery,
		DiscoverOnly:        discoverOnly,
		ReposWithViolations: []string{},
		ReposWithUnknowns:   []string{},
		ErrorRepos:          map[string]string{},
		UnscannedRepos:      []string{},
	}
	if !discoverOnly {
		out.ScanSession = session
	}

	languageCounts := map[string]int{}

	for _, name := range sortedRepoNames(t.Repos) {
		info := t.Repos[name]

		scannable := info.HasLockfile != nil && *info.HasLockfile
		if scannable {
			out.Counts.ScannableRepos++
		}
		if info.SkipReason != nil && *info.SkipReason != "" {
			out.Counts.SkippedRepos++
		}
		switch {
		case info.ScanError != nil && *info.ScanError != "":
			out.Counts.ErrorRepos++
			out.ErrorRepos[name] = *info.ScanError
		case info.LastScanned != nil:
			out.Counts.ScannedRepos++
		}
		if scannable && info.LastScanned == nil {
			out.Counts.UnscannedRepos++
			out.UnscannedRepos = append(out.UnscannedRepos, name)
		}

		lang := info.PrimaryLanguage
		if lang == "" {
			lang = "Unknown"
		}
		languageCounts[lang]++

		if s := info.LastResultSummary; s != nil {
			out.AggregateLicenses.Permissive += s.Permissive
			out.AggregateLicenses.WeakCopyleft += s.WeakCopyleft
			out.AggregateLicenses.Restrictive += s.Restrictive
			out.AggregateLicenses.Custom += s.Custom
			out.AggregateLicenses.Unknown += s.Unknown
			out.AggregateLicenses.Total += s.Total
			if s.HasViolations {
				out.ReposWithViolations = append(out.ReposWithViolations, name)
			}
			if s.Unknown > 0 {
				out.ReposWithUnknowns = append(out.ReposWithUnknowns, name)
			}
		}
	}
	out.Counts.TotalRepos = len(t.Repos)
	out.LanguageBreakdown = rankLanguages(languageCounts)

	return out
}

// rankLanguages sorts counts descending, breaking ties alphabetically.
func rankLanguages(counts map[string]int) LanguageBreakdown {
	breakdown := make(LanguageBreakdown, 0, len(counts))
	for lang, count := range counts {
		breakdown = append(breakdown, LanguageCount{Language: lang, Count: count})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Count != breakdown[j].Count {
			return breakdown[i].Count > breakdown[j].Count
		}
		return breakdown[i].Language < breakdown[j].Language
	})
	return breakdown
}
