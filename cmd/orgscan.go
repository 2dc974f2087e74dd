/*
Copyright © 2025 licscan authors
*/
package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/licscan/licscan/internal/orgscan"
	"github.com/licscan/licscan/internal/registry"
	"github.com/licscan/licscan/internal/report"
	"github.com/licscan/licscan/internal/scan"
	"github.com/licscan/licscan/pkg/config"
	"github.com/licscan/licscan/pkg/exitcode"
)

func newOrgScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgscan",
		Short: "Discover and scan repos across GitHub orgs",
		Long: `Orgscan discovers repositories across GitHub organizations, tracks
scan state in a tracker file, and scans repos that have never been
scanned or have gone stale. The tracker is saved after every repo so an
interrupted run resumes where it stopped.

Exits 0 when clean, 2 when any scanned repo has violations.`,
		Args: cobra.NoArgs,
		RunE: runOrgScan,
	}

	cmd.Flags().String("orgs", "", "Comma-separated GitHub orgs to discover")
	cmd.Flags().String("tracker", "", "Path to tracker JSON file")
	cmd.Flags().Int("stale-days", 0, "Re-scan repos not scanned in N days")
	cmd.Flags().Bool("discover-only", false, "Only discover repos, don't scan")
	cmd.Flags().String("only", "", "Comma-separated repos to scan (org/repo,...)")
	cmd.Flags().String("report", "", "Path to write a markdown report")

	return cmd
}

func runOrgScan(cmd *cobra.Command, _ []string) error {
	orgsFlag, _ := cmd.Flags().GetString("orgs")
	trackerPath, _ := cmd.Flags().GetString("tracker")
	staleDays, _ := cmd.Flags().GetInt("stale-days")
	discoverOnly, _ := cmd.Flags().GetBool("discover-only")
	onlyFlag, _ := cmd.Flags().GetString("only")
	reportPath, _ := cmd.Flags().GetString("report")

	appCfg, err := config.Load()
	if err != nil {
		return err
	}
	if trackerPath == "" {
		trackerPath = appCfg.OrgScan.TrackerPath
	}
	if staleDays == 0 {
		staleDays = appCfg.OrgScan.StaleDays
	}

	tracker, err := orgscan.LoadTracker(trackerPath)
	if err != nil {
		return err
	}

	classifyCfg, err := loadClassifyConfig(appCfg.Scan.ClassifyConfig)
	if err != nil {
		return err
	}

	client := registry.NewClient(appCfg.Registry.Timeout)
	scanner := scan.NewScanner(classifyCfg, client)
	orch := orgscan.NewOrchestrator(tracker, trackerPath, scanner, client)

	ctx := cmd.Context()

	if orgsFlag != "" {
		orch.Discover(ctx, splitCommaList(orgsFlag))
		orch.CheckLockfiles(ctx)
		if err := orgscan.SaveTracker(tracker, trackerPath); err != nil {
			return err
		}
	}

	if discoverOnly {
		if err := printJSON(cmd, orgscan.BuildOutput(tracker, nil, true)); err != nil {
			return err
		}
		return maybeReport(tracker, reportPath)
	}

	var stale *int
	if staleDays > 0 {
		stale = &staleDays
	}
	var only []string
	if onlyFlag != "" {
		only = splitCommaList(onlyFlag)
	}
	candidates := orch.Candidates(stale, only)

	session := orch.RunScans(ctx, candidates)
	if err := orgscan.SaveTracker(tracker, trackerPath); err != nil {
		return err
	}

	if err := printJSON(cmd, orgscan.BuildOutput(tracker, session, false)); err != nil {
		return err
	}
	if err := maybeReport(tracker, reportPath); err != nil {
		return err
	}

	if len(session.Violations) > 0 {
		return &exitError{code: exitcode.ViolationFound}
	}
	return nil
}

func maybeReport(tracker *orgscan.Tracker, path string) error {
	if path == "" {
		return nil
	}
	return report.Generate(tracker, path)
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
