/*
Copyright © 2025 licscan authors
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/licscan/licscan/internal/license"
	"github.com/licscan/licscan/internal/registry"
	"github.com/licscan/licscan/internal/scan"
	"github.com/licscan/licscan/pkg/config"
	"github.com/licscan/licscan/pkg/exitcode"
)

func newScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a project's dependency licenses",
		Long: `Scan extracts the full dependency tree of a local project or a GitHub
repo, classifies every license, and prints the result as JSON.

Exits 0 when clean, 2 when restrictive licenses are found.`,
		Args: cobra.NoArgs,
		RunE: runScan,
	}

	cmd.Flags().String("path", ".", "Path to the project to scan")
	cmd.Flags().String("repo", "", "GitHub repo to clone and scan (org/repo or URL)")
	cmd.Flags().String("ref", "", "Branch or tag to check out when cloning")
	cmd.Flags().Bool("prod-only", false, "Exclude development dependencies")
	cmd.Flags().String("config", "", "Path to a classification config JSON file")
	cmd.Flags().Bool("verbose", false, "Include all classified packages in the output")

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("path")
	repo, _ := cmd.Flags().GetString("repo")
	ref, _ := cmd.Flags().GetString("ref")
	prodOnly, _ := cmd.Flags().GetBool("prod-only")
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	appCfg, err := config.Load()
	if err != nil {
		return err
	}
	if !prodOnly {
		prodOnly = appCfg.Scan.ProdOnly
	}
	if configPath == "" {
		configPath = appCfg.Scan.ClassifyConfig
	}

	classifyCfg, err := loadClassifyConfig(configPath)
	if err != nil {
		return err
	}

	scanner := scan.NewScanner(classifyCfg, registry.NewClient(appCfg.Registry.Timeout))
	opts := scan.Options{
		ProdOnly: prodOnly,
		Verbose:  verbose,
		Timeout:  appCfg.Scan.CommandTimeout,
	}

	ctx := cmd.Context()
	if repo != "" {
		dir, pm, cloneErr := scan.CloneAndInstall(ctx, repo, ref)
		if cloneErr != nil {
			return emitScanError(cmd, &scan.Error{Message: cloneErr.Error(), Project: repo})
		}
		defer os.RemoveAll(dir)

		result, scanErr := scanner.Scan(ctx, dir, pm, opts)
		if scanErr != nil {
			return emitScanError(cmd, scanErr)
		}
		// Report the repo slug rather than the throwaway clone dir.
		result.Project = repo
		return emitResult(cmd, result)
	}

	result, err := scanner.DetectAndScan(ctx, path, opts)
	if err != nil {
		return emitScanError(cmd, err)
	}
	return emitResult(cmd, result)
}

// loadClassifyConfig loads a classification config file, falling back
// to the built-in policy when no path is configured.
func loadClassifyConfig(path string) (*license.Config, error) {
	if path == "" {
		return license.DefaultConfig(), nil
	}
	cfg, err := license.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load classification config: %w", err)
	}
	return cfg, nil
}

func emitResult(cmd *cobra.Command, result *scan.Result) error {
	if err := printJSON(cmd, result); err != nil {
		return err
	}
	if result.HasViolations {
		return &exitError{code: exitcode.ViolationFound}
	}
	return nil
}

// emitScanError prints scan failures as structured JSON so callers
// always get machine-readable output, then fails the command.
func emitScanError(cmd *cobra.Command, err error) error {
	if scanErr, ok := err.(*scan.Error); ok {
		if printErr := printJSON(cmd, scanErr); printErr != nil {
			return printErr
		}
		return &exitError{code: exitcode.GeneralError}
	}
	return err
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
