/*
Copyright © 2025 licscan authors
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/licscan/licscan/pkg/buildinfo"
	"github.com/licscan/licscan/pkg/exitcode"
	"github.com/licscan/licscan/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// The factory pattern lets tests create isolated command trees.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "licscan",
		Short: "Dependency license extraction and classification",
		Long: `Licscan extracts the full dependency tree of a project, classifies
every package license against an allowlist policy, and reports violations.

Examples:
   licscan scan                          # Scan the current directory
   licscan scan --repo acme/app          # Clone and scan a GitHub repo
   licscan orgscan --orgs acme --tracker tracker.json
   licscan version                       # Show version`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json-logs", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("licscan {{.Version}}\n")

	// Accept underscore spellings (--prod_only) alongside dashed names.
	cmd.SetGlobalNormalizationFunc(normalizeFlagName)

	return cmd
}

func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// registerSubcommands adds all subcommands to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newScanCommand())
	cmd.AddCommand(newOrgScanCommand())
	cmd.AddCommand(versionCmd)
}

// exitError carries a specific process exit code up through cobra.
// Violations exit 2 so CI can distinguish policy failures from crashes.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the CLI. Called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	logger.Error("Command execution failed", logger.Err(err))
	os.Exit(exitcode.GeneralError)
}

func init() {
	registerSubcommands(rootCmd)
}

// initializeLogger sets up the logger based on the global flags.
func initializeLogger(cmd *cobra.Command) {
	levelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	noColor, _ := cmd.Flags().GetBool("no-color")

	cfg := logger.Config{
		Level:     logger.ParseLevel(levelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "licscan",
	}
	if err := logger.Initialize(cfg); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
}
