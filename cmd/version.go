/*
Copyright © 2025 licscan authors
*/
package cmd

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/licscan/licscan/pkg/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		extended, _ := cmd.Flags().GetBool("extended")
		cmd.Println("licscan " + buildinfo.BinaryVersion)
		if extended {
			if mv := buildinfo.ModuleVersion(); mv != "" {
				cmd.Println("module:  " + mv)
			}
			cmd.Println("go:      " + runtime.Version())
			cmd.Println("platform: " + runtime.GOOS + "/" + runtime.GOARCH)
		}
	},
}

func init() {
	versionCmd.Flags().Bool("extended", false, "Include build details")
}
