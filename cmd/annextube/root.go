package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"annextube/pkg/ui"
)

var (
	// Version information, overridden at build time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "annextube",
	Short: "Archive video channels into a git-annex repository",
	Long: `annextube archives a remote video channel into a local git or git-annex
repository, one directory per video.

Features:
  - Durable per-video completion ledger for safe resume
  - Periodic checkpoint commits of accumulated progress
  - Daily API quota tracking with optional wait-for-reset
  - Candidate filters: date range, duration, views, license, tags
  - Secure API key storage using the system keychain
  - Automatic retry with exponential backoff
  - Clean partial commits on Ctrl-C`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.Quiet = true
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .annextube.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`annextube {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
