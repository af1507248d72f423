package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"annextube/internal/exitcode"
	"annextube/pkg/config"
	"annextube/pkg/logger"
	"annextube/pkg/storage"
	"annextube/pkg/ui"
)

var initNoAnnex bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize an archive repository",
	Long: `Create a git repository (with git-annex when available) to archive into.

With no argument the current directory is initialized.`,
	Example: `  # Initialize the current directory
  annextube init

  # Initialize a new directory, plain git without annex
  annextube init ~/archives/mychannel --no-annex`,
	Args: cobra.MaximumNArgs(1),
	Run:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initNoAnnex, "no-annex", false, "use plain git, skip git-annex initialization")
}

func runInit(cmd *cobra.Command, args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if err := logger.Initialize(&config.LoggingConfig{Level: logLevel}); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(exitcode.Fatal)
	}

	if _, err := storage.Init(context.Background(), dir, !initNoAnnex, logger.GetLogger()); err != nil {
		ui.PrintError("Failed to initialize repository", err.Error())
		os.Exit(exitcode.Fatal)
	}
	ui.PrintSuccess("Initialized archive repository in " + dir)
}
