package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"annextube/internal/exitcode"
	"annextube/pkg/config"
	"annextube/pkg/ledger"
	"annextube/pkg/logger"
	"annextube/pkg/storage"
	"annextube/pkg/ui"
)

var statusDir string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show archive progress and repository state",
	Long: `Show what the ledger has recorded for this repository: how many videos
are archived, how many failed, and whether the working tree has
uncommitted changes.`,
	Run: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusDir, "output", "o", "", "repository directory (default: current directory)")
}

func runStatus(cmd *cobra.Command, args []string) {
	flags := map[string]interface{}{}
	if statusDir != "" {
		flags["output"] = statusDir
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(exitcode.Fatal)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(exitcode.Fatal)
	}
	log := logger.GetLogger()

	led, err := ledger.Open(filepath.Join(cfg.Output.Directory, ".annextube", "ledger.json"), cfg.API.Channel, log)
	if err != nil {
		ui.PrintError("Failed to open ledger", err.Error())
		os.Exit(exitcode.Fatal)
	}

	ui.PrintInfo("Repository", cfg.Output.Directory)
	ui.PrintInfo("Archived videos", fmt.Sprintf("%d", led.Len()))
	if led.FailedCount() > 0 {
		ui.PrintWarning(fmt.Sprintf("Failed videos: %d", led.FailedCount()))
	}
	ui.PrintInfo("Daily quota limit", fmt.Sprintf("%d units", cfg.Quota.DailyLimit))

	repo, err := storage.NewGitRepo(cfg.Output.Directory, cfg.Output.UseAnnex, log)
	if err != nil {
		ui.PrintWarning("Not a git repository", cfg.Output.Directory)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	clean, err := repo.IsClean(ctx)
	switch {
	case err != nil:
		ui.PrintWarning("Could not inspect working tree", err.Error())
	case clean:
		ui.PrintInfo("Working tree", "clean")
	default:
		ui.PrintWarning("Working tree has uncommitted changes")
	}
}
