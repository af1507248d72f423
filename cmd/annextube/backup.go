package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"annextube/internal/exitcode"
	"annextube/pkg/auth"
	"annextube/pkg/backup"
	"annextube/pkg/checkpoint"
	"annextube/pkg/config"
	"annextube/pkg/interrupt"
	"annextube/pkg/ledger"
	"annextube/pkg/logger"
	"annextube/pkg/quota"
	"annextube/pkg/ratelimit"
	"annextube/pkg/retry"
	"annextube/pkg/source"
	"annextube/pkg/storage"
	"annextube/pkg/ui"
)

var (
	// Backup command flags
	outputDir       string
	apiKey          string
	profileName     string
	checkpointEvery int
	waitForQuota    bool
	maxItems        int
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup <channel>",
	Short: "Archive a channel's videos into the repository",
	Long: `Archive all videos of a channel into the local repository.

The target directory must be a git repository (run 'annextube init' first).
Completed videos are recorded in a ledger inside the repository, so an
interrupted or quota-exhausted run resumes where it stopped.

The API key is resolved from, in order: the --api-key flag, the
ANNEXTUBE_API_KEY environment variable, stored credentials
('annextube auth login').

Exit codes: 0 success, 1 fatal error, 2 interrupted, 3 quota exhausted.`,
	Example: `  # Archive a channel into the current directory
  annextube backup UCBa659QWEk1AI4Tg--mrJ2A

  # Archive into a specific repository, committing every 25 videos
  annextube backup UCBa659QWEk1AI4Tg--mrJ2A --output ~/archives/ch --checkpoint-every 25

  # Keep going across the daily quota window
  annextube backup UCBa659QWEk1AI4Tg--mrJ2A --wait-for-quota

  # Use a specific stored API key profile
  annextube backup UCBa659QWEk1AI4Tg--mrJ2A --profile work`,
	Args: cobra.ExactArgs(1),
	Run:  runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVarP(&outputDir, "output", "o", "", "repository directory (default: current directory)")
	backupCmd.Flags().StringVar(&apiKey, "api-key", "", "API key (overrides stored credentials)")
	backupCmd.Flags().StringVarP(&profileName, "profile", "a", "", "use a specific stored key profile")
	backupCmd.Flags().IntVar(&checkpointEvery, "checkpoint-every", -1, "commit after every N archived videos (0 disables periodic commits)")
	backupCmd.Flags().BoolVar(&waitForQuota, "wait-for-quota", false, "wait for the quota window to reset instead of stopping")
	backupCmd.Flags().IntVar(&maxItems, "max-items", 0, "stop after archiving at most N videos")
}

func runBackup(cmd *cobra.Command, args []string) {
	channel := strings.TrimSpace(args[0])
	if channel == "" {
		ui.PrintError("Channel identifier is required", "")
		os.Exit(exitcode.Fatal)
	}

	flags := map[string]interface{}{"channel": channel}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if apiKey != "" {
		flags["api-key"] = apiKey
	}
	if checkpointEvery >= 0 {
		flags["checkpoint-every"] = checkpointEvery
	}
	if cmd.Flags().Changed("wait-for-quota") {
		flags["wait-for-quota"] = waitForQuota
	}
	if maxItems > 0 {
		flags["max-items"] = maxItems
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
	log.WithField("version", version).Info("annextube starting")

	resolveAPIKey(cfg, log)

	ui.PrintInfo("Channel", channel)
	ui.PrintInfo("Repository", cfg.Output.Directory)

	repo, err := storage.NewGitRepo(cfg.Output.Directory, cfg.Output.UseAnnex, log)
	if err != nil {
		ui.PrintError("Not a git repository", cfg.Output.Directory)
		fmt.Println("\nInitialize one first:")
		fmt.Println("  annextube init " + cfg.Output.Directory)
		os.Exit(exitcode.Fatal)
	}

	led, err := ledger.Open(filepath.Join(cfg.Output.Directory, ".annextube", "ledger.json"), channel, log)
	if err != nil {
		ui.PrintError("Failed to open ledger", err.Error())
		os.Exit(exitcode.Fatal)
	}

	store, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(exitcode.Fatal)
	}

	coordinator := interrupt.New(log)
	coordinator.Arm()
	defer coordinator.Disarm()

	client := source.NewClient(source.ClientOptions{
		BaseURL:  cfg.API.BaseURL,
		Channel:  cfg.API.Channel,
		APIKey:   cfg.API.Key,
		PageSize: cfg.API.PageSize,
		Timeout:  cfg.API.RequestTimeout,
	}, log)

	engine := backup.NewEngine(cfg, backup.Deps{
		Lister:    client,
		Acquirer:  client,
		Store:     store,
		Ledger:    led,
		Tracker:   quota.NewTracker(quotaOptions(cfg), log),
		Scheduler: checkpoint.NewScheduler(cfg.Checkpoint.Every, repo, log),
		Canceller: coordinator,
		Limiter:   ratelimit.NewTokenBucket(cfg.RateLimit.DownloadsPerMinute, time.Minute),
		Retry:     retryConfig(cfg, log),
		Logger:    log,
	})

	sum, err := engine.Run(context.Background())
	printSummary(cfg, sum)
	if err != nil {
		log.WithError(err).Error("backup failed")
		ui.PrintError("Backup failed", err.Error())
		os.Exit(exitcode.Fatal)
	}
	os.Exit(sum.Outcome.ExitCode())
}

// resolveAPIKey fills cfg.API.Key from stored credentials when neither the
// flag nor the environment provided one.
func resolveAPIKey(cfg *config.Config, log logger.Logger) {
	if cfg.API.Key != "" {
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(exitcode.Fatal)
	}

	var cred *auth.Credential
	if profileName != "" {
		cred, err = manager.Retrieve(profileName)
		if err != nil {
			ui.PrintError("Profile not found", profileName)
			ui.PrintInfo("Stored profiles", "Use 'annextube auth list' to see them")
			os.Exit(exitcode.Fatal)
		}
	} else {
		cred, err = manager.RetrieveDefault()
		if err != nil {
			log.Error("no API key found")
			ui.PrintError("No API key found", "")
			fmt.Println("\nTo store a key securely, run:")
			fmt.Println("  annextube auth login")
			fmt.Println("\nOr set it in the environment:")
			fmt.Println("  export ANNEXTUBE_API_KEY=your_key")
			os.Exit(exitcode.Fatal)
		}
	}

	cfg.API.Key = cred.APIKey
	log.WithField("profile", cred.Profile).Info("using stored API key")
}

func quotaOptions(cfg *config.Config) quota.Options {
	costs := make(map[quota.CallKind]int, len(cfg.Quota.Costs))
	for kind, cost := range cfg.Quota.Costs {
		costs[quota.CallKind(kind)] = cost
	}
	return quota.Options{
		DailyLimit:   cfg.Quota.DailyLimit,
		Costs:        costs,
		WaitForReset: cfg.Quota.WaitForReset,
		MaxWait:      cfg.Quota.MaxWait,
	}
}

func retryConfig(cfg *config.Config, log logger.Logger) *retry.Config {
	return &retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    cfg.Retry.BaseDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
			JitterFactor: 0.1,
		},
		RetryIf: retry.DefaultRetryIf,
		Context: context.Background(),
		Logger:  log,
	}
}

func printSummary(cfg *config.Config, sum *backup.Summary) {
	switch sum.Outcome {
	case backup.OutcomeCompleted, backup.OutcomeLimitReached:
		ui.PrintSuccess(fmt.Sprintf("Archived %d videos (%d skipped, %d failed) in %s",
			sum.Done, sum.Skipped, sum.Failed, sum.Elapsed.Round(time.Second)))
	case backup.OutcomeQuotaExhausted:
		ui.PrintWarning(fmt.Sprintf("Quota exhausted after %d videos; run again after the window resets", sum.Done))
	case backup.OutcomeInterrupted:
		ui.PrintWarning(interruptedSummary(sum.Done, cfg.Checkpoint.AutoCommitOnInterrupt))
	}
	ui.PrintInfo("Quota used", fmt.Sprintf("%d units", sum.QuotaUsed))
}

// interruptedSummary phrases the interrupt notice to match what actually
// happened to the working tree.
func interruptedSummary(done int, committed bool) string {
	if !committed {
		return fmt.Sprintf("Interrupted after %d videos; progress NOT committed (auto-commit disabled), run again to resume", done)
	}
	return fmt.Sprintf("Interrupted after %d videos; progress committed, run again to resume", done)
}
