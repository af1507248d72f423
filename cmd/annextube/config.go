package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"annextube/internal/exitcode"
	"annextube/pkg/config"
	"annextube/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage annextube configuration files.

Configuration is loaded from:
  - Command line flags (highest priority)
  - Environment variables (ANNEXTUBE_*)
  - Configuration file (.annextube.yaml)
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.annextube.yaml' in the current directory unless
a different path is given with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources. The API key is
masked.`,
	Run: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".annextube.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(exitcode.Fatal)
	}

	exampleConfig := `# annextube configuration file
#
# Every option can also be set via environment variables prefixed with
# ANNEXTUBE_, e.g. ANNEXTUBE_API_KEY, ANNEXTUBE_CHANNEL.

# Remote API settings
api:
  # API base URL
  base_url: "https://www.googleapis.com/youtube/v3"

  # Channel to archive (can also be given as the backup argument)
  channel: ""

  # API key; prefer 'annextube auth login' or ANNEXTUBE_API_KEY over
  # writing it here
  key: ""

  # Listing page size
  page_size: 50

  # Per-request timeout
  request_timeout: 30s

# Daily API budget
quota:
  # Units credited per day
  daily_limit: 10000

  # Cost per call kind
  costs:
    list: 1
    metadata: 1
    captions: 50
    comments: 1

  # Wait for the window to reset instead of stopping when the budget
  # runs out
  wait_for_reset: false

  # Longest acceptable wait; longer predicted waits stop the run
  max_wait: 6h

  # Cancellation poll interval while waiting
  poll_interval: 15s

# Content download pacing (does not consume quota)
rate_limit:
  downloads_per_minute: 30

# Checkpoint commits
checkpoint:
  # Commit after every N archived videos; 0 commits only at run end
  every: 50

  # Commit accumulated progress when interrupted with Ctrl-C
  auto_commit_on_interrupt: true

# Transient failure retries
retry:
  max_attempts: 3
  base_delay: 1s
  max_delay: 60s
  multiplier: 2.0

# Candidate filters (all optional)
filters:
  # Only archive videos published in this range (YYYY-MM-DD). The start
  # bound is ignored on the first run against an empty archive.
  date_start: ""
  date_end: ""

  # Duration bounds
  min_duration: 0s
  max_duration: 0s

  # Minimum view count
  min_views: 0

  # Exact license match, e.g. creativeCommon
  license: ""

  # Keep videos carrying at least one of these tags
  tags: []

  # Stop after this many videos per run; 0 means unlimited
  max_items: 0

# Output repository
output:
  directory: "."
  use_annex: true
  components: ["media", "info", "subtitles", "thumbnail"]

# Logging
logging:
  level: "info"
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to write configuration file", err.Error())
		os.Exit(exitcode.Fatal)
	}
	ui.PrintSuccess("Created " + configPath)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(exitcode.Fatal)
	}

	shown := *cfg
	if shown.API.Key != "" {
		shown.API.Key = "********"
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		ui.PrintError("Failed to render configuration", err.Error())
		os.Exit(exitcode.Fatal)
	}
	fmt.Print(string(data))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if _, err := config.Load(configFile, nil); err != nil {
		ui.PrintError("Configuration invalid", err.Error())
		os.Exit(exitcode.Fatal)
	}
	ui.PrintSuccess("Configuration is valid")
}
