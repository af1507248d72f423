package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Quota.DailyLimit != 10000 {
		t.Errorf("Expected default daily limit to be 10000, got %d", config.Quota.DailyLimit)
	}
	if config.Quota.Costs["captions"] != 50 {
		t.Errorf("Expected default captions cost to be 50, got %d", config.Quota.Costs["captions"])
	}
	if config.Checkpoint.Every != 50 {
		t.Errorf("Expected default checkpoint cadence to be 50, got %d", config.Checkpoint.Every)
	}
	if !config.Checkpoint.AutoCommitOnInterrupt {
		t.Error("Expected auto-commit on interrupt to be enabled by default")
	}
	if config.API.PageSize != 50 {
		t.Errorf("Expected default page size to be 50, got %d", config.API.PageSize)
	}
	if !config.Output.UseAnnex {
		t.Error("Expected git-annex to be enabled by default")
	}
	if len(config.Output.Components) == 0 {
		t.Error("Expected default components to be non-empty")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ANNEXTUBE_API_KEY", "test-key")
	t.Setenv("ANNEXTUBE_CHANNEL", "test-channel")
	t.Setenv("ANNEXTUBE_QUOTA_LIMIT", "5000")
	t.Setenv("ANNEXTUBE_CHECKPOINT_EVERY", "25")
	t.Setenv("ANNEXTUBE_OUTPUT_DIR", "/tmp/test-archive")
	t.Setenv("ANNEXTUBE_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.API.Key != "test-key" {
		t.Errorf("Expected API key to be test-key, got %s", config.API.Key)
	}
	if config.API.Channel != "test-channel" {
		t.Errorf("Expected channel to be test-channel, got %s", config.API.Channel)
	}
	if config.Quota.DailyLimit != 5000 {
		t.Errorf("Expected daily limit to be 5000, got %d", config.Quota.DailyLimit)
	}
	if config.Checkpoint.Every != 25 {
		t.Errorf("Expected checkpoint cadence to be 25, got %d", config.Checkpoint.Every)
	}
	if config.Output.Directory != "/tmp/test-archive" {
		t.Errorf("Expected output directory to be /tmp/test-archive, got %s", config.Output.Directory)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  channel: "file-channel"
  page_size: 25
quota:
  daily_limit: 2000
  wait_for_reset: true
  max_wait: 2h
checkpoint:
  every: 10
filters:
  date_start: "2021-06-01"
  min_views: 500
output:
  directory: "/tmp/archive"
  use_annex: false
  components: ["info", "media"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.API.Channel != "file-channel" {
		t.Errorf("Expected channel file-channel, got %s", config.API.Channel)
	}
	if config.API.PageSize != 25 {
		t.Errorf("Expected page size 25, got %d", config.API.PageSize)
	}
	if config.Quota.DailyLimit != 2000 {
		t.Errorf("Expected daily limit 2000, got %d", config.Quota.DailyLimit)
	}
	if !config.Quota.WaitForReset {
		t.Error("Expected wait_for_reset to be enabled")
	}
	if config.Quota.MaxWait != 2*time.Hour {
		t.Errorf("Expected max wait 2h, got %s", config.Quota.MaxWait)
	}
	if config.Checkpoint.Every != 10 {
		t.Errorf("Expected cadence 10, got %d", config.Checkpoint.Every)
	}
	if config.Filters.DateStart != "2021-06-01" {
		t.Errorf("Expected date start 2021-06-01, got %s", config.Filters.DateStart)
	}
	if config.Filters.MinViews != 500 {
		t.Errorf("Expected min views 500, got %d", config.Filters.MinViews)
	}
	if config.Output.UseAnnex {
		t.Error("Expected annex to be disabled")
	}
	if len(config.Output.Components) != 2 {
		t.Errorf("Expected 2 components, got %d", len(config.Output.Components))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{
			name:      "valid defaults",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "zero daily limit",
			mutate:    func(c *Config) { c.Quota.DailyLimit = 0 },
			wantError: true,
		},
		{
			name:      "negative checkpoint cadence",
			mutate:    func(c *Config) { c.Checkpoint.Every = -1 },
			wantError: true,
		},
		{
			name:      "page size too large",
			mutate:    func(c *Config) { c.API.PageSize = 100 },
			wantError: true,
		},
		{
			name:      "malformed date filter",
			mutate:    func(c *Config) { c.Filters.DateStart = "06/01/2021" },
			wantError: true,
		},
		{
			name:      "unknown component",
			mutate:    func(c *Config) { c.Output.Components = []string{"screenshots"} },
			wantError: true,
		},
		{
			name:      "no components",
			mutate:    func(c *Config) { c.Output.Components = nil },
			wantError: true,
		},
		{
			name:      "wait enabled without max wait",
			mutate:    func(c *Config) { c.Quota.WaitForReset = true; c.Quota.MaxWait = 0 },
			wantError: true,
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "loud" },
			wantError: true,
		},
		{
			name:      "negative cost",
			mutate:    func(c *Config) { c.Quota.Costs["list"] = -1 },
			wantError: true,
		},
		{
			name:      "cost above daily limit",
			mutate:    func(c *Config) { c.Quota.DailyLimit = 40; c.Quota.Costs["captions"] = 50 },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantError && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"channel":          "flag-channel",
		"api-key":          "flag-key",
		"output":           "/tmp/flag-dir",
		"checkpoint-every": 5,
		"wait-for-quota":   true,
		"max-items":        7,
		"log-level":        "warn",
	})

	if config.API.Channel != "flag-channel" {
		t.Errorf("Expected channel flag-channel, got %s", config.API.Channel)
	}
	if config.API.Key != "flag-key" {
		t.Errorf("Expected key flag-key, got %s", config.API.Key)
	}
	if config.Output.Directory != "/tmp/flag-dir" {
		t.Errorf("Expected output /tmp/flag-dir, got %s", config.Output.Directory)
	}
	if config.Checkpoint.Every != 5 {
		t.Errorf("Expected cadence 5, got %d", config.Checkpoint.Every)
	}
	if !config.Quota.WaitForReset {
		t.Error("Expected wait_for_reset to be enabled")
	}
	if config.Filters.MaxItems != 7 {
		t.Errorf("Expected max items 7, got %d", config.Filters.MaxItems)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Expected log level warn, got %s", config.Logging.Level)
	}
}

func TestDateParsing(t *testing.T) {
	f := FilterConfig{DateStart: "2021-06-01"}
	start, err := f.DateStartTime()
	if err != nil {
		t.Fatalf("Failed to parse valid date: %v", err)
	}
	want := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("Expected %s, got %s", want, start)
	}

	empty := FilterConfig{}
	if ts, err := empty.DateStartTime(); err != nil || !ts.IsZero() {
		t.Errorf("Expected zero time for empty date, got %s (err %v)", ts, err)
	}

	bad := FilterConfig{DateEnd: "June 1st"}
	if _, err := bad.DateEndTime(); err == nil {
		t.Error("Expected error for malformed date")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")

	config := DefaultConfig()
	config.API.Channel = "saved-channel"
	config.Checkpoint.Every = 13
	if err := config.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if loaded.API.Channel != "saved-channel" {
		t.Errorf("Expected channel saved-channel, got %s", loaded.API.Channel)
	}
	if loaded.Checkpoint.Every != 13 {
		t.Errorf("Expected cadence 13, got %d", loaded.Checkpoint.Every)
	}
}
