package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for an annextube invocation.
// It is read-only for the duration of one run.
type Config struct {
	// Remote API settings
	API APIConfig `yaml:"api" json:"api"`

	// Quota budget and wait policy
	Quota QuotaConfig `yaml:"quota" json:"quota"`

	// Download rate limiting (content bytes, not API calls)
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Checkpoint commit cadence
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Retry behaviour for transient call failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Candidate filters
	Filters FilterConfig `yaml:"filters" json:"filters"`

	// Output / repository settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds remote data-API settings.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	Channel        string        `yaml:"channel" json:"channel"`
	Key            string        `yaml:"key" json:"key"`
	PageSize       int           `yaml:"page_size" json:"page_size"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// QuotaConfig models the daily-replenished API budget and the wait policy
// applied when the budget runs out mid-run.
type QuotaConfig struct {
	DailyLimit   int            `yaml:"daily_limit" json:"daily_limit"`
	Costs        map[string]int `yaml:"costs" json:"costs"`
	WaitForReset bool           `yaml:"wait_for_reset" json:"wait_for_reset"`
	MaxWait      time.Duration  `yaml:"max_wait" json:"max_wait"`
	PollInterval time.Duration  `yaml:"poll_interval" json:"poll_interval"`
}

// RateLimitConfig paces content downloads.
type RateLimitConfig struct {
	DownloadsPerMinute int `yaml:"downloads_per_minute" json:"downloads_per_minute"`
}

// CheckpointConfig controls when accumulated progress is committed.
type CheckpointConfig struct {
	// Every is the commit cadence in completed units; 0 disables periodic
	// commits (a single commit still happens at run end or on interruption).
	Every                 int  `yaml:"every" json:"every"`
	AutoCommitOnInterrupt bool `yaml:"auto_commit_on_interrupt" json:"auto_commit_on_interrupt"`
}

// RetryConfig holds retry settings for transient per-call failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// FilterConfig holds candidate selection predicates. Date bounds are applied
// only on incremental runs; a fresh archive captures full history subject to
// the other predicates.
type FilterConfig struct {
	DateStart   string        `yaml:"date_start" json:"date_start"` // YYYY-MM-DD
	DateEnd     string        `yaml:"date_end" json:"date_end"`     // YYYY-MM-DD
	MinDuration time.Duration `yaml:"min_duration" json:"min_duration"`
	MaxDuration time.Duration `yaml:"max_duration" json:"max_duration"`
	MinViews    int64         `yaml:"min_views" json:"min_views"`
	License     string        `yaml:"license" json:"license"`
	Tags        []string      `yaml:"tags" json:"tags"`
	MaxItems    int           `yaml:"max_items" json:"max_items"` // 0 means unlimited
}

// OutputConfig holds working-tree and repository settings.
type OutputConfig struct {
	Directory  string   `yaml:"directory" json:"directory"`
	UseAnnex   bool     `yaml:"use_annex" json:"use_annex"`
	Components []string `yaml:"components" json:"components"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "https://www.googleapis.com/youtube/v3",
			PageSize:       50,
			RequestTimeout: 30 * time.Second,
		},
		Quota: QuotaConfig{
			DailyLimit: 10000,
			Costs: map[string]int{
				"list":     1,
				"metadata": 1,
				"captions": 50,
				"comments": 1,
			},
			WaitForReset: false,
			MaxWait:      6 * time.Hour,
			PollInterval: 15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			DownloadsPerMinute: 30,
		},
		Checkpoint: CheckpointConfig{
			Every:                 50,
			AutoCommitOnInterrupt: true,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    60 * time.Second,
			Multiplier:  2.0,
		},
		Filters: FilterConfig{},
		Output: OutputConfig{
			Directory:  ".",
			UseAnnex:   true,
			Components: []string{"media", "info", "subtitles", "thumbnail"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DateStartTime parses the configured date_start bound.
// The zero time means no lower bound.
func (f *FilterConfig) DateStartTime() (time.Time, error) {
	return parseDate(f.DateStart)
}

// DateEndTime parses the configured date_end bound.
// The zero time means no upper bound.
func (f *FilterConfig) DateEndTime() (time.Time, error) {
	return parseDate(f.DateEnd)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if key := os.Getenv("ANNEXTUBE_API_KEY"); key != "" {
		c.API.Key = key
	}
	if baseURL := os.Getenv("ANNEXTUBE_API_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if channel := os.Getenv("ANNEXTUBE_CHANNEL"); channel != "" {
		c.API.Channel = channel
	}
	if limit := os.Getenv("ANNEXTUBE_QUOTA_LIMIT"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil && val > 0 {
			c.Quota.DailyLimit = val
		}
	}
	if every := os.Getenv("ANNEXTUBE_CHECKPOINT_EVERY"); every != "" {
		if val, err := strconv.Atoi(every); err == nil && val >= 0 {
			c.Checkpoint.Every = val
		}
	}
	if dir := os.Getenv("ANNEXTUBE_OUTPUT_DIR"); dir != "" {
		c.Output.Directory = dir
	}
	if level := os.Getenv("ANNEXTUBE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".annextube.yaml",
		".annextube.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "annextube", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "annextube", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".annextube.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.PageSize <= 0 || c.API.PageSize > 50 {
		errs = append(errs, errors.New("page size must be between 1 and 50"))
	}

	if c.Quota.DailyLimit <= 0 {
		errs = append(errs, errors.New("quota daily limit must be positive"))
	}
	for kind, cost := range c.Quota.Costs {
		if cost < 0 {
			errs = append(errs, fmt.Errorf("quota cost for %q cannot be negative", kind))
		}
		// A cost the daily budget can never cover would make every reserve
		// wait for a reset that never helps.
		if c.Quota.DailyLimit > 0 && cost > c.Quota.DailyLimit {
			errs = append(errs, fmt.Errorf("quota cost for %q (%d) exceeds the daily limit (%d)", kind, cost, c.Quota.DailyLimit))
		}
	}
	if c.Quota.WaitForReset {
		if c.Quota.MaxWait <= 0 {
			errs = append(errs, errors.New("quota max wait must be positive when waiting is enabled"))
		}
		if c.Quota.PollInterval <= 0 {
			errs = append(errs, errors.New("quota poll interval must be positive when waiting is enabled"))
		}
	}

	if c.RateLimit.DownloadsPerMinute <= 0 {
		errs = append(errs, errors.New("downloads per minute must be positive"))
	}

	if c.Checkpoint.Every < 0 {
		errs = append(errs, errors.New("checkpoint cadence cannot be negative"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}

	if _, err := c.Filters.DateStartTime(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Filters.DateEndTime(); err != nil {
		errs = append(errs, err)
	}
	if c.Filters.MinDuration < 0 || c.Filters.MaxDuration < 0 {
		errs = append(errs, errors.New("duration bounds cannot be negative"))
	}
	if c.Filters.MaxItems < 0 {
		errs = append(errs, errors.New("max items cannot be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	validComponents := map[string]bool{
		"media": true, "info": true, "subtitles": true, "thumbnail": true, "comments": true,
	}
	for _, comp := range c.Output.Components {
		if !validComponents[comp] {
			errs = append(errs, fmt.Errorf("unknown component %q", comp))
		}
	}
	if len(c.Output.Components) == 0 {
		errs = append(errs, errors.New("at least one component must be enabled"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if channel, ok := flags["channel"].(string); ok && channel != "" {
		c.API.Channel = channel
	}
	if key, ok := flags["api-key"].(string); ok && key != "" {
		c.API.Key = key
	}
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Output.Directory = dir
	}
	if every, ok := flags["checkpoint-every"].(int); ok && every >= 0 {
		c.Checkpoint.Every = every
	}
	if wait, ok := flags["wait-for-quota"].(bool); ok {
		c.Quota.WaitForReset = wait
	}
	if maxItems, ok := flags["max-items"].(int); ok && maxItems > 0 {
		c.Filters.MaxItems = maxItems
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: command line flags > environment variables > .env file > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".annextube.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
