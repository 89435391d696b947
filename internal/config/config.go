package config

import (
	"errors"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "NEWS_DIGEST_CONFIG"
	slackWebhookEnv = "SLACK_WEBHOOK_URL"
	openAIAPIKeyEnv = "OPENAI_API_KEY"
	openAIModelEnv  = "OPENAI_MODEL"
	databaseDSNEnv  = "DATABASE_DSN"
	logLevelEnv     = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Feeds     []FeedConfig    `yaml:"feeds"`
	Filters   FilterConfig    `yaml:"filters"`
	Digest    DigestConfig    `yaml:"digest"`
	LLM       LLMConfig       `yaml:"llm"`
	Slack     SlackConfig     `yaml:"slack"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// FeedConfig describes one upstream feed with its scanner strategy.
type FeedConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Scanner string `yaml:"scanner"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled treats an absent flag as enabled, matching feed list semantics.
func (f FeedConfig) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// FilterConfig holds the keyword pre-filter rules.
type FilterConfig struct {
	RequiredKeywords []string `yaml:"requiredKeywords"`
	BlockedKeywords  []string `yaml:"blockedKeywords"`
}

// DigestConfig bounds selection and processing volume.
type DigestConfig struct {
	MinScore        int    `yaml:"minScore"`
	MaxNotify       int    `yaml:"maxNotify"`
	ArticlesPerFeed int    `yaml:"articlesPerFeed"`
	ProcessAll      *bool  `yaml:"processAll"`
	MaxToProcess    int    `yaml:"maxToProcess"`
	RunLabel        string `yaml:"runLabel"`
}

// ProcessAllArticles reports whether every filtered article is enriched or
// only the first MaxToProcess of them.
func (d DigestConfig) ProcessAllArticles() bool {
	return d.ProcessAll == nil || *d.ProcessAll
}

// LLMConfig defines how to contact the analysis service.
type LLMConfig struct {
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"apiKey"`
	BaseURL           string  `yaml:"baseUrl"`
	MaxTokens         int     `yaml:"maxTokens"`
	Temperature       float64 `yaml:"temperature"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds"`
	MaxBodyChars      int     `yaml:"maxBodyChars"`
	RequestsPerMinute int     `yaml:"requestsPerMinute"`
}

// Timeout resolves the request timeout as a duration.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// SlackConfig wires the webhook sink and rendering switches.
type SlackConfig struct {
	WebhookURL   string `yaml:"webhookUrl"`
	Title        string `yaml:"title"`
	ShowScore    *bool  `yaml:"showScore"`
	ShowCategory *bool  `yaml:"showCategory"`
	ShowSource   *bool  `yaml:"showSource"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// RenderScore reports whether the score line is rendered (default true).
func (s SlackConfig) RenderScore() bool { return boolOr(s.ShowScore, true) }

// RenderCategory reports whether the category line is rendered (default true).
func (s SlackConfig) RenderCategory() bool { return boolOr(s.ShowCategory, true) }

// RenderSource reports whether the source line is rendered (default true).
func (s SlackConfig) RenderSource() bool { return boolOr(s.ShowSource, true) }

// DispatchConfig bounds batching and the retry state machine.
type DispatchConfig struct {
	MaxBatchSize             int `yaml:"maxBatchSize"`
	MaxRetries               int `yaml:"maxRetries"`
	BatchPauseSeconds        int `yaml:"batchPauseSeconds"`
	DefaultRetryAfterSeconds int `yaml:"defaultRetryAfterSeconds"`
	MaxRetryAfterSeconds     int `yaml:"maxRetryAfterSeconds"`
	TimeoutSeconds           int `yaml:"timeoutSeconds"`
}

// BatchPause resolves the fixed pause between successive batch sends.
func (d DispatchConfig) BatchPause() time.Duration {
	return time.Duration(d.BatchPauseSeconds) * time.Second
}

// DefaultRetryAfter is the wait applied to rate-limit responses without a hint.
func (d DispatchConfig) DefaultRetryAfter() time.Duration {
	return time.Duration(d.DefaultRetryAfterSeconds) * time.Second
}

// MaxRetryAfter caps server-requested waits.
func (d DispatchConfig) MaxRetryAfter() time.Duration {
	return time.Duration(d.MaxRetryAfterSeconds) * time.Second
}

// Timeout resolves the per-send request timeout.
func (d DispatchConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// DatabaseConfig describes the Postgres archive connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig enables the recurring mode; disabled means one run per
// invocation.
type SchedulerConfig struct {
	Enabled       bool `yaml:"enabled"`
	IntervalHours int  `yaml:"intervalHours"`
}

// Interval resolves the recurring period, defaulting to daily.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.IntervalHours) * time.Hour
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

// Validate fails fast on missing secrets before any network call is made.
func (c Config) Validate() error {
	var errs []error

	if c.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("config: missing "+slackWebhookEnv))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("config: missing "+openAIAPIKeyEnv))
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(slackWebhookEnv); v != "" {
		c.Slack.WebhookURL = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	if len(override.Filters.RequiredKeywords) > 0 {
		base.Filters.RequiredKeywords = override.Filters.RequiredKeywords
	}
	if len(override.Filters.BlockedKeywords) > 0 {
		base.Filters.BlockedKeywords = override.Filters.BlockedKeywords
	}

	if override.Digest.MinScore != 0 {
		base.Digest.MinScore = override.Digest.MinScore
	}
	if override.Digest.MaxNotify != 0 {
		base.Digest.MaxNotify = override.Digest.MaxNotify
	}
	if override.Digest.ArticlesPerFeed != 0 {
		base.Digest.ArticlesPerFeed = override.Digest.ArticlesPerFeed
	}
	if override.Digest.ProcessAll != nil {
		base.Digest.ProcessAll = override.Digest.ProcessAll
	}
	if override.Digest.MaxToProcess != 0 {
		base.Digest.MaxToProcess = override.Digest.MaxToProcess
	}
	if override.Digest.RunLabel != "" {
		base.Digest.RunLabel = override.Digest.RunLabel
	}

	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.BaseURL != "" {
		base.LLM.BaseURL = override.LLM.BaseURL
	}
	if override.LLM.MaxTokens != 0 {
		base.LLM.MaxTokens = override.LLM.MaxTokens
	}
	if override.LLM.Temperature != 0 {
		base.LLM.Temperature = override.LLM.Temperature
	}
	if override.LLM.TimeoutSeconds != 0 {
		base.LLM.TimeoutSeconds = override.LLM.TimeoutSeconds
	}
	if override.LLM.MaxBodyChars != 0 {
		base.LLM.MaxBodyChars = override.LLM.MaxBodyChars
	}
	if override.LLM.RequestsPerMinute != 0 {
		base.LLM.RequestsPerMinute = override.LLM.RequestsPerMinute
	}

	if override.Slack.WebhookURL != "" {
		base.Slack.WebhookURL = override.Slack.WebhookURL
	}
	if override.Slack.Title != "" {
		base.Slack.Title = override.Slack.Title
	}
	if override.Slack.ShowScore != nil {
		base.Slack.ShowScore = override.Slack.ShowScore
	}
	if override.Slack.ShowCategory != nil {
		base.Slack.ShowCategory = override.Slack.ShowCategory
	}
	if override.Slack.ShowSource != nil {
		base.Slack.ShowSource = override.Slack.ShowSource
	}

	if override.Dispatch.MaxBatchSize != 0 {
		base.Dispatch.MaxBatchSize = override.Dispatch.MaxBatchSize
	}
	if override.Dispatch.MaxRetries != 0 {
		base.Dispatch.MaxRetries = override.Dispatch.MaxRetries
	}
	if override.Dispatch.BatchPauseSeconds != 0 {
		base.Dispatch.BatchPauseSeconds = override.Dispatch.BatchPauseSeconds
	}
	if override.Dispatch.DefaultRetryAfterSeconds != 0 {
		base.Dispatch.DefaultRetryAfterSeconds = override.Dispatch.DefaultRetryAfterSeconds
	}
	if override.Dispatch.MaxRetryAfterSeconds != 0 {
		base.Dispatch.MaxRetryAfterSeconds = override.Dispatch.MaxRetryAfterSeconds
	}
	if override.Dispatch.TimeoutSeconds != 0 {
		base.Dispatch.TimeoutSeconds = override.Dispatch.TimeoutSeconds
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.IntervalHours != 0 {
		base.Scheduler.IntervalHours = override.Scheduler.IntervalHours
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Feeds: []FeedConfig{
			{Name: "Hacker News", URL: "https://hnrss.org/frontpage", Scanner: "rss"},
		},
		Filters: FilterConfig{
			RequiredKeywords: []string{"AI", "machine learning", "LLM"},
			BlockedKeywords:  []string{"sponsored", "advertisement"},
		},
		Digest: DigestConfig{
			MinScore:        6,
			MaxNotify:       10,
			ArticlesPerFeed: 15,
			MaxToProcess:    50,
			RunLabel:        "ai",
		},
		LLM: LLMConfig{
			Model:             "gpt-4o-mini",
			MaxTokens:         2000,
			Temperature:       0.3,
			TimeoutSeconds:    30,
			MaxBodyChars:      800,
			RequestsPerMinute: 60,
		},
		Slack: SlackConfig{
			Title: "AI News Digest",
		},
		Dispatch: DispatchConfig{
			MaxBatchSize:             10,
			MaxRetries:               3,
			BatchPauseSeconds:        1,
			DefaultRetryAfterSeconds: 5,
			MaxRetryAfterSeconds:     60,
			TimeoutSeconds:           10,
		},
		Database:  DatabaseConfig{},
		Scheduler: SchedulerConfig{},
	}
}
