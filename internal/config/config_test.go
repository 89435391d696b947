package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(slackWebhookEnv, "https://hooks.example/T123")
	t.Setenv(openAIAPIKeyEnv, "sk-test")
	t.Setenv(openAIModelEnv, "gpt-4.1-mini")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(logLevelEnv, "")

	cfg := Load()

	assert.Equal(t, "https://hooks.example/T123", cfg.Slack.WebhookURL)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4.1-mini", cfg.LLM.Model)
	assert.Equal(t, 6, cfg.Digest.MinScore)
	assert.Equal(t, 10, cfg.Digest.MaxNotify)
	assert.True(t, cfg.Digest.ProcessAllArticles())
	assert.NotEmpty(t, cfg.Feeds)

	require.NoError(t, cfg.Validate())
}

func TestLoadMergesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feeds:
  - name: Custom Feed
    url: https://news.example/rss
filters:
  requiredKeywords: ["golang"]
  blockedKeywords: ["casino"]
digest:
  minScore: 8
  maxNotify: 5
  processAll: false
  maxToProcess: 20
dispatch:
  maxBatchSize: 15
  maxRetries: 5
scheduler:
  enabled: true
  intervalHours: 6
`), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(slackWebhookEnv, "https://hooks.example/T123")
	t.Setenv(openAIAPIKeyEnv, "sk-test")
	t.Setenv(openAIModelEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(logLevelEnv, "")

	cfg := Load()

	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "Custom Feed", cfg.Feeds[0].Name)
	assert.True(t, cfg.Feeds[0].IsEnabled())

	assert.Equal(t, []string{"golang"}, cfg.Filters.RequiredKeywords)
	assert.Equal(t, 8, cfg.Digest.MinScore)
	assert.Equal(t, 5, cfg.Digest.MaxNotify)
	assert.False(t, cfg.Digest.ProcessAllArticles())
	assert.Equal(t, 15, cfg.Dispatch.MaxBatchSize)
	assert.Equal(t, 5, cfg.Dispatch.MaxRetries)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 6, cfg.Scheduler.IntervalHours)

	// Defaults survive for sections the file does not touch.
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 1, cfg.Dispatch.BatchPauseSeconds)
}

func TestValidateMissingSecrets(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(slackWebhookEnv, "")
	t.Setenv(openAIAPIKeyEnv, "")
	t.Setenv(openAIModelEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(logLevelEnv, "")

	cfg := Load()
	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), slackWebhookEnv)
	assert.Contains(t, err.Error(), openAIAPIKeyEnv)
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, "5s", cfg.Dispatch.DefaultRetryAfter().String())
	assert.Equal(t, "1m0s", cfg.Dispatch.MaxRetryAfter().String())
	assert.Equal(t, "30s", cfg.LLM.Timeout().String())
	assert.Equal(t, "24h0m0s", cfg.Scheduler.Interval().String())
}
