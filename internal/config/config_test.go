package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setKinneretLines(t *testing.T) {
	t.Helper()
	t.Setenv("UPPER_RED_LINE", "-208.8")
	t.Setenv("LOWER_RED_LINE", "-213")
	t.Setenv("BLACK_LINE", "-214.87")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	setKinneretLines(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, -208.8, cfg.Thresholds.UpperRedLine)
	assert.Equal(t, "docs/surveys.json", cfg.Storage.HistoryFile)
	assert.Equal(t, "last_tweet.txt", cfg.Watermark.File)
	assert.Equal(t, "gemini-2.0-flash", cfg.Content.GeminiModel)
	assert.Equal(t, 280, cfg.Content.MaxLength)
	require.NotNil(t, cfg.Content.Temperature)
	assert.Equal(t, 0.7, *cfg.Content.Temperature)
	assert.Equal(t, 15, cfg.Feed.Limit)
	assert.Equal(t, "x", cfg.Publisher.Kind)
	assert.Equal(t, "Asia/Jerusalem", cfg.Timezone)
	assert.False(t, cfg.DryRun)
	require.NotNil(t, cfg.Content.UseLLM)
	assert.True(t, *cfg.Content.UseLLM)
	assert.False(t, cfg.LLMEnabled(), "no api key configured")
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
thresholds:
  upper_red_line: -208.8
  lower_red_line: -213
  black_line: -214.87
feed:
  timeout: 10s
content:
  use_llm: false
  max_length: 200
publisher:
  kind: telegram
  telegram:
    bot_token: file-token
    chat_id: "42"
`), 0644))
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("MAX_TWEET_LENGTH", "250")
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Publisher.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Publisher.Telegram.ChatID)
	assert.Equal(t, 10*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, 250, cfg.Content.MaxLength)
	assert.True(t, cfg.DryRun)
	assert.False(t, cfg.LLMEnabled(), "use_llm false wins over api key")
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidatePublishing())
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"threshold", "UPPER_RED_LINE", "high"},
		{"max length", "MAX_TWEET_LENGTH", "long"},
		{"dry run", "DRY_RUN", "maybe"},
		{"llm flag", "USE_LLM_GENERATION", "sometimes"},
		{"run on start", "RUN_ON_START", "yes please"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_RunOnStartParsesBooleans(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{" TRUE ", true},
		{"false", false},
		{"0", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("RUN_ON_START", tt.value)
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Schedule.RunOnStart)
		})
	}
}

func TestLoad_ZeroTemperatureIsKept(t *testing.T) {
	setKinneretLines(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("content:\n  temperature: 0\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Content.Temperature)
	assert.Equal(t, 0.0, *cfg.Content.Temperature)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"missing thresholds", func(c *Config) { c.Thresholds.UpperRedLine, c.Thresholds.LowerRedLine, c.Thresholds.BlackLine = 0, 0, 0 }, "thresholds are required"},
		{"misordered thresholds", func(c *Config) { c.Thresholds.LowerRedLine = -208 }, "upper_red_line > lower_red_line"},
		{"black above lower", func(c *Config) { c.Thresholds.BlackLine = -212 }, "upper_red_line > lower_red_line"},
		{"temperature out of range", func(c *Config) { v := 2.5; c.Content.Temperature = &v }, "content.temperature"},
		{"tiny max length", func(c *Config) { c.Content.MaxLength = 3 }, "max_length"},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"postgres without url", func(c *Config) { c.Storage.Backend = "postgres" }, "database_url"},
		{"redis without addr", func(c *Config) { c.Watermark.Backend = "redis" }, "redis_addr"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setKinneretLines(t)
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidatePublishing(t *testing.T) {
	setKinneretLines(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	err = cfg.ValidatePublishing()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWITTER_APP_KEY")

	cfg.DryRun = true
	assert.NoError(t, cfg.ValidatePublishing())

	cfg.DryRun = false
	cfg.Publisher.X.AppKey = "a"
	cfg.Publisher.X.AppSecret = "b"
	cfg.Publisher.X.AccessToken = "c"
	cfg.Publisher.X.AccessSecret = "d"
	assert.NoError(t, cfg.ValidatePublishing())

	cfg.Publisher.Kind = "mastodon"
	assert.Error(t, cfg.ValidatePublishing())
}
