// Package config loads settings from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"KinneretSentinel/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Thresholds model.Thresholds `yaml:"thresholds"`
	Feed       struct {
		BaseURL    string        `yaml:"base_url"`
		ResourceID string        `yaml:"resource_id"`
		Limit      int           `yaml:"limit"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"feed"`
	Storage struct {
		Backend     string `yaml:"backend"` // file | postgres
		HistoryFile string `yaml:"history_file"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"storage"`
	Watermark struct {
		Backend       string `yaml:"backend"` // file | redis
		File          string `yaml:"file"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
		RedisKey      string `yaml:"redis_key"`
	} `yaml:"watermark"`
	Content struct {
		UseLLM       *bool         `yaml:"use_llm"`
		GeminiAPIKey string        `yaml:"gemini_api_key"`
		GeminiModel  string        `yaml:"gemini_model"`
		Temperature  *float64      `yaml:"temperature"` // nil means default; 0 is deterministic
		Timeout      time.Duration `yaml:"timeout"`
		MaxLength    int           `yaml:"max_length"`
	} `yaml:"content"`
	Publisher struct {
		Kind string `yaml:"kind"` // x | telegram
		X    struct {
			AppKey       string `yaml:"app_key"`
			AppSecret    string `yaml:"app_secret"`
			AccessToken  string `yaml:"access_token"`
			AccessSecret string `yaml:"access_secret"`
		} `yaml:"x"`
		Telegram struct {
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
		} `yaml:"telegram"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"publisher"`
	Schedule struct {
		UpdateCron  string `yaml:"update_cron"`
		PublishCron string `yaml:"publish_cron"`
		RunOnStart  bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
	Timezone string `yaml:"timezone"`
	DryRun   bool   `yaml:"dry_run"`
	Proxy    string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
// A missing config file or .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TWITTER_APP_KEY":       &c.Publisher.X.AppKey,
		"TWITTER_APP_SECRET":    &c.Publisher.X.AppSecret,
		"TWITTER_ACCESS_TOKEN":  &c.Publisher.X.AccessToken,
		"TWITTER_ACCESS_SECRET": &c.Publisher.X.AccessSecret,
		"TELEGRAM_BOT_TOKEN":    &c.Publisher.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":      &c.Publisher.Telegram.ChatID,
		"PUBLISHER":             &c.Publisher.Kind,
		"GEMINI_API_KEY":        &c.Content.GeminiAPIKey,
		"GEMINI_MODEL":          &c.Content.GeminiModel,
		"LOG_LEVEL":             &c.Log.Level,
		"LOG_FORMAT":            &c.Log.Format,
		"HISTORY_BACKEND":       &c.Storage.Backend,
		"DATABASE_URL":          &c.Storage.DatabaseURL,
		"WATERMARK_BACKEND":     &c.Watermark.Backend,
		"REDIS_ADDR":            &c.Watermark.RedisAddr,
		"REDIS_PASSWORD":        &c.Watermark.RedisPassword,
		"SQLITE_PATH":           &c.Database.SQLitePath,
		"HTTP_ADDR":             &c.HTTP.Addr,
		"HTTPS_PROXY":           &c.Proxy,
		"TIMEZONE":              &c.Timezone,
		"METRICS_TEXTFILE":      &c.Metrics.Textfile,
		"CRON_UPDATE":           &c.Schedule.UpdateCron,
		"CRON_PUBLISH":          &c.Schedule.PublishCron,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"UPPER_RED_LINE": &c.Thresholds.UpperRedLine,
		"LOWER_RED_LINE": &c.Thresholds.LowerRedLine,
		"BLACK_LINE":     &c.Thresholds.BlackLine,
	}
	for name, dst := range floats {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s: invalid number %q", name, v)
			}
			*dst = f
		}
	}

	if v := os.Getenv("MAX_TWEET_LENGTH"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("MAX_TWEET_LENGTH: invalid integer %q", v)
		}
		c.Content.MaxLength = n
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("REDIS_DB: invalid integer %q", v)
		}
		c.Watermark.RedisDB = n
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DRY_RUN: invalid boolean %q", v)
		}
		c.DryRun = b
	}
	if v := os.Getenv("USE_LLM_GENERATION"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("USE_LLM_GENERATION: invalid boolean %q", v)
		}
		c.Content.UseLLM = &b
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("RUN_ON_START: invalid boolean %q", v)
		}
		c.Schedule.RunOnStart = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Feed.Limit == 0 {
		c.Feed.Limit = 15
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 30 * time.Second
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.HistoryFile == "" {
		c.Storage.HistoryFile = "docs/surveys.json"
	}
	if c.Watermark.Backend == "" {
		c.Watermark.Backend = "file"
	}
	if c.Watermark.File == "" {
		c.Watermark.File = "last_tweet.txt"
	}
	if c.Content.UseLLM == nil {
		on := true
		c.Content.UseLLM = &on
	}
	if c.Content.GeminiModel == "" {
		c.Content.GeminiModel = "gemini-2.0-flash"
	}
	if c.Content.Temperature == nil {
		t := 0.7
		c.Content.Temperature = &t
	}
	if c.Content.Timeout == 0 {
		c.Content.Timeout = 30 * time.Second
	}
	if c.Content.MaxLength == 0 {
		c.Content.MaxLength = 280
	}
	if c.Publisher.Kind == "" {
		c.Publisher.Kind = "x"
	}
	if c.Publisher.Timeout == 0 {
		c.Publisher.Timeout = 30 * time.Second
	}
	if c.Schedule.UpdateCron == "" {
		c.Schedule.UpdateCron = "0 0 */6 * * *"
	}
	if c.Schedule.PublishCron == "" {
		c.Schedule.PublishCron = "0 0 9 * * *"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Jerusalem"
	}
}

// LLMEnabled reports whether the generative content strategy should be tried.
func (c *Config) LLMEnabled() bool {
	return c.Content.UseLLM != nil && *c.Content.UseLLM && c.Content.GeminiAPIKey != ""
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	th := c.Thresholds
	if th.UpperRedLine == 0 && th.LowerRedLine == 0 && th.BlackLine == 0 {
		return errors.New("thresholds are required (UPPER_RED_LINE, LOWER_RED_LINE, BLACK_LINE)")
	}
	if !(th.UpperRedLine > th.LowerRedLine && th.LowerRedLine > th.BlackLine) {
		return fmt.Errorf("thresholds must satisfy upper_red_line > lower_red_line > black_line, got %v > %v > %v",
			th.UpperRedLine, th.LowerRedLine, th.BlackLine)
	}
	if t := c.Content.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("content.temperature must be between 0 and 2, got %v", *t)
	}
	if c.Content.MaxLength <= 3 {
		return fmt.Errorf("content.max_length must be greater than 3, got %d", c.Content.MaxLength)
	}
	switch c.Storage.Backend {
	case "file":
		if c.Storage.HistoryFile == "" {
			return errors.New("storage.history_file is required")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return errors.New("storage.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	switch c.Watermark.Backend {
	case "file":
	case "redis":
		if c.Watermark.RedisAddr == "" {
			return errors.New("watermark.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown watermark.backend %q", c.Watermark.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ValidatePublishing checks publisher credentials. Dry runs need none.
func (c *Config) ValidatePublishing() error {
	if c.DryRun {
		return nil
	}
	switch c.Publisher.Kind {
	case "x":
		x := c.Publisher.X
		if x.AppKey == "" || x.AppSecret == "" || x.AccessToken == "" || x.AccessSecret == "" {
			return errors.New("x credentials are required (TWITTER_APP_KEY, TWITTER_APP_SECRET, TWITTER_ACCESS_TOKEN, TWITTER_ACCESS_SECRET)")
		}
	case "telegram":
		if c.Publisher.Telegram.BotToken == "" {
			return errors.New("publisher.telegram.bot_token is required")
		}
		if c.Publisher.Telegram.ChatID == "" {
			return errors.New("publisher.telegram.chat_id is required")
		}
	default:
		return fmt.Errorf("unknown publisher.kind %q", c.Publisher.Kind)
	}
	return nil
}
