package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/afanty2021/DashPlayer/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// OpenAI Configuration:
// - OPENAI_API_KEY: API key for the OpenAI-compatible provider (optional at startup)
// - OPENAI_ENDPOINT: API endpoint URL (default: https://api.openai.com/v1)
// - OPENAI_MODEL: Model name to use (default: gpt-4o-mini)
// - OPENAI_TIMEOUT: Request timeout in seconds (default: 30)
//
// Translate Configuration:
// - TARGET_LANGUAGE: BCP-47 tag translations are produced in (default: zh)
// - TRANS_GROUP_SIZE: Sentences per translation group (default: 20)
//
// Player Configuration:
// - HTTP_ADDR: Listen address for the HTTP API (default: :8902)
//
// History Configuration:
// - DB_PATH: SQLite database file (default: /app/data/dashplayer.db)
// - HISTORY_RETENTION_DAYS: Watch-history retention window (default: 365)
// - PRUNE_CRON: Cron expression for the history pruner (default: 0 4 * * *)
//
// System Configuration:
// - SETTINGS_FILE: Runtime settings file (default: /app/config/settings.json)
// - LOG_LEVEL: debug, info, warn or error (default: info)
// - LOG_FILE: log file path; empty logs to stdout (default: empty)

type Config struct {
	// OpenAI Configuration
	OpenAI OpenAIConfig `json:"openai"`

	// Translate Configuration
	Translate TranslateConfig `json:"translate"`

	// Player Configuration
	Player PlayerConfig `json:"player"`

	// History Configuration
	History HistoryConfig `json:"history"`

	// System Configuration
	System SystemConfig `json:"system"`
}

// OpenAIConfig holds the configuration for the translation provider
// Works with any OpenAI-compatible endpoint
type OpenAIConfig struct {
	APIKey   string `json:"api_key"`
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	Timeout  int    `json:"timeout"`
}

type TranslateConfig struct {
	TargetLanguage language.Tag `json:"target_language"`
	GroupSize      int          `json:"group_size"`
}

// PlayerConfig holds the HTTP surface configuration
type PlayerConfig struct {
	HTTPAddr string `json:"http_addr"`
}

// HistoryConfig holds the watch-history storage configuration
type HistoryConfig struct {
	DBPath        string `json:"db_path"`
	RetentionDays int    `json:"retention_days"`
	PruneCron     string `json:"prune_cron"`
}

// SystemConfig holds the system configuration
type SystemConfig struct {
	SettingsFile string `json:"settings_file"`
	LogLevel     string `json:"log_level"`
	LogFile      string `json:"log_file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		OpenAI: OpenAIConfig{
			APIKey:   getEnvString("OPENAI_API_KEY", ""),
			Endpoint: getEnvString("OPENAI_ENDPOINT", "https://api.openai.com/v1"),
			Model:    getEnvString("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:  getEnvInt("OPENAI_TIMEOUT", 30),
		},
		Translate: TranslateConfig{
			TargetLanguage: parseLanguage(getEnvString("TARGET_LANGUAGE", "zh")),
			GroupSize:      getEnvInt("TRANS_GROUP_SIZE", 20),
		},
		Player: PlayerConfig{
			HTTPAddr: getEnvString("HTTP_ADDR", ":8902"),
		},
		History: HistoryConfig{
			DBPath:        getEnvString("DB_PATH", "/app/data/dashplayer.db"),
			RetentionDays: getEnvInt("HISTORY_RETENTION_DAYS", 365),
			PruneCron:     getEnvString("PRUNE_CRON", "0 4 * * *"),
		},
		System: SystemConfig{
			SettingsFile: getEnvString("SETTINGS_FILE", DefaultRuntimeSettingsFile),
			LogLevel:     getEnvString("LOG_LEVEL", "info"),
			LogFile:      getEnvString("LOG_FILE", ""),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", config)
	return config, nil
}

// validate checks if all required configuration is properly set.
// The API key is deliberately not required: playback and history work
// without a provider, translation simply stays unconfigured.
func (c *Config) validate() error {
	if c.Translate.GroupSize <= 0 {
		return fmt.Errorf("TRANS_GROUP_SIZE must be positive, got %d", c.Translate.GroupSize)
	}
	if c.Translate.TargetLanguage == language.Und {
		return fmt.Errorf("TARGET_LANGUAGE is not a valid language tag")
	}
	if c.Player.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.History.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.History.RetentionDays <= 0 {
		return fmt.Errorf("HISTORY_RETENTION_DAYS must be positive, got %d", c.History.RetentionDays)
	}
	if _, err := cron.ParseStandard(c.History.PruneCron); err != nil {
		return fmt.Errorf("invalid PRUNE_CRON: %w", err)
	}
	return nil
}

func parseLanguage(raw string) language.Tag {
	tag, err := language.Parse(raw)
	if err != nil {
		return language.Und
	}
	return tag
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
