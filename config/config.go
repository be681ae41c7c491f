package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Environment
	IsProd bool `json:"is_prod" yaml:"is_prod"`

	// Remote trade log endpoint
	LogSource LogSourceConfig `json:"log_source" yaml:"log_source"`

	// Polling
	Poller PollerConfig `json:"poller" yaml:"poller"`

	// Initial view selection
	View ViewConfig `json:"view" yaml:"view"`

	// Discord
	Discord DiscordConfig `json:"discord" yaml:"discord"`

	// Telegram
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`

	// Terminal notifications
	Console ConsoleConfig `json:"console" yaml:"console"`

	// Dashboard server
	Dashboard DashboardConfig `json:"dashboard" yaml:"dashboard"`

	// OpenTelemetry tracing
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// LogSourceConfig holds the trade log endpoint configuration.
type LogSourceConfig struct {
	URL     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// PollerConfig holds polling configuration.
type PollerConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// ViewConfig holds the initial dashboard selection.
type ViewConfig struct {
	DefaultPnlFilter string `json:"default_pnl_filter" yaml:"default_pnl_filter"` // ALL, PROFIT or LOSS
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken      string `json:"-" yaml:"-"` // Excluded - env var only
	ProdChannelID string `json:"prod_channel_id" yaml:"prod_channel_id"`
	BetaChannelID string `json:"beta_channel_id" yaml:"beta_channel_id"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken   string `json:"-" yaml:"-"` // Excluded - env var only
	ProdChatID string `json:"prod_chat_id" yaml:"prod_chat_id"`
	BetaChatID string `json:"beta_chat_id" yaml:"beta_chat_id"`
}

// ConsoleConfig holds terminal notification configuration.
type ConsoleConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Bell    bool `json:"bell" yaml:"bell"` // Ring the terminal bell on new trades
}

// DashboardConfig holds dashboard server configuration.
type DashboardConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name"`
}

// Clone creates a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ToJSON serializes the config to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ConfigFromJSON deserializes JSON into a config, merging with base.
func ConfigFromJSON(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	cfg := base.Clone()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFromYAML deserializes YAML into a config, merging with base.
// Durations are written the way time.ParseDuration expects them ("5s", "1m").
func ConfigFromYAML(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config file and overlays it on base.
// The result is validated before it is returned.
func LoadFile(path string, base *Config) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := ConfigFromYAML(b, base)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if result := cfg.Validate(); !result.Valid {
		return nil, &ConfigValidationError{Errors: result.Errors}
	}
	return cfg, nil
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		IsProd: false,
		LogSource: LogSourceConfig{
			URL:     "http://localhost:5000/api/logs",
			Timeout: 10 * time.Second,
		},
		Poller: PollerConfig{
			Interval: 5 * time.Second,
		},
		View: ViewConfig{
			DefaultPnlFilter: "ALL",
		},
		Console: ConsoleConfig{
			Enabled: true,
			Bell:    true,
		},
		Dashboard: DashboardConfig{
			Enabled: true,
			Port:    8080,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "tradewatch",
		},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		IsProd: envBool("STAGE", "PROD"),

		LogSource: LogSourceConfig{
			URL:     envString("LOG_SOURCE_URL", "http://localhost:5000/api/logs"),
			Timeout: envDuration("LOG_SOURCE_TIMEOUT", 10*time.Second),
		},

		Poller: PollerConfig{
			Interval: envDuration("POLL_INTERVAL", 5*time.Second),
		},

		View: ViewConfig{
			DefaultPnlFilter: strings.ToUpper(envString("DEFAULT_PNL_FILTER", "ALL")),
		},

		Discord: DiscordConfig{
			BotToken:      envString("DISCORD_BOT_TOKEN", ""),
			ProdChannelID: envString("DISCORD_PROD_CHANNEL_ID", ""),
			BetaChannelID: envString("DISCORD_BETA_CHANNEL_ID", ""),
		},

		Telegram: TelegramConfig{
			BotToken:   envString("TELEGRAM_BOT_KEY", ""),
			ProdChatID: envString("TELEGRAM_PROD_CHAT_ID", ""),
			BetaChatID: envString("TELEGRAM_BETA_CHAT_ID", ""),
		},

		Console: ConsoleConfig{
			Enabled: envBoolDefault("CONSOLE_NOTIFY", true),
			Bell:    envBoolDefault("CONSOLE_BELL", true),
		},

		Dashboard: DashboardConfig{
			Enabled: envBoolDefault("DASHBOARD_ENABLED", true),
			Port:    envInt("DASHBOARD_PORT", 8080),
		},

		Tracing: TracingConfig{
			Enabled:     envBoolDefault("TRACING_ENABLED", false),
			ServiceName: envString("TRACING_SERVICE_NAME", "tradewatch"),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers are milliseconds, the unit the bot's dashboard used.
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

func envBool(key, trueValue string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), trueValue)
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
