package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any env vars that might affect the test
	envVars := []string{
		"STAGE", "LOG_SOURCE_URL", "LOG_SOURCE_TIMEOUT", "POLL_INTERVAL", "DEFAULT_PNL_FILTER",
		"DISCORD_BOT_TOKEN", "DISCORD_PROD_CHANNEL_ID", "DISCORD_BETA_CHANNEL_ID",
		"TELEGRAM_BOT_KEY", "CONSOLE_NOTIFY", "CONSOLE_BELL",
		"DASHBOARD_ENABLED", "DASHBOARD_PORT", "TRACING_ENABLED", "TRACING_SERVICE_NAME",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.IsProd {
		t.Error("expected IsProd to be false by default")
	}
	if cfg.LogSource.URL != "http://localhost:5000/api/logs" {
		t.Errorf("unexpected log source URL: %s", cfg.LogSource.URL)
	}
	if cfg.LogSource.Timeout != 10*time.Second {
		t.Errorf("unexpected log source timeout: %v", cfg.LogSource.Timeout)
	}
	if cfg.Poller.Interval != 5*time.Second {
		t.Errorf("unexpected poll interval: %v", cfg.Poller.Interval)
	}
	if cfg.View.DefaultPnlFilter != "ALL" {
		t.Errorf("unexpected default pnl filter: %s", cfg.View.DefaultPnlFilter)
	}
	if cfg.Discord.BotToken != "" {
		t.Error("expected empty bot token by default")
	}
	if !cfg.Console.Enabled || !cfg.Console.Bell {
		t.Error("expected console notifications with bell by default")
	}
	if !cfg.Dashboard.Enabled || cfg.Dashboard.Port != 8080 {
		t.Errorf("unexpected dashboard config: %+v", cfg.Dashboard)
	}
	if cfg.Tracing.Enabled {
		t.Error("expected tracing to be disabled by default")
	}

	if result := cfg.Validate(); !result.Valid {
		t.Errorf("expected env defaults to validate, got %+v", result.Errors)
	}
}

func TestDefaults_MatchLoad(t *testing.T) {
	os.Unsetenv("POLL_INTERVAL")
	os.Unsetenv("LOG_SOURCE_URL")

	d := Defaults()
	l := Load()

	if d.Poller.Interval != l.Poller.Interval {
		t.Errorf("defaults poll interval %v != load %v", d.Poller.Interval, l.Poller.Interval)
	}
	if d.LogSource.URL != l.LogSource.URL {
		t.Errorf("defaults URL %s != load %s", d.LogSource.URL, l.LogSource.URL)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	os.Setenv("STAGE", "PROD")
	os.Setenv("LOG_SOURCE_URL", "http://bot.internal:5000/api/logs")
	os.Setenv("LOG_SOURCE_TIMEOUT", "2s")
	os.Setenv("POLL_INTERVAL", "3000")
	os.Setenv("DEFAULT_PNL_FILTER", "profit")
	os.Setenv("DISCORD_BOT_TOKEN", "test-token")
	os.Setenv("DISCORD_PROD_CHANNEL_ID", "prod-123")
	os.Setenv("DASHBOARD_PORT", "9090")
	os.Setenv("CONSOLE_BELL", "false")

	defer func() {
		os.Unsetenv("STAGE")
		os.Unsetenv("LOG_SOURCE_URL")
		os.Unsetenv("LOG_SOURCE_TIMEOUT")
		os.Unsetenv("POLL_INTERVAL")
		os.Unsetenv("DEFAULT_PNL_FILTER")
		os.Unsetenv("DISCORD_BOT_TOKEN")
		os.Unsetenv("DISCORD_PROD_CHANNEL_ID")
		os.Unsetenv("DASHBOARD_PORT")
		os.Unsetenv("CONSOLE_BELL")
	}()

	cfg := Load()

	if !cfg.IsProd {
		t.Error("expected IsProd to be true")
	}
	if cfg.LogSource.URL != "http://bot.internal:5000/api/logs" {
		t.Errorf("unexpected log source URL: %s", cfg.LogSource.URL)
	}
	if cfg.LogSource.Timeout != 2*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.LogSource.Timeout)
	}
	if cfg.Poller.Interval != 3*time.Second {
		t.Errorf("expected bare number to be read as milliseconds, got %v", cfg.Poller.Interval)
	}
	if cfg.View.DefaultPnlFilter != "PROFIT" {
		t.Errorf("unexpected pnl filter: %s", cfg.View.DefaultPnlFilter)
	}
	if cfg.Discord.BotToken != "test-token" {
		t.Errorf("unexpected bot token: %s", cfg.Discord.BotToken)
	}
	if cfg.Discord.ProdChannelID != "prod-123" {
		t.Errorf("unexpected prod channel ID: %s", cfg.Discord.ProdChannelID)
	}
	if cfg.Dashboard.Port != 9090 {
		t.Errorf("unexpected dashboard port: %d", cfg.Dashboard.Port)
	}
	if cfg.Console.Bell {
		t.Error("expected bell to be disabled")
	}
}

func TestEnvString(t *testing.T) {
	os.Setenv("TEST_STRING", "hello")
	defer os.Unsetenv("TEST_STRING")

	if v := envString("TEST_STRING", "default"); v != "hello" {
		t.Errorf("expected 'hello', got '%s'", v)
	}
	if v := envString("NONEXISTENT", "default"); v != "default" {
		t.Errorf("expected 'default', got '%s'", v)
	}

	os.Setenv("TEST_WHITESPACE", "  trimmed  ")
	defer os.Unsetenv("TEST_WHITESPACE")
	if v := envString("TEST_WHITESPACE", "default"); v != "trimmed" {
		t.Errorf("expected 'trimmed', got '%s'", v)
	}
}

func TestEnvInt(t *testing.T) {
	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")

	if v := envInt("TEST_INT", 0); v != 42 {
		t.Errorf("expected 42, got %d", v)
	}

	os.Setenv("TEST_INT_BAD", "abc")
	defer os.Unsetenv("TEST_INT_BAD")
	if v := envInt("TEST_INT_BAD", 7); v != 7 {
		t.Errorf("expected default 7, got %d", v)
	}
}

func TestEnvDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "1m30s")
	defer os.Unsetenv("TEST_DURATION")

	if v := envDuration("TEST_DURATION", 0); v != 90*time.Second {
		t.Errorf("expected 90s, got %v", v)
	}

	os.Setenv("TEST_DURATION_MS", "4500")
	defer os.Unsetenv("TEST_DURATION_MS")
	if v := envDuration("TEST_DURATION_MS", 0); v != 4500*time.Millisecond {
		t.Errorf("expected 4.5s, got %v", v)
	}

	os.Setenv("TEST_DURATION_BAD", "soon")
	defer os.Unsetenv("TEST_DURATION_BAD")
	if v := envDuration("TEST_DURATION_BAD", time.Second); v != time.Second {
		t.Errorf("expected default, got %v", v)
	}
}

func TestEnvBool(t *testing.T) {
	os.Setenv("TEST_STAGE", "prod")
	defer os.Unsetenv("TEST_STAGE")

	if !envBool("TEST_STAGE", "PROD") {
		t.Error("expected case-insensitive match")
	}
	if envBool("TEST_STAGE_MISSING", "PROD") {
		t.Error("expected false for missing var")
	}
}

func TestEnvBoolDefault(t *testing.T) {
	for _, tc := range []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"YES", true},
		{"false", false},
		{"0", false},
	} {
		os.Setenv("TEST_BOOL_DEFAULT", tc.value)
		if got := envBoolDefault("TEST_BOOL_DEFAULT", !tc.want); got != tc.want {
			t.Errorf("value %q: expected %v, got %v", tc.value, tc.want, got)
		}
	}
	os.Unsetenv("TEST_BOOL_DEFAULT")

	if !envBoolDefault("TEST_BOOL_DEFAULT", true) {
		t.Error("expected default when unset")
	}
}

func TestConfigFromJSON_MergesWithBase(t *testing.T) {
	base := Defaults()
	cfg, err := ConfigFromJSON([]byte(`{"dashboard":{"enabled":true,"port":9999}}`), base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dashboard.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Dashboard.Port)
	}
	if cfg.LogSource.URL != base.LogSource.URL {
		t.Errorf("expected base URL to survive merge, got %s", cfg.LogSource.URL)
	}
	if base.Dashboard.Port != 8080 {
		t.Error("base config must not be modified")
	}
}

func TestConfigFromYAML_Durations(t *testing.T) {
	data := []byte(`
log_source:
  url: https://bot.example.com/api/logs
  timeout: 3s
poller:
  interval: 4s
view:
  default_pnl_filter: LOSS
`)
	cfg, err := ConfigFromYAML(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogSource.URL != "https://bot.example.com/api/logs" {
		t.Errorf("unexpected URL: %s", cfg.LogSource.URL)
	}
	if cfg.LogSource.Timeout != 3*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.LogSource.Timeout)
	}
	if cfg.Poller.Interval != 4*time.Second {
		t.Errorf("unexpected interval: %v", cfg.Poller.Interval)
	}
	if cfg.View.DefaultPnlFilter != "LOSS" {
		t.Errorf("unexpected filter: %s", cfg.View.DefaultPnlFilter)
	}
	// Untouched sections keep their defaults
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Dashboard.Port)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tradewatch.yaml")
	if err := os.WriteFile(path, []byte("poller:\n  interval: 3s\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path, Defaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Poller.Interval != 3*time.Second {
		t.Errorf("unexpected interval: %v", cfg.Poller.Interval)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("poller:\n  interval: 10ms\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path, Defaults())
	var verr *ConfigValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ConfigValidationError, got %v", err)
	}
	if verr.Errors[0].Field != "poller.interval" {
		t.Errorf("unexpected field: %s", verr.Errors[0].Field)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestClone_Independent(t *testing.T) {
	orig := Defaults()
	clone := orig.Clone()
	clone.Poller.Interval = time.Minute

	if orig.Poller.Interval == time.Minute {
		t.Error("clone must not share state with original")
	}

	var nilCfg *Config
	if nilCfg.Clone() != nil {
		t.Error("expected nil clone of nil config")
	}
}
