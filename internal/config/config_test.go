package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"football-odds-engine/internal/odds"
	"football-odds-engine/internal/pricing"
)

var envKeys = []string{
	"DRAW_WIDTH", "DIXON_COLES_RHO", "MARGIN_MODE", "MARGIN_METHOD",
	"EV_THRESHOLD", "KELLY_FRACTION", "ODDS_MAX_AGE_MS",
	"LEAGUES", "POLL_INTERVAL_MS", "ALERT_COOLDOWN_MS", "MAX_CONCURRENT_LEAGUES",
	"PROVIDER", "PROVIDER_DIR", "PROVIDER_URL", "REQUESTS_PER_MINUTE",
	"DB_DRIVER", "DB_DSN", "PORT", "DRAW_WIDTHS_FILE",
	"CALIBRATION_MIN", "CALIBRATION_MAX", "CALIBRATION_STEP",
	"ELO_INITIAL_RATING", "ELO_K_FACTOR", "LOG_LEVEL",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.DrawWidth != DefaultDrawWidth {
		t.Errorf("DrawWidth = %f, want %f", cfg.DrawWidth, DefaultDrawWidth)
	}
	if cfg.Rho != DefaultRho {
		t.Errorf("Rho = %f, want %f", cfg.Rho, DefaultRho)
	}
	if cfg.EVThreshold != DefaultEVThreshold {
		t.Errorf("EVThreshold = %f, want %f", cfg.EVThreshold, DefaultEVThreshold)
	}
	if cfg.KellyFraction != DefaultKellyFraction {
		t.Errorf("KellyFraction = %f, want %f", cfg.KellyFraction, DefaultKellyFraction)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, DefaultPollInterval)
	}
	if cfg.DBDriver != DefaultDBDriver || cfg.DBDSN != DefaultDBDSN {
		t.Errorf("DB = %q %q, want %q %q", cfg.DBDriver, cfg.DBDSN, DefaultDBDriver, DefaultDBDSN)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %q, want %q", cfg.Port, DefaultPort)
	}
	if !reflect.DeepEqual(cfg.Leagues, []string{"E0"}) {
		t.Errorf("Leagues = %v, want [E0]", cfg.Leagues)
	}
	if cfg.CalibrationMin != 50 || cfg.CalibrationMax != 150 || cfg.CalibrationStep != 5 {
		t.Errorf("calibration range = %v..%v/%v, want 50..150/5", cfg.CalibrationMin, cfg.CalibrationMax, cfg.CalibrationStep)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRAW_WIDTH", "85")
	t.Setenv("MARGIN_MODE", "strip_from_market")
	t.Setenv("MARGIN_METHOD", "power")
	t.Setenv("EV_THRESHOLD", "3.5")
	t.Setenv("KELLY_FRACTION", "0.5")
	t.Setenv("POLL_INTERVAL_MS", "500")
	t.Setenv("LEAGUES", "E0, SP1,,I1 ")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001234")

	cfg := Load()

	if cfg.DrawWidth != 85 {
		t.Errorf("DrawWidth = %f, want 85", cfg.DrawWidth)
	}
	if cfg.EVThreshold != 3.5 {
		t.Errorf("EVThreshold = %f, want 3.5", cfg.EVThreshold)
	}
	if cfg.KellyFraction != 0.5 {
		t.Errorf("KellyFraction = %f, want 0.5", cfg.KellyFraction)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}
	if !reflect.DeepEqual(cfg.Leagues, []string{"E0", "SP1", "I1"}) {
		t.Errorf("Leagues = %v", cfg.Leagues)
	}
	if cfg.DBDriver != "postgres" {
		t.Errorf("DBDriver = %q, want postgres", cfg.DBDriver)
	}
	if cfg.TelegramToken != "123:abc" || cfg.TelegramChatID != -1001234 {
		t.Errorf("Telegram = %q %d", cfg.TelegramToken, cfg.TelegramChatID)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("env config should validate: %v", err)
	}

	p := cfg.Pricing()
	if p.MarginMode != pricing.MarginStripFromMarket {
		t.Errorf("MarginMode = %q", p.MarginMode)
	}
	if p.MarginMethod != odds.Power {
		t.Errorf("MarginMethod = %q", p.MarginMethod)
	}
	if p.DrawWidth != 85 || p.EVThreshold != 3.5 {
		t.Errorf("Pricing() = %+v", p)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRAW_WIDTH", "wide")
	t.Setenv("POLL_INTERVAL_MS", "soon")

	cfg := Load()
	if cfg.DrawWidth != DefaultDrawWidth {
		t.Errorf("DrawWidth = %f, want default", cfg.DrawWidth)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want default", cfg.PollInterval)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	valid := Load()

	if err := Validate(valid); err != nil {
		t.Errorf("valid config should pass: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero draw width", func(c *Config) { c.DrawWidth = 0 }},
		{"rho out of range", func(c *Config) { c.Rho = 1.2 }},
		{"bad margin mode", func(c *Config) { c.MarginMode = "HALF" }},
		{"bad margin method", func(c *Config) { c.MarginMethod = "shin" }},
		{"negative EV", func(c *Config) { c.EVThreshold = -0.1 }},
		{"EV > 100", func(c *Config) { c.EVThreshold = 150 }},
		{"zero Kelly", func(c *Config) { c.KellyFraction = 0 }},
		{"Kelly > 1", func(c *Config) { c.KellyFraction = 1.5 }},
		{"no leagues", func(c *Config) { c.Leagues = nil }},
		{"poll too fast", func(c *Config) { c.PollInterval = time.Millisecond }},
		{"no concurrency", func(c *Config) { c.MaxConcurrent = 0 }},
		{"unknown provider", func(c *Config) { c.Provider = "ftp" }},
		{"http provider without url", func(c *Config) { c.Provider = ProviderHTTP }},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }},
		{"telegram token without chat", func(c *Config) { c.TelegramToken = "123:abc" }},
		{"empty calibration range", func(c *Config) { c.CalibrationMax = 10 }},
		{"zero K factor", func(c *Config) { c.EloKFactor = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.modify(&c)
			if err := Validate(c); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoadWidthOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widths.yaml")
	if err := os.WriteFile(path, []byte("E0: 85\nglobal: 95\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	widths, err := LoadWidthOverrides(path)
	if err != nil {
		t.Fatalf("LoadWidthOverrides: %v", err)
	}
	if widths["E0"] != 85 || widths["global"] != 95 {
		t.Errorf("widths = %v", widths)
	}

	missing, err := LoadWidthOverrides(filepath.Join(dir, "nope.yaml"))
	if err != nil || missing != nil {
		t.Errorf("missing file = %v, %v; want nil, nil", missing, err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("E0: -5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWidthOverrides(bad); err == nil {
		t.Error("expected error for negative width")
	}
}
