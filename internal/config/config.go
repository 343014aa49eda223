package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"football-odds-engine/internal/calibration"
	"football-odds-engine/internal/elo"
	"football-odds-engine/internal/odds"
	"football-odds-engine/internal/poisson"
	"football-odds-engine/internal/pricing"
	"football-odds-engine/internal/store"
)

// Defaults for configuration values.
const (
	DefaultDrawWidth         = elo.DefaultDrawWidth
	DefaultRho               = poisson.DefaultRho
	DefaultEVThreshold       = 5.0 // percent
	DefaultKellyFraction     = 0.25
	DefaultPollInterval      = 60 * time.Second
	DefaultAlertCooldown     = 30 * time.Minute
	DefaultCleanupInterval   = 10 * time.Minute
	DefaultValueBetRetention = 30 * 24 * time.Hour
	DefaultOddsMaxAge        = 15 * time.Minute
	DefaultDBDriver          = store.DriverSQLite
	DefaultDBDSN             = "/data/odds.db"
	DefaultPort              = "8080"
	DefaultLeagues           = "E0"
	DefaultProvider          = ProviderFile
	DefaultProviderDir       = "data/markets"
	DefaultRequestsPerMinute = 60
	DefaultMaxConcurrent     = 4
	DefaultLogLevel          = "info"
)

// Provider kinds.
const (
	ProviderFile = "file"
	ProviderHTTP = "http"
)

// Config holds all application configuration.
type Config struct {
	// Model
	DrawWidth    float64
	Rho          float64
	MarginMode   string
	MarginMethod string

	// Value detection
	EVThreshold   float64 // percent
	KellyFraction float64
	OddsMaxAge    time.Duration

	// Engine loop
	Leagues           []string
	PollInterval      time.Duration
	AlertCooldown     time.Duration
	CleanupInterval   time.Duration
	ValueBetRetention time.Duration
	MaxConcurrent     int

	// Data sources
	Provider          string
	ProviderDir       string
	ProviderURL       string
	RequestsPerMinute int

	// Storage and serving
	DBDriver       string
	DBDSN          string
	Port           string
	DrawWidthsFile string // optional YAML league: width overrides

	// Calibration
	CalibrationMin   float64
	CalibrationMax   float64
	CalibrationStep  float64
	EloInitialRating float64
	EloKFactor       float64

	// Optional Telegram alert sink
	TelegramToken  string
	TelegramChatID int64

	LogLevel string
}

func floatEnv(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func intEnv(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func msEnv(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
}

func stringEnv(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ParseLeagues splits a comma-separated league list, dropping blanks.
func ParseLeagues(s string) []string {
	var out []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Load reads configuration from environment variables (and .env file if present).
func Load() Config {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	rng := calibration.DefaultWidthRange()
	cfg := Config{
		DrawWidth:         DefaultDrawWidth,
		Rho:               DefaultRho,
		MarginMode:        string(pricing.MarginNone),
		MarginMethod:      string(odds.Proportional),
		EVThreshold:       DefaultEVThreshold,
		KellyFraction:     DefaultKellyFraction,
		OddsMaxAge:        DefaultOddsMaxAge,
		Leagues:           ParseLeagues(DefaultLeagues),
		PollInterval:      DefaultPollInterval,
		AlertCooldown:     DefaultAlertCooldown,
		CleanupInterval:   DefaultCleanupInterval,
		ValueBetRetention: DefaultValueBetRetention,
		MaxConcurrent:     DefaultMaxConcurrent,
		Provider:          DefaultProvider,
		ProviderDir:       DefaultProviderDir,
		RequestsPerMinute: DefaultRequestsPerMinute,
		DBDriver:          DefaultDBDriver,
		DBDSN:             DefaultDBDSN,
		Port:              DefaultPort,
		CalibrationMin:    rng.Min,
		CalibrationMax:    rng.Max,
		CalibrationStep:   rng.Step,
		EloInitialRating:  elo.DefaultInitialRating,
		EloKFactor:        elo.DefaultKFactor,
		LogLevel:          DefaultLogLevel,
	}

	floatEnv("DRAW_WIDTH", &cfg.DrawWidth)
	floatEnv("DIXON_COLES_RHO", &cfg.Rho)
	stringEnv("MARGIN_MODE", &cfg.MarginMode)
	stringEnv("MARGIN_METHOD", &cfg.MarginMethod)

	floatEnv("EV_THRESHOLD", &cfg.EVThreshold)
	floatEnv("KELLY_FRACTION", &cfg.KellyFraction)
	msEnv("ODDS_MAX_AGE_MS", &cfg.OddsMaxAge)

	if v := os.Getenv("LEAGUES"); v != "" {
		cfg.Leagues = ParseLeagues(v)
	}
	msEnv("POLL_INTERVAL_MS", &cfg.PollInterval)
	msEnv("ALERT_COOLDOWN_MS", &cfg.AlertCooldown)
	intEnv("MAX_CONCURRENT_LEAGUES", &cfg.MaxConcurrent)

	stringEnv("PROVIDER", &cfg.Provider)
	stringEnv("PROVIDER_DIR", &cfg.ProviderDir)
	stringEnv("PROVIDER_URL", &cfg.ProviderURL)
	intEnv("REQUESTS_PER_MINUTE", &cfg.RequestsPerMinute)

	stringEnv("DB_DRIVER", &cfg.DBDriver)
	stringEnv("DB_DSN", &cfg.DBDSN)
	stringEnv("PORT", &cfg.Port)
	stringEnv("DRAW_WIDTHS_FILE", &cfg.DrawWidthsFile)

	floatEnv("CALIBRATION_MIN", &cfg.CalibrationMin)
	floatEnv("CALIBRATION_MAX", &cfg.CalibrationMax)
	floatEnv("CALIBRATION_STEP", &cfg.CalibrationStep)
	floatEnv("ELO_INITIAL_RATING", &cfg.EloInitialRating)
	floatEnv("ELO_K_FACTOR", &cfg.EloKFactor)

	stringEnv("TELEGRAM_BOT_TOKEN", &cfg.TelegramToken)
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}

	stringEnv("LOG_LEVEL", &cfg.LogLevel)

	return cfg
}

// Validate checks that configuration values are within acceptable ranges.
func Validate(cfg Config) error {
	if cfg.DrawWidth <= 0 || math.IsInf(cfg.DrawWidth, 0) || math.IsNaN(cfg.DrawWidth) {
		return fmt.Errorf("DRAW_WIDTH must be positive, got %f", cfg.DrawWidth)
	}
	if cfg.Rho <= -1 || cfg.Rho >= 1 {
		return fmt.Errorf("DIXON_COLES_RHO must be between -1 and 1, got %f", cfg.Rho)
	}
	if _, err := pricing.ParseMarginMode(cfg.MarginMode); err != nil {
		return fmt.Errorf("MARGIN_MODE: %w", err)
	}
	if _, err := odds.ParseMarginMethod(cfg.MarginMethod); err != nil {
		return fmt.Errorf("MARGIN_METHOD: %w", err)
	}
	if cfg.EVThreshold < 0 || cfg.EVThreshold > 100 {
		return fmt.Errorf("EV_THRESHOLD must be a percentage between 0 and 100, got %f", cfg.EVThreshold)
	}
	if cfg.KellyFraction <= 0 || cfg.KellyFraction > 1 {
		return fmt.Errorf("KELLY_FRACTION must be between 0 and 1, got %f", cfg.KellyFraction)
	}
	if len(cfg.Leagues) == 0 {
		return errors.New("LEAGUES must name at least one league")
	}
	if cfg.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("POLL_INTERVAL_MS must be at least 10ms, got %v", cfg.PollInterval)
	}
	if cfg.MaxConcurrent < 1 {
		return fmt.Errorf("MAX_CONCURRENT_LEAGUES must be at least 1, got %d", cfg.MaxConcurrent)
	}
	switch cfg.Provider {
	case ProviderFile:
		if cfg.ProviderDir == "" {
			return errors.New("PROVIDER_DIR is required for the file provider")
		}
	case ProviderHTTP:
		if cfg.ProviderURL == "" {
			return errors.New("PROVIDER_URL is required for the http provider")
		}
	default:
		return fmt.Errorf("PROVIDER must be %q or %q, got %q", ProviderFile, ProviderHTTP, cfg.Provider)
	}
	if !store.SupportedDriver(cfg.DBDriver) {
		return fmt.Errorf("DB_DRIVER must be sqlite3, sqlite or postgres, got %q", cfg.DBDriver)
	}
	if err := cfg.WidthRange().Validate(); err != nil {
		return fmt.Errorf("CALIBRATION_MIN/MAX/STEP: %w", err)
	}
	if cfg.EloInitialRating <= 0 || cfg.EloKFactor <= 0 {
		return fmt.Errorf("ELO_INITIAL_RATING and ELO_K_FACTOR must be positive, got %f and %f",
			cfg.EloInitialRating, cfg.EloKFactor)
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// Pricing returns the model configuration. It assumes cfg has been validated;
// unparsable modes fall back to their defaults.
func (cfg Config) Pricing() pricing.Config {
	p := pricing.DefaultConfig()
	p.DrawWidth = cfg.DrawWidth
	p.Rho = cfg.Rho
	if mode, err := pricing.ParseMarginMode(cfg.MarginMode); err == nil {
		p.MarginMode = mode
	}
	if method, err := odds.ParseMarginMethod(cfg.MarginMethod); err == nil {
		p.MarginMethod = method
	}
	p.EVThreshold = cfg.EVThreshold
	p.KellyFraction = cfg.KellyFraction
	return p
}

// WidthRange returns the calibration grid.
func (cfg Config) WidthRange() calibration.WidthRange {
	return calibration.WidthRange{Min: cfg.CalibrationMin, Max: cfg.CalibrationMax, Step: cfg.CalibrationStep}
}

// TrackerParams returns the Elo replay settings used during calibration.
func (cfg Config) TrackerParams() calibration.TrackerParams {
	return calibration.TrackerParams{InitialRating: cfg.EloInitialRating, KFactor: cfg.EloKFactor}
}

// ParseLogLevel maps debug, info, warn or error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// LoadWidthOverrides reads a flat league: width YAML mapping. A missing file
// yields no overrides. Non-positive widths are rejected.
func LoadWidthOverrides(path string) (map[string]float64, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading draw widths: %w", err)
	}

	var widths map[string]float64
	if err := yaml.Unmarshal(data, &widths); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for league, w := range widths {
		if w <= 0 || math.IsInf(w, 0) || math.IsNaN(w) {
			return nil, fmt.Errorf("draw width for %s must be positive, got %v", league, w)
		}
	}
	return widths, nil
}
