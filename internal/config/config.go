package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/charter-pool/internal/rating"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Config struct {
	DBDriver       string
	DatabaseURL    string
	MigrationsPath string
	Port           int

	EloKFactor       float64
	EloDefaultRating int

	SessionLifetime time.Duration
	CookieSecure    bool

	DefaultAdminUsername string
	DefaultAdminPassword string

	CORSOrigins         []string
	ReportRatePerMinute int

	GoogleKey         string
	GoogleSecret      string
	GoogleCallbackURL string

	LogLevel slog.Level
}

// Load reads an optional .env file and then the environment. Anything unset
// falls back to a local sqlite setup.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDriver:             getenv("DB_DRIVER", DriverSQLite),
		DatabaseURL:          getenv("DATABASE_URL", "charter_pool.db?_journal_mode=WAL"),
		MigrationsPath:       getenv("MIGRATIONS_PATH", "file://migrations"),
		DefaultAdminUsername: os.Getenv("DEFAULT_ADMIN_USERNAME"),
		DefaultAdminPassword: os.Getenv("DEFAULT_ADMIN_PASSWORD"),
		GoogleKey:            os.Getenv("GOOGLE_KEY"),
		GoogleSecret:         os.Getenv("GOOGLE_SECRET"),
		GoogleCallbackURL:    getenv("GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),
	}

	if cfg.DBDriver != DriverSQLite && cfg.DBDriver != DriverPostgres {
		return nil, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, cfg.DBDriver)
	}

	defaults := rating.DefaultConfig()

	var err error
	if cfg.Port, err = intEnv("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}

	if cfg.EloKFactor, err = floatEnv("ELO_K_FACTOR", defaults.KFactor); err != nil {
		return nil, err
	}
	if cfg.EloDefaultRating, err = intEnv("ELO_DEFAULT_RATING", defaults.DefaultRating); err != nil {
		return nil, err
	}
	if err := cfg.Rating().Validate(); err != nil {
		return nil, fmt.Errorf("invalid rating configuration: %w", err)
	}

	lifetime := getenv("SESSION_LIFETIME", "8760h")
	if cfg.SessionLifetime, err = time.ParseDuration(lifetime); err != nil {
		return nil, fmt.Errorf("invalid SESSION_LIFETIME: %w", err)
	}
	if cfg.CookieSecure, err = boolEnv("COOKIE_SECURE", false); err != nil {
		return nil, err
	}

	if cfg.ReportRatePerMinute, err = intEnv("REPORT_RATE_PER_MINUTE", 30); err != nil {
		return nil, err
	}
	if cfg.ReportRatePerMinute < 0 {
		return nil, fmt.Errorf("REPORT_RATE_PER_MINUTE must not be negative, got %d", cfg.ReportRatePerMinute)
	}

	for _, origin := range strings.Split(getenv("CORS_ORIGINS", "http://localhost:8080"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func (c *Config) Rating() rating.Config {
	return rating.Config{KFactor: c.EloKFactor, DefaultRating: c.EloDefaultRating}
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleKey != "" && c.GoogleSecret != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return b, nil
}
