package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultDatabaseURL       = "auth.db"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultPasswordSalt      = "change-me-password-salt"
	defaultJWTAccessTTL      = "15m"
	defaultRefreshTTL        = "168h"
	defaultPasswordRounds    = "29000"
	defaultLogLevel          = "info"
	defaultRateLimitEnabled  = "true"
	defaultRateLimitDefault  = "100"
	defaultRateLimitLogin    = "10"
	defaultRateLimitWindow   = "1m"
	defaultSweepInterval     = "1h"
	defaultDBTimeout         = "5s"
	minProdJWTSecretLength   = 32
	minPasswordIterations    = 1000
	defaultSeedAdminUsername = "admin"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string
	LogLevel    string

	JWTSecret     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration

	PasswordSalt       string
	PasswordIterations int

	RedisURL         string
	RateLimitEnabled bool
	RateLimitDefault int
	RateLimitLogin   int
	RateLimitWindow  time.Duration

	CORSAllowedOrigins []string
	SweepInterval      time.Duration
	DBTimeout          time.Duration

	SeedAdminEmail    string
	SeedAdminUsername string
	SeedAdminPassword string
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.PasswordSalt = getEnv("PASSWORD_SALT", defaultPasswordSalt)
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.RateLimitEnabled = parseBoolEnv("RATE_LIMIT_ENABLED", defaultRateLimitEnabled)
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	cfg.SeedAdminEmail = strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL"))
	cfg.SeedAdminUsername = strings.TrimSpace(getEnv("SEED_ADMIN_USERNAME", defaultSeedAdminUsername))
	cfg.SeedAdminPassword = os.Getenv("SEED_ADMIN_PASSWORD")

	var err error
	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTTL, err = parseDurationEnv("JWT_REFRESH_TTL", defaultRefreshTTL); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = parseDurationEnv("RATE_LIMIT_WINDOW", defaultRateLimitWindow); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.DBTimeout, err = parseDurationEnv("DB_TIMEOUT", defaultDBTimeout); err != nil {
		return nil, err
	}
	if cfg.PasswordIterations, err = parseIntEnv("PASSWORD_ITERATIONS", defaultPasswordRounds); err != nil {
		return nil, err
	}
	if cfg.RateLimitDefault, err = parseIntEnv("RATE_LIMIT_DEFAULT", defaultRateLimitDefault); err != nil {
		return nil, err
	}
	if cfg.RateLimitLogin, err = parseIntEnv("RATE_LIMIT_LOGIN", defaultRateLimitLogin); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

// RateLimitActive reports whether requests should go through the redis limiter.
func (c *Config) RateLimitActive() bool {
	return c.RateLimitEnabled && c.RedisURL != ""
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.JWTRefreshTTL <= 0 {
		return fmt.Errorf("JWT_REFRESH_TTL must be > 0")
	}
	if cfg.JWTRefreshTTL <= cfg.JWTAccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL must be longer than JWT_ACCESS_TTL")
	}
	if cfg.PasswordIterations < minPasswordIterations {
		return fmt.Errorf("PASSWORD_ITERATIONS must be >= %d", minPasswordIterations)
	}
	if cfg.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if cfg.DBTimeout <= 0 {
		return fmt.Errorf("DB_TIMEOUT must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if len(cfg.JWTSecret) < minProdJWTSecretLength {
			return fmt.Errorf("in prod/release JWT_SECRET must be at least %d characters", minProdJWTSecretLength)
		}
		if isEmptyOrDefault(cfg.PasswordSalt, defaultPasswordSalt) {
			return fmt.Errorf("in prod/release PASSWORD_SALT must be set and not default")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
