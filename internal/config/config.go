package config

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultEnv            = "dev"
	defaultDBPath         = "./dev.db"
	defaultPort           = "8080"
	defaultJWTTTL         = 7 * 24 * time.Hour
	defaultLogLevel       = "info"
	defaultTierCacheTTL   = 10 * time.Minute
	defaultLoginPerMinute = 5
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env           string
	Port          string
	DBPath        string
	AdminEmail    string
	AdminPassword string

	JWTSecret string
	JWTTTL    time.Duration

	LogLevel  string
	LogFormat string

	RedisURL     string
	TierCacheTTL time.Duration

	LoginRatePerMinute int

	Razorpay RazorpayConfig

	warnings []string
}

// RazorpayConfig carries the payment gateway credentials. Empty key id or secret
// leaves payments disabled.
type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// Enabled reports whether gateway credentials are present.
func (r RazorpayConfig) Enabled() bool {
	return r.KeyID != "" && r.KeySecret != ""
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: a missing .env is fine, production injects real variables.
	_ = loadDotEnv(".env")

	cfg := Config{
		Env:           getenv("APP_ENV", defaultEnv),
		Port:          getenv("PORT", defaultPort),
		DBPath:        getenv("DB_PATH", defaultDBPath),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogLevel:      getenv("LOG_LEVEL", defaultLogLevel),
		LogFormat:     os.Getenv("LOG_FORMAT"),
		RedisURL:      os.Getenv("REDIS_URL"),
		Razorpay: RazorpayConfig{
			KeyID:         os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
			WebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		},
	}

	cfg.JWTTTL = cfg.duration("JWT_TTL", defaultJWTTTL)
	cfg.TierCacheTTL = cfg.duration("TIER_CACHE_TTL", defaultTierCacheTTL)
	cfg.LoginRatePerMinute = cfg.positiveInt("LOGIN_RATE_PER_MINUTE", defaultLoginPerMinute)

	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
		if cfg.IsDev() {
			cfg.LogFormat = "console"
		}
	}

	if cfg.AdminEmail == "" {
		cfg.warn("ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		cfg.warn("ADMIN_PASSWORD is not set")
	}
	if cfg.JWTSecret == "" {
		cfg.warn("JWT_SECRET is not set")
	}
	if !cfg.Razorpay.Enabled() {
		cfg.warn("RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET are not set, payments disabled")
	}
	if cfg.Razorpay.Enabled() && cfg.Razorpay.WebhookSecret == "" {
		cfg.warn("RAZORPAY_WEBHOOK_SECRET is not set, webhooks will be rejected")
	}

	return cfg
}

// IsDev reports whether the application runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

// Warnings lists configuration problems found by Load. Logging them is up to the caller.
func (c Config) Warnings() []string {
	return append([]string(nil), c.warnings...)
}

func (c *Config) warn(msg string) {
	c.warnings = append(c.warnings, msg)
}

func (c *Config) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		c.warn(key + " is not a valid positive duration, using default")
		return fallback
	}
	return d
}

func (c *Config) positiveInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.warn(key + " is not a valid positive integer, using default")
		return fallback
	}
	return n
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
