// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN for profiles, verification attempts, and audit logs.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis address for signup session state and send rate limiting (e.g. localhost:6379).
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the Redis password; empty for no auth.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// IdentityBaseURL is the base URL of the identity provider (GoTrue-style auth API).
	IdentityBaseURL string `mapstructure:"IDENTITY_BASE_URL"`
	// IdentityServiceKey is the service-role key used for admin calls (identity deletion).
	IdentityServiceKey string `mapstructure:"IDENTITY_SERVICE_KEY"`

	// VerifyBaseURL is the base URL of the hosted verification (OTP) service.
	VerifyBaseURL string `mapstructure:"VERIFY_BASE_URL"`
	// VerifyAPIKey authenticates against the verification service.
	VerifyAPIKey string `mapstructure:"VERIFY_API_KEY"`
	// VerifyDevMode when true swaps the hosted verification service for a local
	// in-process channel that stores codes in memory. Must not be true when Env is
	// production (startup error).
	VerifyDevMode bool `mapstructure:"VERIFY_DEV_MODE"`

	// PostalBaseURL is the base URL of the postal lookup service (default ViaCEP).
	PostalBaseURL string `mapstructure:"POSTAL_BASE_URL"`

	// CodeTTL is the verification code lifetime (e.g. "10m").
	CodeTTL string `mapstructure:"CODE_TTL"`
	// ResendCooldown is the minimum interval between code sends per channel (e.g. "60s").
	ResendCooldown string `mapstructure:"RESEND_COOLDOWN"`
	// MaxCodeChecks is the number of mismatched checks before an attempt is locked out.
	MaxCodeChecks int `mapstructure:"MAX_CODE_CHECKS"`
	// SendWindow / MaxSendsInWindow bound total sends per target regardless of cooldown.
	SendWindow       string `mapstructure:"SEND_WINDOW"`
	MaxSendsInWindow int    `mapstructure:"MAX_SENDS_IN_WINDOW"`

	// SessionTTL is how long an abandoned signup session is kept (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// ChannelOrder is the comma-separated verification order (default "phone,email").
	ChannelOrder string `mapstructure:"SIGNUP_CHANNEL_ORDER"`

	// AllowedOrigins is the comma-separated CORS allowlist for the web frontend.
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	// OTLPEndpoint enables telemetry export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("IDENTITY_BASE_URL", "")
	v.SetDefault("IDENTITY_SERVICE_KEY", "")
	v.SetDefault("VERIFY_BASE_URL", "")
	v.SetDefault("VERIFY_API_KEY", "")
	v.SetDefault("VERIFY_DEV_MODE", false)
	v.SetDefault("POSTAL_BASE_URL", "https://viacep.com.br/ws")
	v.SetDefault("CODE_TTL", "10m")
	v.SetDefault("RESEND_COOLDOWN", "60s")
	v.SetDefault("MAX_CODE_CHECKS", 5)
	v.SetDefault("SEND_WINDOW", "1h")
	v.SetDefault("MAX_SENDS_IN_WINDOW", 10)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SIGNUP_CHANNEL_ORDER", "phone,email")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.VerifyDevMode && cfg.Env == "production" {
		return nil, errors.New("config: VERIFY_DEV_MODE must not be true when APP_ENV=production")
	}

	if !cfg.VerifyDevMode && cfg.VerifyBaseURL == "" {
		return nil, errors.New("config: VERIFY_BASE_URL must be set unless VERIFY_DEV_MODE=true")
	}

	if cfg.MaxCodeChecks <= 0 {
		cfg.MaxCodeChecks = 5
	}
	if cfg.MaxSendsInWindow <= 0 {
		cfg.MaxSendsInWindow = 10
	}

	for _, ch := range cfg.ChannelOrderList() {
		if ch != "phone" && ch != "email" {
			return nil, errors.New("config: SIGNUP_CHANNEL_ORDER entries must be phone or email")
		}
	}

	return &cfg, nil
}

// CodeTTLDuration parses CodeTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) CodeTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CodeTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// ResendCooldownDuration parses ResendCooldown as a time.Duration. Returns 60s if unset or invalid.
func (c *Config) ResendCooldownDuration() time.Duration {
	d, err := time.ParseDuration(c.ResendCooldown)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// SendWindowDuration parses SendWindow as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) SendWindowDuration() time.Duration {
	d, err := time.ParseDuration(c.SendWindow)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// SessionTTLDuration parses SessionTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// ChannelOrderList returns the verification channel order from the comma-separated config.
func (c *Config) ChannelOrderList() []string {
	parts := strings.Split(c.ChannelOrder, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"phone", "email"}
	}
	return out
}

// AllowedOriginsList returns the CORS origin allowlist from the comma-separated config.
func (c *Config) AllowedOriginsList() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
