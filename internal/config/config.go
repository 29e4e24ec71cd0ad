package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
)

const (
	AuthModeDevelopment = "development"
	AuthModeJWT         = "jwt"
)

type Config struct {
	Port         string   `mapstructure:"PORT"`
	Env          string   `mapstructure:"ENV"`
	LogLevel     string   `mapstructure:"LOG_LEVEL"`
	AuthMode     string   `mapstructure:"AUTH_MODE"`
	DatabaseURL  string   `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer   string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience string   `mapstructure:"AUTH_AUDIENCE"`
	AuthKey      string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`
	CatalogDir   string   `mapstructure:"CATALOG_DIR"`
	TLSEnabled   bool     `mapstructure:"TLS_ENABLED"`
	TLSCertFile  string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile   string   `mapstructure:"TLS_KEY_FILE"`

	OverdueToleranceMonths int `mapstructure:"OVERDUE_TOLERANCE_MONTHS"`
	ReminderWindowMonths   int `mapstructure:"REMINDER_WINDOW_MONTHS"`
	ReminderLimit          int `mapstructure:"REMINDER_LIMIT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "AUTH_MODE",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "CATALOG_DIR",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	"OVERDUE_TOLERANCE_MONTHS", "REMINDER_WINDOW_MONTHS", "REMINDER_LIMIT",
}

// Load reads the environment and an optional .env file. Nothing is required
// here; Validate and RequireDatabase check what a given command needs.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	defaults := eligibility.DefaultOptions()
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("OVERDUE_TOLERANCE_MONTHS", defaults.OverdueToleranceMonths)
	v.SetDefault("REMINDER_WINDOW_MONTHS", defaults.ReminderWindowMonths)
	v.SetDefault("REMINDER_LIMIT", defaults.ReminderLimit)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ResolvedAuthMode returns AUTH_MODE when set, otherwise development auth in
// ENV=development and JWT everywhere else.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthModeDevelopment
	}
	return AuthModeJWT
}

// Level parses LOG_LEVEL, defaulting to info when empty.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// EligibilityOptions returns the evaluator options derived from the
// environment.
func (c *Config) EligibilityOptions() eligibility.Options {
	return eligibility.Options{
		OverdueToleranceMonths: c.OverdueToleranceMonths,
		ReminderWindowMonths:   c.ReminderWindowMonths,
		ReminderLimit:          c.ReminderLimit,
	}
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.OverdueToleranceMonths < 0 {
		return fmt.Errorf("OVERDUE_TOLERANCE_MONTHS must not be negative, got %d", c.OverdueToleranceMonths)
	}
	if c.ReminderWindowMonths < 0 {
		return fmt.Errorf("REMINDER_WINDOW_MONTHS must not be negative, got %d", c.ReminderWindowMonths)
	}
	if c.ReminderLimit < 0 {
		return fmt.Errorf("REMINDER_LIMIT must not be negative, got %d", c.ReminderLimit)
	}
	return nil
}

// ValidateServer checks what the HTTP server needs on top of Validate.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.RequireDatabase(); err != nil {
		return err
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case AuthModeDevelopment:
	case AuthModeJWT:
		if len(c.AuthKey) < 32 {
			return fmt.Errorf(
				"AUTH_SIGNING_KEY must be at least 32 bytes when AUTH_MODE is %q (current ENV=%q). "+
					"Refusing to start without authentication configuration", mode, c.Env)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeDevelopment, AuthModeJWT, mode)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}
	return nil
}

func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}
