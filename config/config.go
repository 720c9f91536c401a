package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Port         string `mapstructure:"PORT"`
	Env          string `mapstructure:"ENV"`
	DBURL        string `mapstructure:"DB_URL"`
	RedisAddress string `mapstructure:"REDIS_URL"`
	BearerToken  string `mapstructure:"API_BEARER_TOKEN"`
	SymmetricKey string `mapstructure:"SYMMETRIC_KEY"`

	RedisPoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	RedisMinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	RedisDialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	RedisReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	RedisMaxRetries   int           `mapstructure:"REDIS_MAX_RETRIES"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`

	TwilioAccountSID string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `mapstructure:"TWILIO_FROM_NUMBER"`

	SentryDSN string `mapstructure:"SENTRY_DSN"`

	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	CancelWindow            time.Duration `mapstructure:"BOOKING_CANCEL_WINDOW"`
	RescheduleConflictCheck bool          `mapstructure:"BOOKING_RESCHEDULE_CONFLICT_CHECK"`
	Timezone                string        `mapstructure:"BOOKING_TIMEZONE"`
}

var envKeys = []string{
	"PORT", "ENV", "DB_URL", "REDIS_URL", "API_BEARER_TOKEN", "SYMMETRIC_KEY",
	"REDIS_POOL_SIZE", "REDIS_MIN_IDLE_CONNS", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_MAX_RETRIES",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS",
	"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER",
	"SENTRY_DSN",
	"ADMIN_USERNAME", "ADMIN_EMAIL", "ADMIN_PASSWORD",
	"BOOKING_CANCEL_WINDOW", "BOOKING_RESCHEDULE_CONFLICT_CHECK", "BOOKING_TIMEZONE",
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8930")
	v.SetDefault("ENV", "production")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "30s")
	v.SetDefault("REDIS_READ_TIMEOUT", "10s")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 15)
	v.SetDefault("RATE_LIMIT_BURST", 30)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_EMAIL", "admin@hospital.local")
	v.SetDefault("BOOKING_CANCEL_WINDOW", "24h")
	v.SetDefault("BOOKING_RESCHEDULE_CONFLICT_CHECK", true)
	v.SetDefault("BOOKING_TIMEZONE", "Local")

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DBURL == "" {
		return nil, fmt.Errorf("missing DB_URL environment variable")
	}
	if cfg.RedisAddress == "" {
		return nil, fmt.Errorf("missing REDIS_URL environment variable")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at first use.
func (c *AppConfig) Validate() error {
	if len(c.SymmetricKey) != 32 {
		return fmt.Errorf("SYMMETRIC_KEY must be 32 bytes long, got %d", len(c.SymmetricKey))
	}
	if c.SMTPHost != "" && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		return fmt.Errorf("invalid SMTP_PORT value: %d", c.SMTPPort)
	}
	if c.CancelWindow < 0 {
		return fmt.Errorf("BOOKING_CANCEL_WINDOW must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// GetBearerToken returns the BearerToken from the config
func (c *AppConfig) GetBearerToken() string {
	return c.BearerToken
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

// Location is the timezone slot dates and times are interpreted in.
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *AppConfig) EmailEnabled() bool {
	return c.SMTPHost != ""
}

func (c *AppConfig) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}
