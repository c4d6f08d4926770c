package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Acquiring AcquiringConfig
	Delivery  DeliveryConfig
	Receipt   ReceiptConfig
	Notify    NotifyConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            int    `env:"DB_PORT" envDefault:"5432"`
	User            string `env:"DB_USER" envDefault:"postgres"`
	Password        string `env:"DB_PASSWORD"`
	Database        string `env:"DB_NAME" envDefault:"gemstore"`
	MaxConnections  int    `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	MinConnections  int    `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	MaxConnLifetime int    `env:"DB_MAX_CONN_LIFETIME" envDefault:"300"` // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "console"
}

// AuthConfig holds token-verification configuration.
type AuthConfig struct {
	JWTSigningKey string `env:"JWT_SIGNING_KEY"`
}

// AcquiringConfig holds payment-processor configuration.
type AcquiringConfig struct {
	BaseURL        string   `env:"ACQUIRING_BASE_URL"`
	TerminalKey    string   `env:"ACQUIRING_TERMINAL_KEY"`
	SuccessURL     string   `env:"ACQUIRING_SUCCESS_URL"`
	FailURL        string   `env:"ACQUIRING_FAIL_URL"`
	TimeoutSeconds int      `env:"ACQUIRING_TIMEOUT" envDefault:"10"`
	AllowedCIDRs   []string `env:"ACQUIRING_ALLOWED_CIDRS" envSeparator:","`
}

// DeliveryConfig holds the per-provider delivery integration settings.
type DeliveryConfig struct {
	TimeoutSeconds int `env:"DELIVERY_TIMEOUT" envDefault:"10"`

	PlatformBaseURL      string   `env:"PLATFORM_DELIVERY_BASE_URL"`
	PlatformToken        string   `env:"PLATFORM_DELIVERY_TOKEN"`
	PlatformAllowedCIDRs []string `env:"PLATFORM_DELIVERY_ALLOWED_CIDRS" envSeparator:","`

	LockerBaseURL      string   `env:"LOCKER_BASE_URL"`
	LockerClientID     string   `env:"LOCKER_CLIENT_ID"`
	LockerClientSecret string   `env:"LOCKER_CLIENT_SECRET"`
	LockerAllowedCIDRs []string `env:"LOCKER_ALLOWED_CIDRS" envSeparator:","`

	PostalBaseURL      string   `env:"POSTAL_BASE_URL"`
	PostalAccessToken  string   `env:"POSTAL_ACCESS_TOKEN"`
	PostalFromIndex    string   `env:"POSTAL_FROM_INDEX"`
	PostalAllowedCIDRs []string `env:"POSTAL_ALLOWED_CIDRS" envSeparator:","`
}

// ReceiptConfig holds fiscal-receipt integration settings. The
// integration is optional; an empty base URL disables it.
type ReceiptConfig struct {
	BaseURL        string `env:"RECEIPT_BASE_URL"`
	APIKey         string `env:"RECEIPT_API_KEY"`
	TimeoutSeconds int    `env:"RECEIPT_TIMEOUT" envDefault:"10"`

	ArchiveEnabled bool   `env:"RECEIPT_ARCHIVE_ENABLED" envDefault:"false"`
	ArchiveBucket  string `env:"RECEIPT_ARCHIVE_BUCKET"`
	ArchiveRegion  string `env:"RECEIPT_ARCHIVE_REGION" envDefault:"eu-central-1"`
	ArchivePrefix  string `env:"RECEIPT_ARCHIVE_PREFIX" envDefault:"receipts/"`
}

// NotifyConfig holds the notification-service endpoint. Optional; an
// empty base URL disables outbound notifications.
type NotifyConfig struct {
	BaseURL        string `env:"NOTIFY_BASE_URL"`
	TimeoutSeconds int    `env:"NOTIFY_TIMEOUT" envDefault:"5"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.JWTSigningKey == "" {
		return fmt.Errorf("JWT signing key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Receipt.ArchiveEnabled && c.Receipt.ArchiveBucket == "" {
		return fmt.Errorf("receipt archive bucket is required when archiving is enabled")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
