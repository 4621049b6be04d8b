package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Stripe      StripeConfig      `yaml:"stripe"`
	Payments    PaymentsConfig    `yaml:"payments"`
	Auth        AuthConfig        `yaml:"auth"`
	Search      SearchConfig      `yaml:"search"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Logging     LoggingConfig     `yaml:"logging"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	CORS        CORSConfig        `yaml:"cors"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port                string `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	LogLevel string         `yaml:"log_level"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// StripeConfig holds the processor credentials
type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// PaymentsConfig contains payment flow settings
type PaymentsConfig struct {
	ProcessorTimeoutSeconds int    `yaml:"processor_timeout_seconds"`
	DefaultCurrency         string `yaml:"default_currency"`
	BreakerThreshold        int    `yaml:"breaker_threshold"`
	BreakerResetSeconds     int    `yaml:"breaker_reset_seconds"`
}

// AuthConfig contains JWT settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
	Index   string `yaml:"index"`
}

// RateLimitConfig contains rate limiting settings for payment endpoints
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	LogRequests bool   `yaml:"log_requests"`
}

// MaintenanceConfig contains background maintenance settings
type MaintenanceConfig struct {
	CounterAuditEnabled bool   `yaml:"counter_audit_enabled"`
	CounterAuditTime    string `yaml:"counter_audit_time"`
}

// CORSConfig contains allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                "8080",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 30,
		},
		Database: DatabaseConfig{
			Type:     "mysql",
			LogLevel: "warn",
			Postgres: PostgresConfig{
				SSLMode: "disable",
			},
		},
		Payments: PaymentsConfig{
			ProcessorTimeoutSeconds: 10,
			DefaultCurrency:         "gbp",
			BreakerThreshold:        5,
			BreakerResetSeconds:     30,
		},
		Auth: AuthConfig{
			Issuer: "stuhouses",
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Enabled: false,
				Host:    "http://meilisearch:7700",
				Index:   "properties",
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 10,
			RequestsPerHour:   100,
			RequestsPerDay:    500,
		},
		Logging: LoggingConfig{
			Level:       "info",
			LogRequests: true,
		},
		Maintenance: MaintenanceConfig{
			CounterAuditEnabled: false,
			CounterAuditTime:    "03:30",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate checks the settings the payment flows cannot run without.
// Call it after environment overrides have been applied.
func (c *Config) Validate() error {
	var errs []error
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("stripe.secret_key is required"))
	}
	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("stripe.webhook_secret is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Payments.ProcessorTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("payments.processor_timeout_seconds must be positive"))
	}
	switch c.Database.Type {
	case "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.type %q is not supported", c.Database.Type))
	}
	return errors.Join(errs...)
}

// GetProcessorTimeout returns the upstream call bound as a duration
func (c *PaymentsConfig) GetProcessorTimeout() time.Duration {
	return time.Duration(c.ProcessorTimeoutSeconds) * time.Second
}

// GetBreakerReset returns how long the processor breaker stays open
func (c *PaymentsConfig) GetBreakerReset() time.Duration {
	return time.Duration(c.BreakerResetSeconds) * time.Second
}

// GetReadTimeout returns the server read timeout as a duration
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// GetWriteTimeout returns the server write timeout as a duration
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// CounterAuditCron converts the HH:MM audit time to a cron specification.
// Example: "03:30" -> "30 3 * * *"
func (c *MaintenanceConfig) CounterAuditCron() (string, error) {
	var hour, minute int
	n, err := fmt.Sscanf(c.CounterAuditTime, "%d:%d", &hour, &minute)
	if err != nil || n != 2 || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid counter_audit_time %q, expected HH:MM", c.CounterAuditTime)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
