package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the persona-backend service.
type Config struct {
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Gemini      GeminiConfig
	ImageSearch ImageSearchConfig
	Billing     BillingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host      string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port      string `envconfig:"SERVER_PORT" default:"8080"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	DSN string `envconfig:"DATABASE_DSN" required:"true"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	URI string `envconfig:"REDIS_URI" required:"true"`
}

// GeminiConfig holds the completion provider configuration.
type GeminiConfig struct {
	APIKey string `envconfig:"GEMINI_API_KEY" required:"true"`
	Model  string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash-latest"`
}

// ImageSearchConfig holds the image search provider configuration.
type ImageSearchConfig struct {
	APIKey  string `envconfig:"IMAGE_SEARCH_API_KEY" required:"true"`
	BaseURL string `envconfig:"IMAGE_SEARCH_BASE_URL" default:"https://serpapi.com"`
}

// BillingConfig holds the payment provider configuration.
type BillingConfig struct {
	KeyID         string `envconfig:"BILLING_KEY_ID" required:"true"`
	KeySecret     string `envconfig:"BILLING_KEY_SECRET" required:"true"`
	PlanID        string `envconfig:"BILLING_PLAN_ID" required:"true"`
	WebhookSecret string `envconfig:"BILLING_WEBHOOK_SECRET" required:"true"`
	BaseURL       string `envconfig:"BILLING_BASE_URL" default:"https://api.razorpay.com"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration for logical errors beyond required fields.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	return nil
}
