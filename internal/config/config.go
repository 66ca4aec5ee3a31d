package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required" validate:"required"`

	JWTSecret       string `env:"JWT_SECRET,required" validate:"required,min=32"`
	ServiceAPIToken string `env:"SERVICE_API_TOKEN,required" validate:"required,min=32"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	CatalogPath string `env:"CATALOG_PATH" envDefault:"catalog.yaml" validate:"required"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"" validate:"omitempty,oneof=resend"`
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"omitempty,email"`

	SentryDSN string `env:"SENTRY_DSN"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if strings.TrimSpace(c.EmailProvider) != "" {
		if strings.TrimSpace(c.ResendAPIKey) == "" {
			return fmt.Errorf("RESEND_API_KEY is required when EMAIL_PROVIDER is set")
		}
		if strings.TrimSpace(c.EmailFrom) == "" {
			return fmt.Errorf("EMAIL_FROM is required when EMAIL_PROVIDER is set")
		}
	}

	if strings.TrimSpace(c.JWTSecret) == strings.TrimSpace(c.ServiceAPIToken) {
		return fmt.Errorf("JWT_SECRET and SERVICE_API_TOKEN must differ")
	}

	return nil
}

// EmailEnabled reports whether an outbound email provider is configured.
func (c *Config) EmailEnabled() bool {
	return strings.TrimSpace(c.EmailProvider) != ""
}
