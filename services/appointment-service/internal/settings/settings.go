// Package settings loads the appointment service configuration from the
// environment.
package settings

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/pubike/pubike/libs/config"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"appointment-service"`
	Port        string `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	AppID            string `env:"APP_ID" envDefault:"default-app-id"`
	StoreConfig      string `env:"STORE_CONFIG"`
	InitialAuthToken string `env:"INITIAL_AUTH_TOKEN"`

	Auth struct {
		JWTSecret     string        `env:"AUTH_JWT_SECRET"`
		RSAPrivateKey string        `env:"AUTH_RSA_PRIVATE_KEY"`
		RSAKeyID      string        `env:"AUTH_RSA_KEY_ID"`
		JWKSURL       string        `env:"AUTH_JWKS_URL"`
		TokenTTL      time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
		IdentityURL   string        `env:"IDENTITY_URL"`
	}

	Kafka struct {
		Brokers string `env:"KAFKA_BROKERS"`
		GroupID string `env:"KAFKA_GROUP_ID" envDefault:"appointment-notifier"`
	}

	Notify struct {
		ProviderPhone string `env:"PROVIDER_PHONE"`
		WebhookURL    string `env:"SMS_WEBHOOK_URL"`
		WebhookToken  string `env:"SMS_WEBHOOK_TOKEN"`
	}

	RateLimit struct {
		PerMinute     int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
		FailOpen      bool   `env:"RATE_LIMIT_FAIL_OPEN" envDefault:"true"`
		TrustProxy    bool   `env:"RATE_LIMIT_TRUST_PROXY"`
		RedisAddr     string `env:"REDIS_ADDR"`
		RedisPassword string `env:"REDIS_PASSWORD"`
		RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
	CookieSecure       bool   `env:"COOKIE_SECURE"`
}

func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads configuration from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, opts); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	port, err := config.ValidatePort("PORT", cfg.Port)
	if err != nil {
		return nil, err
	}
	cfg.Port = port
	cfg.AppID = strings.TrimSpace(cfg.AppID)
	if cfg.AppID == "" {
		return nil, fmt.Errorf("APP_ID must not be blank")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return nil, fmt.Errorf("AUTH_TOKEN_TTL must be positive (got %s)", cfg.Auth.TokenTTL)
	}
	if cfg.RateLimit.PerMinute < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return cfg, nil
}

func (c *Config) CORSOrigins() []string {
	return config.List(c.CORSAllowedOrigins)
}

// RemoteIdentity reports whether sign-in is delegated to another service.
func (c *Config) RemoteIdentity() bool {
	return strings.TrimSpace(c.Auth.IdentityURL) != ""
}
