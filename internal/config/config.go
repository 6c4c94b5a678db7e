package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/config"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/database"
)

const defaultSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8000"`

	// Base URL used in verification and reset links
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"auth"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"auth_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"auth_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT: the access and refresh tokens are signed with distinct secrets.
	AccessTokenSecret  string        `env:"ACCESSTOKEN_SECRET" envDefault:"change-this-to-a-secure-secret"`
	RefreshTokenSecret string        `env:"REFRESHTOKEN_SECRET" envDefault:"change-this-to-a-secure-secret"`
	AccessTokenExpiry  time.Duration `env:"ACCESSTOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESHTOKEN_EXPIRY" envDefault:"168h"`

	// SMTP
	SMTPHost     string `env:"SMTP_HOST" envDefault:"sandbox.smtp.mailtrap.io"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"2525"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPSender   string `env:"SMTP_SENDER" envDefault:"no-reply@example.com"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := pkgconfig.Load[Config]()
	if err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.AccessTokenExpiry <= 0 || cfg.RefreshTokenExpiry <= 0 {
		return nil, fmt.Errorf("token expiries must be positive")
	}

	// In non-development environments, require explicitly set, strong secrets.
	if cfg.Environment != "development" {
		for name, secret := range map[string]string{
			"ACCESSTOKEN_SECRET":  cfg.AccessTokenSecret,
			"REFRESHTOKEN_SECRET": cfg.RefreshTokenSecret,
		} {
			if secret == defaultSecret {
				return nil, fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, cfg.Environment)
			}
			if len(secret) < 32 {
				return nil, fmt.Errorf("%s must be at least 32 characters long, got %d", name, len(secret))
			}
		}
	}

	return cfg, nil
}

// Postgres returns the connection settings for the database pool.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	return pg
}
