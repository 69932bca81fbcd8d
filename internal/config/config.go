// Package config loads service settings from the environment and an optional .env.dev file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultDevSecret = "change-me-in-production"

type Config struct {
	Port     string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	NatsURL      string `mapstructure:"NATS_URL"`
	OtelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	AccessTokenSecret  string        `mapstructure:"ACCESS_TOKEN_SECRET"`
	AccessTokenExpiry  time.Duration `mapstructure:"ACCESS_TOKEN_EXPIRY"`
	RefreshTokenSecret string        `mapstructure:"REFRESH_TOKEN_SECRET"`
	RefreshTokenExpiry time.Duration `mapstructure:"REFRESH_TOKEN_EXPIRY"`
	CookieSecure       bool          `mapstructure:"COOKIE_SECURE"`

	UploadTempDir  string `mapstructure:"UPLOAD_TEMP_DIR"`
	S3Endpoint     string `mapstructure:"S3_ENDPOINT"`
	S3PublicURL    string `mapstructure:"S3_PUBLIC_URL"`
	S3Bucket       string `mapstructure:"S3_BUCKET_NAME"`
	S3UsePathStyle bool   `mapstructure:"S3_USE_PATH_STYLE"`
	AWSRegion      string `mapstructure:"AWS_REGION"`
	AWSAccessKey   string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `mapstructure:"AWS_SECRET_ACCESS_KEY"`

	RateLimitMax        int           `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitExpiration time.Duration `mapstructure:"RATE_LIMIT_EXPIRATION"`
}

// Load reads .env.dev (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.dev"); err != nil {
		slog.Info("No .env.dev file found, reading configuration from environment")
	}

	return FromViper(viper.New())
}

// FromViper resolves the configuration against v with environment lookup enabled.
func FromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8001")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "accounts")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4317")

	v.SetDefault("ACCESS_TOKEN_SECRET", defaultDevSecret)
	v.SetDefault("ACCESS_TOKEN_EXPIRY", "15m")
	v.SetDefault("REFRESH_TOKEN_SECRET", defaultDevSecret+"-refresh")
	v.SetDefault("REFRESH_TOKEN_EXPIRY", "240h")
	v.SetDefault("COOKIE_SECURE", true)

	v.SetDefault("UPLOAD_TEMP_DIR", "./public/temp")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_PUBLIC_URL", "")
	v.SetDefault("S3_BUCKET_NAME", "avatars")
	v.SetDefault("S3_USE_PATH_STYLE", false)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")

	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("RATE_LIMIT_EXPIRATION", "1m")
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("APP_PORT is required")
	}
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.AccessTokenExpiry <= 0 || c.RefreshTokenExpiry <= 0 {
		return errors.New("token expiries must be positive")
	}
	if c.AccessTokenExpiry >= c.RefreshTokenExpiry {
		return errors.New("ACCESS_TOKEN_EXPIRY must be shorter than REFRESH_TOKEN_EXPIRY")
	}
	if c.S3Bucket == "" {
		return errors.New("S3_BUCKET_NAME is required")
	}

	if c.IsProduction() {
		if len(c.AccessTokenSecret) < 32 || len(c.RefreshTokenSecret) < 32 {
			return errors.New("token secrets must be at least 32 characters in production")
		}
		if c.AccessTokenSecret == defaultDevSecret {
			return errors.New("ACCESS_TOKEN_SECRET must be changed from the default value in production")
		}
		if !c.CookieSecure {
			return errors.New("COOKIE_SECURE cannot be disabled in production")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// DatabaseURL builds the pgx DSN, escaping credentials.
func (c *Config) DatabaseURL() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return dsn.String()
}

func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
