// Package config loads application configuration from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all runtime configuration values. Nested structs group the
// settings of one concern and carry their own env prefix.
type Config struct {
	Env            string   `env:"APP_ENV,default=dev"`              // application environment (dev, test, prod)
	Port           string   `env:"SERVER_PORT,default=8080"`         // HTTP port to listen on
	BcryptCost     int      `env:"BCRYPT_COST,default=10"`           // bcrypt cost for password hashing
	OTLPEndpoint   string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`      // tracing is disabled when empty
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=*"`   // CORS origins, "*" reflects any origin

	Database    DatabaseConfig    `env:",prefix=DATABASE_"`
	Tokens      TokenConfig
	Credentials CredentialOptions `env:",prefix=CREDENTIALS_"`
	Cache       CacheConfig       `env:",prefix=CACHE_"`
	Redis       RedisConfig       `env:",prefix=REDIS_"`
	Queue       QueueConfig
}

// DatabaseConfig selects the gorm dialect and connection.
type DatabaseConfig struct {
	Dialect string `env:"DIALECT,default=sqlite"` // mysql, postgres or sqlite
	URL     string `env:"URL,required"`           // DSN, or a file path for sqlite
	Logging bool   `env:"LOGGING,default=false"`  // log every SQL statement
}

// TokenConfig holds the signing secrets and lifetimes of both token kinds.
// The two secrets must differ so one key cannot forge the other token type.
type TokenConfig struct {
	AccessSecret  string        `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshSecret string        `env:"REFRESH_TOKEN_SECRET,required"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_EXPIRES,default=15m"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_EXPIRES,default=168h"`
}

// CredentialOptions is the username/password strength policy applied on
// registration and login.
type CredentialOptions struct {
	UserMinLength  int `env:"USER_MIN_LENGTH,default=3"`
	UserMaxLength  int `env:"USER_MAX_LENGTH,default=32"`
	PassMinLength  int `env:"PASS_MIN_LENGTH,default=8"`
	PassMinNumbers int `env:"PASS_MIN_NUMBERS,default=0"`
	PassMinSymbols int `env:"PASS_MIN_SYMBOLS,default=0"`
	PassMinUpper   int `env:"PASS_MIN_UPPER,default=0"`
	PassMinLower   int `env:"PASS_MIN_LOWER,default=0"`
}

var (
	ErrSameSecrets    = errors.New("access and refresh token secrets must differ")
	ErrUnknownDialect = errors.New("unknown database dialect")
)

// Load reads the process environment. Missing required variables and
// inconsistent values are reported as errors.
func Load(ctx context.Context) (Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through the given lookuper so tests can
// supply a fixed environment.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Tokens.AccessSecret == c.Tokens.RefreshSecret {
		return ErrSameSecrets
	}
	c.Database.Dialect = strings.ToLower(strings.TrimSpace(c.Database.Dialect))
	switch c.Database.Dialect {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDialect, c.Database.Dialect)
	}
	if c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Credentials.UserMaxLength > 0 && c.Credentials.UserMaxLength < c.Credentials.UserMinLength {
		return errors.New("CREDENTIALS_USER_MAX_LENGTH is below CREDENTIALS_USER_MIN_LENGTH")
	}
	return nil
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}
