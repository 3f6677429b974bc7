package dbconfig

import (
	"fmt"
	"net/url"

	"github.com/mcdev12/nightskip/go/internal/config"
)

// Config holds Postgres connection settings.
type Config struct {
	Driver   string `env:"DB_DRIVER"   envDefault:"postgres"`
	Host     string `env:"DB_HOST"     envDefault:"localhost"`
	Port     int    `env:"DB_PORT"     envDefault:"5432"`
	User     string `env:"DB_USER"     envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Database string `env:"DB_NAME"     envDefault:"nightskip"`
	SSLMode  string `env:"DB_SSLMODE"  envDefault:"disable"`
}

// NewConfigFromEnv reads DB_* environment variables (with defaults).
func NewConfigFromEnv() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DSN returns the Postgres connection URL. Both lib/pq and pgx accept it.
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
