package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Bananas"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"bananas"`
		SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	}

	Ledger struct {
		DefaultPageSize int `envconfig:"LEDGER_PAGE_SIZE_DEFAULT" default:"20"`
		MinPageSize     int `envconfig:"LEDGER_PAGE_SIZE_MIN" default:"10"`
		MaxPageSize     int `envconfig:"LEDGER_PAGE_SIZE_MAX" default:"500"`
	}

	Import struct {
		MaxBytes      int64 `envconfig:"IMPORT_MAX_BYTES" default:"10485760"`
		RatePerMinute int   `envconfig:"IMPORT_RATE_PER_MINUTE" default:"6"`
		Burst         int   `envconfig:"IMPORT_BURST" default:"2"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	l := c.Ledger

	if l.MinPageSize < 1 || l.MaxPageSize < l.MinPageSize {
		return fmt.Errorf("invalid page size bounds [%d, %d]", l.MinPageSize, l.MaxPageSize)
	}

	if l.DefaultPageSize < l.MinPageSize || l.DefaultPageSize > l.MaxPageSize {
		return fmt.Errorf("default page size %d outside [%d, %d]", l.DefaultPageSize, l.MinPageSize, l.MaxPageSize)
	}

	if c.Import.RatePerMinute < 1 || c.Import.Burst < 1 {
		return fmt.Errorf("import rate %d/min with burst %d must both be positive", c.Import.RatePerMinute, c.Import.Burst)
	}

	return nil
}
