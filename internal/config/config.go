package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the full service configuration, read from the environment with
// sensible development defaults.
type Config struct {
	Environment string `env:"APP_ENV" env-default:"development"`
	Port        string `env:"PORT" env-default:"8080"`
	FrontendURL string `env:"FRONTEND_URL" env-default:"http://localhost:5173"`

	DBHost     string `env:"DB_HOST" env-default:"localhost"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`
	DBUser     string `env:"DB_USER" env-default:"postgres"`
	DBPassword string `env:"DB_PASSWORD" env-default:"postgres"`
	DBName     string `env:"DB_NAME" env-default:"postgres"`
	DBSSLMode  string `env:"DB_SSLMODE" env-default:"disable"`

	// Empty RedisAddr keeps auth rate limiting in process memory; set it to
	// share one budget across instances behind a load balancer.
	RedisAddr     string `env:"REDIS_ADDR" env-default:""`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`

	AuthRateLimitWindow time.Duration `env:"AUTH_RATE_LIMIT_WINDOW" env-default:"1m"`
	AuthRateLimitMax    int           `env:"AUTH_RATE_LIMIT_MAX" env-default:"10"`
}

// Load reads configs/.env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return &cfg, nil
}

// DSN assembles the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
