package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	DatabaseURL   string   `env:"DATABASE_URL,required"`
	Port          int      `env:"PORT,default=8080"`
	LogLevel      string   `env:"LOG_LEVEL,default=info"`
	CORSOrigins   []string `env:"CORS_ORIGINS"`
	MigrationsDir string   `env:"MIGRATIONS_DIR,default=migrations"`

	// Session cookie settings
	CookieSecure    bool          `env:"COOKIE_SECURE,default=true"`
	SessionDuration time.Duration `env:"SESSION_DURATION,default=720h"`

	// Per-API-key rate limit applied on the /v1 surface
	APIRateLimitMax    int `env:"API_RATE_LIMIT_MAX,default=100"`
	APIRateLimitWindow int `env:"API_RATE_LIMIT_WINDOW,default=60"`

	// HTTP server timeouts
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT,default=60s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive, got %s", c.SessionDuration)
	}
	if c.APIRateLimitMax < 1 {
		return fmt.Errorf("API_RATE_LIMIT_MAX must be at least 1, got %d", c.APIRateLimitMax)
	}
	if c.APIRateLimitWindow < 1 {
		return fmt.Errorf("API_RATE_LIMIT_WINDOW must be at least 1 second, got %d", c.APIRateLimitWindow)
	}
	return nil
}
