// Package config loads MeetUpz CLI configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meetupz/meetupz/client"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Log formats accepted by LOG_FORMAT.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config holds the client configuration.
// Environment variables are parsed from the MEETUPZ_ prefix.
type Config struct {
	APIURL          string        `envconfig:"API_URL" default:"http://localhost:8080/api"`
	DataDir         string        `envconfig:"DATA_DIR" default:""`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"console"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	RefreshDebounce time.Duration `envconfig:"REFRESH_DEBOUNCE" default:"300ms"`
	UpcomingGrace   time.Duration `envconfig:"UPCOMING_GRACE" default:"1h"`
	ReviewFanout    int           `envconfig:"REVIEW_FANOUT" default:"8"`
	Debug           bool          `envconfig:"DEBUG" default:"false"`
	Environment     Environment   `envconfig:"ENVIRONMENT" default:"development"`
}

const prefix = "MEETUPZ"

// Load reads a .env file from the working directory unless running in
// production, then parses MEETUPZ_ variables.
func Load() (*Config, error) {
	if Environment(os.Getenv(prefix+"_ENVIRONMENT")) != EnvProduction {
		if err := godotenv.Load(); err != nil {
			log.Debug().Err(err).Msg(".env not loaded")
		}
	}
	return New()
}

// New parses MEETUPZ_ variables without touching .env.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("api_url", cfg.APIURL).
		Str("data_dir", cfg.DataDir).
		Str("environment", string(cfg.Environment)).
		Dur("http_timeout", cfg.HTTPTimeout).
		Dur("refresh_debounce", cfg.RefreshDebounce).
		Int("review_fanout", cfg.ReviewFanout).
		Msg("Configuration loaded")

	return &cfg, nil
}

// Validate rejects values the client would refuse anyway.
func (c *Config) Validate() error {
	switch {
	case c.HTTPTimeout <= 0:
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	case c.RefreshDebounce < 0:
		return fmt.Errorf("REFRESH_DEBOUNCE must not be negative, got %s", c.RefreshDebounce)
	case c.UpcomingGrace < 0:
		return fmt.Errorf("UPCOMING_GRACE must not be negative, got %s", c.UpcomingGrace)
	case c.ReviewFanout < 1:
		return fmt.Errorf("REVIEW_FANOUT must be at least 1, got %d", c.ReviewFanout)
	}
	if c.LogFormat != LogFormatConsole && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("LOG_FORMAT must be %q or %q, got %q", LogFormatConsole, LogFormatJSON, c.LogFormat)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return nil
}

// Level returns the parsed log level; Debug forces debug.
func (c *Config) Level() zerolog.Level {
	if c.Debug {
		return zerolog.DebugLevel
	}
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// ClientOptions translates the config into SDK options.
func (c *Config) ClientOptions() []client.Option {
	return []client.Option{
		client.WithHTTPTimeout(c.HTTPTimeout),
		client.WithRefreshDebounce(c.RefreshDebounce),
		client.WithUpcomingGrace(c.UpcomingGrace),
		client.WithReviewFanout(c.ReviewFanout),
		client.WithDebugLogging(c.Debug),
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
