package riksdag

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything needed to talk to the API. Every field can be set
// from the environment.
type Config struct {
	BaseURL   string        `env:"RIKSDAG_BASE_URL" envDefault:"https://data.riksdagen.se"`
	UserAgent string        `env:"RIKSDAG_USER_AGENT" envDefault:"riksdag-client/1.0"`
	Timeout   time.Duration `env:"RIKSDAG_TIMEOUT" envDefault:"30s"`

	// Throttle
	RequestsPerSecond float64 `env:"RIKSDAG_REQUESTS_PER_SECOND" envDefault:"5"`
	Burst             int     `env:"RIKSDAG_BURST" envDefault:"5"`

	// Page cache, disabled when RedisURL is empty
	RedisURL string        `env:"RIKSDAG_REDIS_URL"`
	CacheTTL time.Duration `env:"RIKSDAG_CACHE_TTL" envDefault:"5m"`

	// Fetch
	MaxAttempts  int           `env:"RIKSDAG_MAX_ATTEMPTS" envDefault:"10"`
	RetryBackoff time.Duration `env:"RIKSDAG_RETRY_BACKOFF" envDefault:"1s"`
	MaxResults   int           `env:"RIKSDAG_MAX_RESULTS" envDefault:"10000"`
}

// LoadConfig reads the configuration from environment variables, using the
// defaults for unset ones.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the configuration with every variable unset.
func DefaultConfig() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("riksdag: invalid config defaults: %v", err))
	}
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user-agent is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", c.Timeout)
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst must be >= 0 (got %d)", c.Burst)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1 (got %d)", c.MaxAttempts)
	}
	if c.RetryBackoff <= 0 {
		return fmt.Errorf("retry backoff must be > 0 (got %s)", c.RetryBackoff)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("max results must be >= 1 (got %d)", c.MaxResults)
	}
	if c.RedisURL != "" {
		if _, err := url.Parse(c.RedisURL); err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
	}
	return nil
}
