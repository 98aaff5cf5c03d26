package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sternrassler/riksdag-client/pkg/logging"
	"github.com/Sternrassler/riksdag-client/pkg/riksdag"
)

// fileConfig is the YAML config file layout. Environment variables provide
// the defaults, the file overrides them and flags override the file.
type fileConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	RedisURL          string        `mapstructure:"redis_url"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	MaxResults        int           `mapstructure:"max_results"`
	MetricsAddr       string        `mapstructure:"metrics_addr"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// settings is the resolved CLI configuration.
type settings struct {
	API         riksdag.Config
	Log         logging.Config
	MetricsAddr string
}

// flagKeys binds persistent flags to config keys.
var flagKeys = map[string]string{
	"base-url":     "base_url",
	"redis-url":    "redis_url",
	"metrics-addr": "metrics_addr",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// loadSettings merges environment defaults, the optional config file at path
// and the changed flags of fs.
func loadSettings(path string, fs *pflag.FlagSet) (settings, error) {
	envCfg, err := riksdag.LoadConfig()
	if err != nil {
		return settings{}, err
	}

	v := viper.New()
	setDefaults(v, envCfg)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return settings{}, fmt.Errorf("error reading config: %w", err)
		}
	}

	for flag, key := range flagKeys {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return settings{}, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return settings{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	level, err := logging.ParseLevel(fc.Log.Level)
	if err != nil {
		return settings{}, err
	}
	format, err := logging.ParseFormat(fc.Log.Format)
	if err != nil {
		return settings{}, err
	}

	s := settings{
		API: riksdag.Config{
			BaseURL:           fc.BaseURL,
			UserAgent:         fc.UserAgent,
			Timeout:           fc.Timeout,
			RequestsPerSecond: fc.RequestsPerSecond,
			Burst:             fc.Burst,
			RedisURL:          fc.RedisURL,
			CacheTTL:          fc.CacheTTL,
			MaxAttempts:       fc.MaxAttempts,
			RetryBackoff:      fc.RetryBackoff,
			MaxResults:        fc.MaxResults,
		},
		Log:         logging.Config{Level: level, Format: format},
		MetricsAddr: fc.MetricsAddr,
	}
	if err := s.API.Validate(); err != nil {
		return settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

func setDefaults(v *viper.Viper, cfg riksdag.Config) {
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("requests_per_second", cfg.RequestsPerSecond)
	v.SetDefault("burst", cfg.Burst)
	v.SetDefault("redis_url", cfg.RedisURL)
	v.SetDefault("cache_ttl", cfg.CacheTTL)
	v.SetDefault("max_attempts", cfg.MaxAttempts)
	v.SetDefault("retry_backoff", cfg.RetryBackoff)
	v.SetDefault("max_results", cfg.MaxResults)
	v.SetDefault("metrics_addr", "")

	v.SetDefault("log.level", string(logging.LevelInfo))
	v.SetDefault("log.format", string(logging.FormatAuto))
}
