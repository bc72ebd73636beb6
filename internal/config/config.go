package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "CRM"

type Config struct {
	// Server Configuration
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`

	// Database Configuration
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`

	// Analytics Configuration
	AnalyticsCacheTTL time.Duration `mapstructure:"analytics_cache_ttl"`

	// Rescoring Configuration
	RescoreSchedule  string `mapstructure:"rescore_schedule"`
	RescoreWorkers   int    `mapstructure:"rescore_workers"`
	RescoreBatchSize int    `mapstructure:"rescore_batch_size"`

	// HTTP Edge Configuration
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	CORSOrigins    []string `mapstructure:"cors_origins"`

	// Phone numbers without a country code are parsed in this region
	PhoneRegion string `mapstructure:"phone_region"`
}

// Load merges defaults, the optional config file at path (or crm.yaml in
// the working directory) and CRM_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("crm")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "production")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("analytics_cache_ttl", time.Minute)
	v.SetDefault("rescore_schedule", "0 0 * * * *")
	v.SetDefault("rescore_workers", 4)
	v.SetDefault("rescore_batch_size", 200)
	v.SetDefault("rate_limit_rps", 20.0)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("phone_region", "US")
}

func (c *Config) validate() error {
	if c.RescoreWorkers < 1 {
		return fmt.Errorf("rescore_workers must be at least 1, got %d", c.RescoreWorkers)
	}
	if c.RescoreBatchSize < 1 {
		return fmt.Errorf("rescore_batch_size must be at least 1, got %d", c.RescoreBatchSize)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return errors.New("rate_limit_rps and rate_limit_burst must be positive")
	}
	if c.AnalyticsCacheTTL < 0 {
		return errors.New("analytics_cache_ttl must not be negative")
	}
	return nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}
