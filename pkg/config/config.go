package config

// Package config provides a reusable loader for fedcore configuration files
// and environment variables. It is versioned so that applications can depend
// on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/fedcore/federation/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a fedcore instance. It
// mirrors the structure of the YAML files Load looks for (default.yaml and
// <env>.yaml under cmd/fedcored/config or config).
type Config struct {
	Instance struct {
		Origin       string `mapstructure:"origin" json:"origin"`
		ActorKeyPath string `mapstructure:"actor_key_path" json:"actor_key_path"`
		Ed25519Path  string `mapstructure:"ed25519_key_path" json:"ed25519_key_path"`
	} `mapstructure:"instance" json:"instance"`

	Fetcher struct {
		UserAgent        string        `mapstructure:"user_agent" json:"user_agent"`
		Timeout          time.Duration `mapstructure:"timeout" json:"timeout"`
		WebfingerTimeout time.Duration `mapstructure:"webfinger_timeout" json:"webfinger_timeout"`
		MaxResponseBytes int64         `mapstructure:"max_response_bytes" json:"max_response_bytes"`
	} `mapstructure:"fetcher" json:"fetcher"`

	Ingress struct {
		BatchSize   int           `mapstructure:"batch_size" json:"batch_size"`
		JobTimeout  time.Duration `mapstructure:"job_timeout" json:"job_timeout"`
		RetriesMax  int           `mapstructure:"retries_max" json:"retries_max"`
		RetryBackoff time.Duration `mapstructure:"retry_backoff" json:"retry_backoff"`
	} `mapstructure:"ingress" json:"ingress"`

	Egress struct {
		DelivererPoolSize      int           `mapstructure:"deliverer_pool_size" json:"deliverer_pool_size"`
		RetriesMax             int           `mapstructure:"retries_max" json:"retries_max"`
		UnreachableNoRetry     time.Duration `mapstructure:"unreachable_noretry" json:"unreachable_noretry"`
	} `mapstructure:"egress" json:"egress"`

	Payment struct {
		InvoiceTimeout     time.Duration `mapstructure:"invoice_timeout" json:"invoice_timeout"`
		ConfirmationsSafe  int64         `mapstructure:"confirmations_safe" json:"confirmations_safe"`
		TickInterval       time.Duration `mapstructure:"tick_interval" json:"tick_interval"`
	} `mapstructure:"payment" json:"payment"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Addr    string `mapstructure:"addr" json:"addr"`
	} `mapstructure:"metrics" json:"metrics"`
}

// Defaults mirror the literal constants named throughout spec.md §4.
func Defaults() Config {
	var c Config
	c.Instance.Origin = "https://example.social"
	c.Fetcher.UserAgent = "fedcore/0.1"
	c.Fetcher.Timeout = 10 * time.Second
	c.Fetcher.WebfingerTimeout = 5 * time.Second
	c.Fetcher.MaxResponseBytes = 2 << 20 // 2 MiB
	c.Ingress.BatchSize = 16
	c.Ingress.JobTimeout = 3600 * time.Second / 6
	c.Ingress.RetriesMax = 2
	c.Ingress.RetryBackoff = 10 * time.Minute
	c.Egress.DelivererPoolSize = 4
	c.Egress.RetriesMax = 3
	c.Egress.UnreachableNoRetry = 30 * 24 * time.Hour
	c.Payment.InvoiceTimeout = 3 * time.Hour
	c.Payment.ConfirmationsSafe = 3
	c.Payment.TickInterval = 30 * time.Second
	c.Logging.Level = "info"
	c.Metrics.Enabled = true
	c.Metrics.Addr = ":9090"
	return c
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig = Defaults()

// Load reads configuration files and merges any environment specific
// overrides on top of Defaults. The resulting configuration is stored in
// AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If no config file is found, Defaults() is used as-is: environment
// variables override only keys that a loaded config file defines.
func Load(env string) (*Config, error) {
	cfg := Defaults()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/fedcored/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
			}
		}
	}

	viper.AutomaticEnv() // no FEDCORE_ prefix or key replacer is set; no .env file is read

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	AppConfig = cfg
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the FEDCORE_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("FEDCORE_ENV", ""))
}
