// Package config provides configuration management for the F1 winner pipeline.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "F1_WINNER"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// setDefaults registers every optional key so AutomaticEnv can override it
// even when the file omits it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "f1-winner")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "f1")
	v.SetDefault("database.user", "f1")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 4)

	v.SetDefault("data_source.name", "f1api")
	v.SetDefault("data_source.base_url", "https://f1api.dev/api")
	v.SetDefault("data_source.timeout_seconds", 20)
	v.SetDefault("data_source.max_retries", 3)
	v.SetDefault("data_source.rate_limit", 0.8)
	v.SetDefault("data_source.circuit_breaker_max", 5)
	v.SetDefault("data_source.sessions", []string{
		"practice1", "practice2", "practice3",
		"sprint_qualifying", "sprint_race", "qualifying", "race",
	})

	v.SetDefault("features.form_window", 5)
	v.SetDefault("features.form_min_samples", 3)
	v.SetDefault("features.team_window", 24)
	v.SetDefault("features.team_min_samples", 3)
	v.SetDefault("features.form_scope", "season")
	v.SetDefault("features.qualifying_weights.grid", 0.5)
	v.SetDefault("features.qualifying_weights.stage", 0.3)
	v.SetDefault("features.qualifying_weights.pace", 0.2)

	v.SetDefault("training.model_name", "winner_classifier")
	v.SetDefault("training.artifact_dir", "artifacts")
	v.SetDefault("training.min_rows", 50)
	v.SetDefault("training.holdout_fraction", 0.2)
	v.SetDefault("training.iterations", 500)
	v.SetDefault("training.learning_rate", 0.1)
	v.SetDefault("training.l2", 0.01)
	v.SetDefault("training.cache_ttl_seconds", 300)

	v.SetDefault("forecast.trials", 10000)
	v.SetDefault("forecast.seed", 0)

	v.SetDefault("pipeline.schedule", "0 6 * * *")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
