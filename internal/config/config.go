// Package config provides configuration management for the F1 winner pipeline.
package config

import (
	"fmt"
	"sort"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	DataSource DataSourceConfig `mapstructure:"data_source" validate:"required"`
	Features   FeaturesConfig   `mapstructure:"features" validate:"required"`
	Training   TrainingConfig   `mapstructure:"training" validate:"required"`
	Forecast   ForecastConfig   `mapstructure:"forecast" validate:"required"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// DataSourceConfig represents the racing results API configuration
type DataSourceConfig struct {
	Name              string   `mapstructure:"name" validate:"required"`
	BaseURL           string   `mapstructure:"base_url" validate:"required,url"`
	APIKey            string   `mapstructure:"api_key"`
	TimeoutSeconds    int      `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int      `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit         float64  `mapstructure:"rate_limit" validate:"required,gt=0"`
	CircuitBreakerMax int      `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
	Sessions          []string `mapstructure:"sessions" validate:"required,min=1,sessions"`
}

// FeaturesConfig controls the rolling-window feature construction
type FeaturesConfig struct {
	FormWindow        int               `mapstructure:"form_window" validate:"required,gt=0"`
	FormMinSamples    int               `mapstructure:"form_min_samples" validate:"required,gt=0"`
	TeamWindow        int               `mapstructure:"team_window" validate:"required,gt=0"`
	TeamMinSamples    int               `mapstructure:"team_min_samples" validate:"required,gt=0"`
	FormScope         string            `mapstructure:"form_scope" validate:"required,formscope"`
	QualifyingWeights QualifyingWeights `mapstructure:"qualifying_weights" validate:"required"`
}

// QualifyingWeights weights the components of the composite qualifying score
type QualifyingWeights struct {
	Grid  float64 `mapstructure:"grid" validate:"gte=0"`
	Stage float64 `mapstructure:"stage" validate:"gte=0"`
	Pace  float64 `mapstructure:"pace" validate:"gte=0"`
}

// TrainingConfig represents model training configuration
type TrainingConfig struct {
	ModelName       string  `mapstructure:"model_name" validate:"required"`
	ArtifactDir     string  `mapstructure:"artifact_dir" validate:"required"`
	MinRows         int     `mapstructure:"min_rows" validate:"required,gt=0"`
	HoldoutFraction float64 `mapstructure:"holdout_fraction" validate:"gte=0,lt=1"`
	Iterations      int     `mapstructure:"iterations" validate:"required,gt=0"`
	LearningRate    float64 `mapstructure:"learning_rate" validate:"required,gt=0"`
	L2              float64 `mapstructure:"l2" validate:"gte=0"`
	TrainRegressor  bool    `mapstructure:"train_regressor"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
}

// ForecastConfig represents championship simulation configuration
type ForecastConfig struct {
	Trials int   `mapstructure:"trials" validate:"required,gt=0"`
	// Seed 0 means a fresh clock seed per run
	Seed   int64 `mapstructure:"seed"`
}

// PipelineConfig represents the scope and cadence of pipeline runs
type PipelineConfig struct {
	TargetSeason   int    `mapstructure:"target_season" validate:"required,gte=1950"`
	HistorySeasons []int  `mapstructure:"history_seasons"`
	Schedule       string `mapstructure:"schedule" validate:"required,schedule"`
	HealthPort     string `mapstructure:"health_port"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Seasons returns the history seasons plus the target season, in ascending order without duplicates
func (c *PipelineConfig) Seasons() []int {
	seen := make(map[int]bool)
	var seasons []int
	for _, s := range append(append([]int{}, c.HistorySeasons...), c.TargetSeason) {
		if s <= 0 || seen[s] {
			continue
		}
		seen[s] = true
		seasons = append(seasons, s)
	}
	sort.Ints(seasons)
	return seasons
}

// Timeout returns the data source request timeout
func (d *DataSourceConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long a loaded model stays cached
func (t *TrainingConfig) CacheTTL() time.Duration {
	return time.Duration(t.CacheTTLSeconds) * time.Second
}
