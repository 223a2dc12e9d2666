// Package config provides configuration management for the GraphTrader application.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	DataSync   DataSyncConfig   `mapstructure:"data_sync" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	MonteCarlo MonteCarloConfig `mapstructure:"monte_carlo" validate:"required"`
	Worker     WorkerConfig     `mapstructure:"worker" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Features   FeaturesConfig   `mapstructure:"features"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents the PostgreSQL connection configuration used for
// strategy documents and run results
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ClickHouseConfig represents the ClickHouse connection used for bulk bar
// storage. Optional: when Addr is empty the bar archive is disabled.
type ClickHouseConfig struct {
	Addr     string `mapstructure:"addr"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DataSyncConfig represents the market data synchronization configuration
type DataSyncConfig struct {
	RESTBaseURL            string   `mapstructure:"rest_base_url" validate:"required,url"`
	WSBaseURL              string   `mapstructure:"ws_base_url" validate:"required"`
	APIKey                 string   `mapstructure:"api_key"`
	Symbols                []string `mapstructure:"symbols" validate:"required,min=1"`
	Timeframe              string   `mapstructure:"timeframe" validate:"required,timeframe"`
	SyncSchedule           string   `mapstructure:"sync_schedule" validate:"required"`
	RequestsPerSecond      float64  `mapstructure:"requests_per_second" validate:"required,gt=0"`
	RetryAttempts          int      `mapstructure:"retry_attempts" validate:"gte=0"`
	CacheTTLSeconds        int      `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	BatchSize              int      `mapstructure:"batch_size" validate:"required,gt=0"`
	TimeoutSeconds         int      `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// BacktestConfig represents the default simulation parameters applied when a
// run request leaves them unset
type BacktestConfig struct {
	InitialBalance   float64 `mapstructure:"initial_balance" validate:"required,gt=0"`
	SpreadPoints     float64 `mapstructure:"spread_points" validate:"gte=0"`
	CommissionPerLot float64 `mapstructure:"commission_per_lot" validate:"gte=0"`
	Digits           int     `mapstructure:"digits" validate:"gte=0,lte=8"`
	PointValue       float64 `mapstructure:"point_value" validate:"required,gt=0"`
	OutputPath       string  `mapstructure:"output_path" validate:"required"`
}

// MonteCarloConfig represents the default resampling parameters
type MonteCarloConfig struct {
	Iterations    int     `mapstructure:"iterations" validate:"required,gt=0"`
	Seed          int64   `mapstructure:"seed"`
	RuinThreshold float64 `mapstructure:"ruin_threshold" validate:"required,gt=0,lte=1"`
}

// WorkerConfig represents the execution host configuration
type WorkerConfig struct {
	Concurrency           int `mapstructure:"concurrency" validate:"required,gt=0"`
	QueueSize             int `mapstructure:"queue_size" validate:"required,gt=0"`
	ProgressIntervalMilli int `mapstructure:"progress_interval_milli" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// FeaturesConfig represents feature flags
type FeaturesConfig struct {
	LiveSyncEnabled     bool `mapstructure:"live_sync_enabled"`
	WalkForwardEnabled  bool `mapstructure:"walk_forward_enabled"`
	BarArchiveEnabled   bool `mapstructure:"bar_archive_enabled"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
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
