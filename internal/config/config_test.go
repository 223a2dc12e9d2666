// Package config provides configuration management for the GraphTrader application.
package config

import (
	"os"
	"strings"
	"testing"
)

const (
	validConfigPath            = "testdata/valid_config.yaml"
	expansionConfigPath        = "testdata/expansion_config.yaml"
	expansionConfigMissingPath = "testdata/expansion_config_missing.yaml"
	nonexistentConfigPath      = "testdata/nonexistent_config.yaml"
)

func TestLoadConfigSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.App.Name != "graphtrader" {
		t.Errorf("expected app name 'graphtrader', got '%s'", cfg.App.Name)
	}
	if cfg.App.Environment != "development" {
		t.Errorf("expected environment 'development', got '%s'", cfg.App.Environment)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("expected database host 'localhost', got '%s'", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected database port 5432, got %d", cfg.Database.Port)
	}
	if cfg.DataSync.Timeframe != "1h" {
		t.Errorf("expected timeframe '1h', got '%s'", cfg.DataSync.Timeframe)
	}
	if cfg.MonteCarlo.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.MonteCarlo.Seed)
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	if _, err := Load(nonexistentConfigPath); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfigEnvironmentVariables(t *testing.T) {
	os.Setenv("GRAPHTRADER_APP_NAME", "test-app")
	defer os.Unsetenv("GRAPHTRADER_APP_NAME")

	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.App.Name != "test-app" {
		t.Errorf("expected app name 'test-app' from environment, got '%s'", cfg.App.Name)
	}
}

func TestValidateSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

func TestValidateInvalidEnvironment(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	cfg.App.Environment = "invalid"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for invalid environment")
	}
}

func TestValidateInvalidTimeframe(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	cfg.DataSync.Timeframe = "7m"
	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for unsupported timeframe")
	}
	if !strings.Contains(err.Error(), "timeframe") && !strings.Contains(err.Error(), "Timeframe") {
		t.Errorf("expected timeframe validation error, got: %v", err)
	}
}

func TestValidateEmptySymbols(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	cfg.DataSync.Symbols = []string{}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for empty symbols")
	}
}

func TestValidateIdleConnectionsCrossField(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	cfg.Database.MaxIdleConnections = cfg.Database.MaxConnections + 1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected cross-field validation error")
	}
}

func TestValidateBarArchiveRequiresClickHouse(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	cfg.Features.BarArchiveEnabled = true
	cfg.ClickHouse.Addr = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for missing clickhouse address")
	}
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	dsn := cfg.GetDatabaseDSN()
	if !strings.HasPrefix(dsn, "postgres://") {
		t.Errorf("expected DSN to start with 'postgres://', got '%s'", dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("expected DSN to carry the ssl mode, got '%s'", dsn)
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: "development"}}
	if !cfg.IsDevelopment() || cfg.IsProduction() || cfg.IsStaging() {
		t.Error("environment helpers disagree for development")
	}
	cfg.App.Environment = "production"
	if !cfg.IsProduction() || cfg.IsDevelopment() {
		t.Error("environment helpers disagree for production")
	}
	cfg.App.Environment = "staging"
	if !cfg.IsStaging() {
		t.Error("expected IsStaging() to return true")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
	if cfg.App.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got '%s'", cfg.App.LogLevel)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Errorf("expected default concurrency 4, got %d", cfg.Worker.Concurrency)
	}
	if cfg.MonteCarlo.Iterations != 1000 {
		t.Errorf("expected default iterations 1000, got %d", cfg.MonteCarlo.Iterations)
	}
}

func TestLoadConfigEnvironmentVariableExpansion(t *testing.T) {
	os.Setenv("TEST_DB_PASSWORD", "expanded_secret_value")
	defer os.Unsetenv("TEST_DB_PASSWORD")

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config with expansion, got %v", err)
	}
	if cfg.Database.Password != "expanded_secret_value" {
		t.Errorf("expected expanded password, got '%s'", cfg.Database.Password)
	}
}

func TestLoadConfigMissingEnvironmentVariable(t *testing.T) {
	os.Unsetenv("TEST_MISSING_VAR")

	cfg, err := Load(expansionConfigMissingPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	// os.ExpandEnv replaces unset variables with the empty string
	if cfg.Database.Password != "" {
		t.Errorf("expected empty password for missing variable, got %q", cfg.Database.Password)
	}
}
