// Package config provides configuration loading, validation, and management
// for the challengekeeper application. It handles reading from YAML files,
// environment variables, setting default values, and validating configuration
// parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration. Values can be set via
// environment variables prefixed with KEEPER_ (e.g., KEEPER_DATABASE_PATH)
// or through a YAML config file.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log output level and format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig holds the SQLite database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// SchedulerConfig holds the scheduled task table, keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a single scheduled task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The config file at configPath (optional)
// 3. KEEPER_* environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)
	v.SetDefault("database.path", "challenges.db")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 0 4 * * *")

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("KEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow missing config file; defaults and environment still apply
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
