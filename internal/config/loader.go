package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The YAML file at configPath (optional; missing file falls back to defaults)
// 3. BOT_* environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow a missing config file; env vars and defaults still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers default values for optional configuration parameters.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	// Gemini defaults
	v.SetDefault("gemini.model", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay", DefaultGeminiRetryDelay)

	// Log store defaults
	v.SetDefault("logstore.path", DefaultLogStorePath)

	// Warehouse defaults
	v.SetDefault("warehouse.max_open_conns", DefaultWarehouseMaxOpenConns)
	v.SetDefault("warehouse.max_idle_conns", DefaultWarehouseMaxIdleConns)
	v.SetDefault("warehouse.conn_max_lifetime", DefaultWarehouseConnMaxLifetime)

	// Gateway defaults
	v.SetDefault("gateway.base_url", DefaultGatewayBaseURL)
	v.SetDefault("gateway.timeout", DefaultGatewayTimeout)

	// Monitor defaults
	v.SetDefault("monitor.source", DefaultMonitorSource)
	v.SetDefault("monitor.poll_interval", DefaultMonitorPollInterval)
	v.SetDefault("monitor.error_backoff", DefaultMonitorErrorBackoff)
	v.SetDefault("monitor.pull_limit", DefaultMonitorPullLimit)

	// Maintenance defaults
	v.SetDefault("maintenance.enabled", false)
	v.SetDefault("maintenance.schedule", DefaultMaintenanceSchedule)
}
