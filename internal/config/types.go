// Package config manages application configuration from default values,
// an optional config.yaml file, and BOT_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the full application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"log"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	LogStore    LogStoreConfig    `mapstructure:"logstore"`
	Warehouse   WarehouseConfig   `mapstructure:"warehouse"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// GeminiConfig holds settings for the Gemini completion service.
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"     validate:"required"`
	ModelName   string        `mapstructure:"model"       validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"min=1s,max=10m"`
}

// LogStoreConfig locates the embedded SQLite message store written by the
// WhatsApp bridge.
type LogStoreConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// WarehouseConfig holds the MySQL connection settings for the warehouse.
type WarehouseConfig struct {
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"min=1m"`
}

// GatewayConfig holds settings for the MCP message gateway.
type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"min=1s,max=5m"`
}

// MonitorConfig controls the polling loop.
type MonitorConfig struct {
	Source       string        `mapstructure:"source"        validate:"required,oneof=logstore gateway"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"min=1s"`
	ErrorBackoff time.Duration `mapstructure:"error_backoff" validate:"min=1s"`
	PullLimit    int           `mapstructure:"pull_limit"    validate:"min=1,max=1000"`
}

// MaintenanceConfig controls the scheduled log-store maintenance task.
type MaintenanceConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// Validate checks the configuration against its struct-level constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
