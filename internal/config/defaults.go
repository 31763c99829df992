package config

import "time"

// Default values for optional configuration parameters.
const (
	// Log defaults
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	// Gemini defaults
	DefaultGeminiModel       = "gemini-1.5-flash"
	DefaultGeminiTemperature = 0.2
	DefaultGeminiMaxRetries  = 3
	DefaultGeminiRetryDelay  = 60 * time.Second // Quota back-off interval

	// Log store defaults
	DefaultLogStorePath = "store/messages.db"

	// Warehouse defaults
	DefaultWarehouseMaxOpenConns    = 10
	DefaultWarehouseMaxIdleConns    = 5
	DefaultWarehouseConnMaxLifetime = time.Hour

	// Gateway defaults
	DefaultGatewayBaseURL = "http://localhost:8000"
	DefaultGatewayTimeout = 30 * time.Second

	// Monitor defaults
	DefaultMonitorSource       = "logstore"
	DefaultMonitorPollInterval = 5 * time.Second
	DefaultMonitorErrorBackoff = 5 * time.Second
	DefaultMonitorPullLimit    = 100

	// Maintenance defaults (daily at 04:00, seconds field included)
	DefaultMaintenanceSchedule = "0 0 4 * * *"
)
