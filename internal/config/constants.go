package config

import "time"

// Server defaults
const (
	// DefaultPort is used when no port is configured
	DefaultPort = "3000"

	// DefaultMaxOpenConns is the default maximum number of open database connections
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle database connections
	DefaultMaxIdleConns = 5
)

// Timeout constants
const (
	// DefaultHTTPTimeout bounds individual HTTP request handling
	DefaultHTTPTimeout = 60 * time.Second

	// ListenerDrainTimeout bounds the graceful listener close during shutdown
	ListenerDrainTimeout = 30 * time.Second

	// ObservabilityShutdownTimeout bounds flushing of telemetry providers on exit
	ObservabilityShutdownTimeout = 5 * time.Second

	// DatabaseConnMaxLifetime is the default maximum database connection lifetime
	DatabaseConnMaxLifetime = 5 * time.Minute
)

// Security configuration constants
const (
	// DefaultCSP is the Content Security Policy applied by the secure middleware
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; img-src 'self' data:;"
)
