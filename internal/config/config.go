package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the recast tooling.
type Config struct {
	Postgres  PostgresConfig
	Telemetry TelemetryConfig
	DDL       DDLConfig
}

type PostgresConfig struct {
	DSN string
}

type TelemetryConfig struct {
	// ServiceName names the tracer the request layer opens spans on.
	ServiceName string
}

type DDLConfig struct {
	// LockTimeout bounds how long an alteration waits for the table lock.
	// Zero means the session default. Applied by the request layer, not the
	// alteration core.
	LockTimeout time.Duration
	// DefaultSchema qualifies table names given without a schema.
	DefaultSchema string
}

// Load loads config from environment. A config file path takes precedence
// when the caller wires one through viper; this is the bare fallback.
func Load(_ string) (*Config, error) {
	cfg := &Config{
		Postgres: PostgresConfig{
			DSN: getenv("RECAST_POSTGRES_DSN", ""),
		},
		Telemetry: TelemetryConfig{
			ServiceName: getenv("RECAST_OTEL_SERVICE", "recast"),
		},
		DDL: DDLConfig{
			LockTimeout:   getenvDuration("RECAST_DDL_LOCK_TIMEOUT", 0),
			DefaultSchema: getenv("RECAST_DDL_DEFAULT_SCHEMA", "public"),
		},
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
