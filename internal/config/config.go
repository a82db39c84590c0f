// Package config loads configuration from files, env vars, and flags, and validates it.
package config

import (
	"time"
)

// Config holds the application configuration.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Tenant        TenantConfig        `mapstructure:"tenant"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// DatabaseConfig holds SQLite connection parameters.
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// TenantConfig points at the tenant's semantic model and schema snapshot.
// The snapshot file is optional; when absent the snapshot is built from
// live introspection and marked degraded.
type TenantConfig struct {
	Name         string `mapstructure:"name"`
	ModelFile    string `mapstructure:"model_file"`
	SnapshotFile string `mapstructure:"snapshot_file"`
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`           // debug, info, warn, error
	Format         string `mapstructure:"format"`          // json, text
	ExportsEnabled bool   `mapstructure:"exports_enabled"` // Enable OTLP log export
}

// ObservabilityConfig holds observability parameters.
type ObservabilityConfig struct {
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Environment    string        `mapstructure:"environment"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
	TracingEnabled bool          `mapstructure:"tracing_enabled"`
	MetricsPort    int           `mapstructure:"metrics_port"`
	Logging        LoggingConfig `mapstructure:"logging"`
	OTLP           OTLPConfig    `mapstructure:"otlp"`
}

// OTLPConfig holds OTLP exporter configuration.
type OTLPConfig struct {
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
	Timeout  time.Duration     `mapstructure:"timeout"`
}
