package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns validation
// results, both fatal errors and non-fatal warnings.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Database.validate(result)
	c.Tenant.validate(result)
	c.Observability.validate(result)
	return result
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(d.Path) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.path",
			Message: "database path cannot be empty",
			Hint:    "set database.path or the --db-path flag",
		})
	}
	if d.MaxOpenConns < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.max_open_conns",
			Message: fmt.Sprintf("must be >= 0, got %d", d.MaxOpenConns),
		})
	}
	if d.MaxIdleConns > d.MaxOpenConns && d.MaxOpenConns > 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.max_idle_conns",
			Message: fmt.Sprintf("exceeds max_open_conns (%d > %d)", d.MaxIdleConns, d.MaxOpenConns),
			Hint:    "idle connections above the open limit are never kept",
		})
	}
}

func (t *TenantConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(t.Name) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "tenant.name",
			Message: "tenant name cannot be empty",
		})
	}
	if strings.TrimSpace(t.ModelFile) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "tenant.model_file",
			Message: "semantic model file cannot be empty",
			Hint:    "set tenant.model_file or the --model flag",
		})
	}
	if strings.TrimSpace(t.SnapshotFile) == "" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "tenant.snapshot_file",
			Message: "no schema snapshot artifact configured",
			Hint:    "the snapshot will be built from live introspection and marked degraded",
		})
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	switch o.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.level",
			Message: fmt.Sprintf("invalid level %q", o.Logging.Level),
			Hint:    "valid levels: debug, info, warn, error",
		})
	}
	switch o.Logging.Format {
	case "", "json", "text":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.format",
			Message: fmt.Sprintf("invalid format %q", o.Logging.Format),
			Hint:    "valid formats: json, text",
		})
	}
	if o.MetricsEnabled && (o.MetricsPort <= 0 || o.MetricsPort > 65535) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.metrics_port",
			Message: fmt.Sprintf("invalid port %d", o.MetricsPort),
		})
	}
	if o.Logging.ExportsEnabled && strings.TrimSpace(o.OTLP.Endpoint) == "" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "observability.otlp.endpoint",
			Message: "log exports enabled without an OTLP endpoint",
			Hint:    "set observability.otlp.endpoint or disable exports",
		})
	}
	if o.TracingEnabled && strings.TrimSpace(o.OTLP.Endpoint) == "" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "observability.otlp.endpoint",
			Message: "tracing enabled without an OTLP endpoint",
			Hint:    "spans will be created but never exported",
		})
	}
}
