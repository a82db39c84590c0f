package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CompilerMetrics holds custom metrics for intent compilation.
type CompilerMetrics struct {
	compileDuration  metric.Float64Histogram
	compileCounter   metric.Int64Counter
	errorCounter     metric.Int64Counter
	joinCount        metric.Int64Histogram
	lookupCounter    metric.Int64Counter
	inferredJoinUsed metric.Int64Counter
}

// InitCompilerMetrics initializes compiler-specific metrics.
func InitCompilerMetrics() (*CompilerMetrics, error) {
	meter := otel.Meter("semql")

	compileDuration, err := meter.Float64Histogram(
		"compile.duration",
		metric.WithDescription("Duration of intent compilation in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compile duration histogram: %w", err)
	}

	compileCounter, err := meter.Int64Counter(
		"compile.total",
		metric.WithDescription("Total number of compiled intents"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compile counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"compile.errors.total",
		metric.WithDescription("Total number of compilation failures by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	joinCount, err := meter.Int64Histogram(
		"compile.joins",
		metric.WithDescription("Number of dimension joins per compiled query"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create join count histogram: %w", err)
	}

	lookupCounter, err := meter.Int64Counter(
		"disambiguation.lookups.total",
		metric.WithDescription("Total number of distinct-value lookups"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup counter: %w", err)
	}

	inferredJoinUsed, err := meter.Int64Counter(
		"compile.inferred_joins.total",
		metric.WithDescription("Total number of queries joined through an inferred foreign key"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inferred join counter: %w", err)
	}

	return &CompilerMetrics{
		compileDuration:  compileDuration,
		compileCounter:   compileCounter,
		errorCounter:     errorCounter,
		joinCount:        joinCount,
		lookupCounter:    lookupCounter,
		inferredJoinUsed: inferredJoinUsed,
	}, nil
}

// RecordCompile records one compilation with its duration, shape, and outcome.
func (m *CompilerMetrics) RecordCompile(ctx context.Context, duration time.Duration, shape string, failed bool) {
	attrs := []attribute.KeyValue{
		attribute.String("shape", shape),
		attribute.Bool("failed", failed),
	}
	m.compileDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.compileCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordError records a compilation failure by its error code.
func (m *CompilerMetrics) RecordError(ctx context.Context, code string) {
	m.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
	))
}

// RecordJoins records how many dimension joins a compiled query carries and
// whether any of them rode an inferred edge.
func (m *CompilerMetrics) RecordJoins(ctx context.Context, count int64, inferred bool) {
	m.joinCount.Record(ctx, count)
	if inferred {
		m.inferredJoinUsed.Add(ctx, 1)
	}
}

// RecordLookup records one distinct-value lookup issued by the disambiguator.
func (m *CompilerMetrics) RecordLookup(ctx context.Context, dimension string) {
	m.lookupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dimension", dimension),
	))
}

// InitMetrics initializes all custom metrics and returns the CompilerMetrics instance.
func InitMetrics(logger *slog.Logger) (*CompilerMetrics, error) {
	metrics, err := InitCompilerMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize compiler metrics: %w", err)
	}

	logger.Info("custom compiler metrics initialized")
	return metrics, nil
}

type compilerMetricsContextKey struct{}

// ContextWithCompilerMetrics stores compiler metrics in the provided context.
func ContextWithCompilerMetrics(ctx context.Context, metrics *CompilerMetrics) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, compilerMetricsContextKey{}, metrics)
}

// CompilerMetricsFromContext retrieves compiler metrics from the context.
func CompilerMetricsFromContext(ctx context.Context) *CompilerMetrics {
	if ctx == nil {
		return nil
	}
	metrics, _ := ctx.Value(compilerMetricsContextKey{}).(*CompilerMetrics)
	return metrics
}
