// Command semql compiles a structured analytical intent into parameterized
// SQL against the tenant's semantic model and schema snapshot, and can
// optionally execute the compiled query against the SQLite store.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/mattn/go-sqlite3"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"semql/internal/compiler"
	"semql/internal/config"
	"semql/internal/daterange"
	"semql/internal/dbexec"
	"semql/internal/disambig"
	"semql/internal/intent"
	"semql/internal/logging"
	"semql/internal/observability"
	"semql/internal/semantic"
	"semql/internal/snapshot"
	"semql/internal/validate"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

func main() {
	if err := run(); err != nil {
		printErrorPayload(err)
		slog.Error("semql error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, opts, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.ShowVersion {
		fmt.Printf("semql %s (%s)\n", Version, Commit)
		return nil
	}

	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = Version
	}

	validationResult := cfg.Validate()
	for _, warn := range validationResult.Warnings {
		slog.Warn("configuration warning",
			slog.String("field", warn.Field),
			slog.String("message", warn.Message),
			slog.String("hint", warn.Hint),
		)
	}
	if validationResult.HasErrors() {
		for _, cfgErr := range validationResult.Errors {
			slog.Error("configuration error",
				slog.String("field", cfgErr.Field),
				slog.String("message", cfgErr.Message),
				slog.String("hint", cfgErr.Hint),
			)
		}
		return fmt.Errorf("configuration validation failed")
	}

	ctx := context.Background()

	logger, cleanup, err := initObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx = logging.WithLogger(ctx, logger)

	now := time.Now().UTC()
	if opts.Now != "" {
		now, err = time.Parse(daterange.DateLayout, opts.Now)
		if err != nil {
			return fmt.Errorf("invalid --now value %q: %w", opts.Now, err)
		}
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	exec := dbexec.NewStandardExecutor(db)

	model, err := semantic.Load(cfg.Tenant.ModelFile)
	if err != nil {
		return fmt.Errorf("failed to load semantic model: %w", err)
	}
	model.Tenant = cfg.Tenant.Name

	snap, err := loadSnapshot(ctx, cfg, exec, logger)
	if err != nil {
		return err
	}
	manager := snapshot.NewManager(snap)

	model, err = semantic.BindSnapshot(model, manager.Current())
	if err != nil {
		return fmt.Errorf("semantic model does not fit the schema: %w", err)
	}

	metrics, err := initMetrics(cfg, logger)
	if err != nil {
		return err
	}
	if metrics != nil {
		ctx = observability.ContextWithCompilerMetrics(ctx, metrics)
	}

	in, err := readIntent(opts.IntentPath)
	if err != nil {
		return err
	}

	validated, err := validate.Validate(in, model, manager.Current(), now)
	if err != nil {
		return err
	}

	resolver := disambig.New(dbexec.NewLookup(exec),
		disambig.WithLogger(logger),
		disambig.WithMetrics(metrics),
	)
	validated, err = resolver.Disambiguate(ctx, validated, model)
	if err != nil {
		return err
	}

	assembler := compiler.New(model, manager.Current(),
		compiler.WithLogger(logger),
		compiler.WithMetrics(metrics),
	)
	compiled, err := assembler.Compile(ctx, validated)
	if err != nil {
		return err
	}

	if err := printJSON(compiled); err != nil {
		return err
	}

	if opts.Execute {
		rows, err := dbexec.QueryMaps(ctx, exec, compiled.SQL, compiled.Args...)
		if err != nil {
			return fmt.Errorf("failed to execute compiled query: %w", err)
		}
		if err := printJSON(map[string]any{"rows": rows, "row_count": len(rows)}); err != nil {
			return err
		}
	}
	return nil
}

func initObservability(ctx context.Context, cfg *config.Config) (*logging.Logger, func(), error) {
	otelCfg := observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		OTLP: observability.OTLPExporterConfig{
			Endpoint: cfg.Observability.OTLP.Endpoint,
			Insecure: cfg.Observability.OTLP.Insecure,
			Headers:  cfg.Observability.OTLP.Headers,
			Timeout:  cfg.Observability.OTLP.Timeout,
		},
	}

	var shutdowns []func()

	logCfg := logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	}
	if cfg.Observability.Logging.ExportsEnabled {
		lp, err := observability.InitLoggerProvider(ctx, otelCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize log export: %w", err)
		}
		logCfg.LoggerProvider = lp.Provider()
		shutdowns = append(shutdowns, func() { _ = lp.Shutdown(context.Background(), slog.Default()) })
	}
	logger := logging.NewLogger(logCfg)
	slog.SetDefault(logger.Logger)

	if cfg.Observability.TracingEnabled {
		tp, err := observability.InitTracerProvider(ctx, otelCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		shutdowns = append(shutdowns, func() { _ = tp.Shutdown(context.Background(), logger.Logger) })
	}

	cleanup := func() {
		for i := len(shutdowns) - 1; i >= 0; i-- {
			shutdowns[i]()
		}
	}
	return logger, cleanup, nil
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.CompilerMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil
	}
	if _, err := observability.InitMeterProvider(observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	go func() {
		if err := observability.ServeMetrics(cfg.Observability.MetricsPort, logger.Logger); err != nil {
			logger.Error("metrics endpoint stopped", slog.String("error", err.Error()))
		}
	}()
	return observability.InitMetrics(logger.Logger)
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := otelsql.Open("sqlite3", cfg.Database.Path,
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", cfg.Database.Path, err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	return db, nil
}

// loadSnapshot prefers the extraction artifact; without one it falls back to
// live introspection and marks the snapshot degraded.
func loadSnapshot(ctx context.Context, cfg *config.Config, exec dbexec.QueryExecutor, logger *logging.Logger) (*snapshot.Snapshot, error) {
	if cfg.Tenant.SnapshotFile != "" {
		snap, err := snapshot.Load(cfg.Tenant.SnapshotFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load schema snapshot: %w", err)
		}
		return snap, nil
	}

	logger.WarnContext(ctx, "no snapshot artifact configured; introspecting live schema")
	snap, err := snapshot.BuildFromDB(ctx, exec)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect schema: %w", err)
	}
	return snap, nil
}

func readIntent(path string) (*intent.Intent, error) {
	var reader io.Reader
	switch path {
	case "":
		return nil, fmt.Errorf("no intent provided; use --intent <file> or --intent -")
	case "-":
		reader = os.Stdin
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open intent file: %w", err)
		}
		defer f.Close()
		reader = f
	}
	return intent.Decode(reader)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printErrorPayload emits a machine-readable error object for the coded
// failures callers are expected to turn into clarification prompts.
func printErrorPayload(err error) {
	payload := map[string]any{"message": err.Error()}

	var verr *validate.Error
	var amb *disambig.AmbiguousValueError
	var joinErr *compiler.JoinResolutionError
	var shapeErr *compiler.UnsupportedMetricShapeError
	switch {
	case errors.As(err, &verr):
		payload["code"] = string(verr.Code)
		payload["candidates"] = verr.Candidates
	case errors.As(err, &amb):
		payload["code"] = disambig.CodeAmbiguousValue
		payload["dimension"] = amb.Dimension
		payload["input"] = amb.Input
		payload["candidates"] = amb.Candidates
	case errors.As(err, &joinErr):
		payload["code"] = compiler.CodeJoinResolutionFailed
		payload["dimension"] = joinErr.Dimension
	case errors.As(err, &shapeErr):
		payload["code"] = compiler.CodeUnsupportedMetricShape
	default:
		return
	}

	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{"error": payload})
}
