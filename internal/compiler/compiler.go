// Package compiler assembles validated intents into parameterized SQL for
// the SQLite analytical store. The compiler is a pure function of the
// validated intent, the semantic model, and the schema snapshot: it does no
// I/O, and every filter value and date bound is emitted as a bound
// parameter, never interpolated into query text.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"semql/internal/intent"
	"semql/internal/logging"
	"semql/internal/observability"
	"semql/internal/semantic"
	"semql/internal/snapshot"
	"semql/internal/sqlutil"
	"semql/internal/validate"
)

// Aliases every compiled query uses. Callers and result consumers rely on
// these names being stable across queries.
const (
	FactAlias   = "f"
	MetricAlias = "metric"
	GroupAlias  = "group_col"
	MonthAlias  = "month"
)

// Shape classifies a compiled query by its grouping.
type Shape string

const (
	// ShapeSummary is a single aggregate row with no grouping.
	ShapeSummary Shape = "summary"
	// ShapeTrend buckets by calendar month, ordered oldest first.
	ShapeTrend Shape = "trend"
	// ShapeGrouped groups by dimension values: a single dimension orders by
	// metric descending, several order by the labels themselves.
	ShapeGrouped Shape = "grouped"
)

// CompiledQuery is the compiler's output: SQL with positional placeholders,
// the argument list in placeholder order, and a named parameter map mirroring
// the same values for callers that log or cache by parameter name.
type CompiledQuery struct {
	ID     string         `json:"id"`
	Shape  Shape          `json:"shape"`
	SQL    string         `json:"sql"`
	Args   []any          `json:"args"`
	Params map[string]any `json:"params"`
	Joins  []Join         `json:"joins,omitempty"`
	// LowConfidence is set when any join rides an inferred foreign key edge.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// Assembler compiles validated intents against one model and snapshot pair.
// Both are read-only; a snapshot reload means building a new Assembler.
type Assembler struct {
	model   *semantic.Model
	snap    *snapshot.Snapshot
	logger  *logging.Logger
	metrics *observability.CompilerMetrics
	tracer  trace.Tracer
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used for compile-time diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// WithMetrics attaches compiler metrics.
func WithMetrics(m *observability.CompilerMetrics) Option {
	return func(a *Assembler) { a.metrics = m }
}

// New creates an Assembler over the given model and snapshot.
func New(model *semantic.Model, snap *snapshot.Snapshot, opts ...Option) *Assembler {
	a := &Assembler{
		model:  model,
		snap:   snap,
		tracer: otel.Tracer("semql/compiler"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compile assembles the validated intent into a parameterized query.
func (a *Assembler) Compile(ctx context.Context, v *intent.Validated) (*CompiledQuery, error) {
	start := time.Now()
	shape := shapeOf(v.GroupBy)

	ctx, span := a.tracer.Start(ctx, "compiler.Compile", trace.WithAttributes(
		attribute.String("compile.shape", string(shape)),
		attribute.String("compile.metric", v.Metric.Name),
	))
	defer span.End()

	compiled, err := a.assemble(v, shape)

	if a.metrics != nil {
		a.metrics.RecordCompile(ctx, time.Since(start), string(shape), err != nil)
		if err != nil {
			a.metrics.RecordError(ctx, errorCode(err))
		} else {
			a.metrics.RecordJoins(ctx, int64(len(compiled.Joins)), compiled.LowConfidence)
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("compile.joins", len(compiled.Joins)))
	a.log(ctx, compiled, v)
	return compiled, nil
}

func (a *Assembler) assemble(v *intent.Validated, shape Shape) (*CompiledQuery, error) {
	joins := newJoinSet(a.snap, a.model.FactTable)
	dateRef := sqlutil.Qualify(FactAlias, a.model.DateColumn)

	selectExprs, groupExprs, orderBy, err := a.grouping(v.GroupBy, joins, dateRef, shape)
	if err != nil {
		return nil, err
	}

	metricExpr, err := metricExpression(v.Metric)
	if err != nil {
		return nil, err
	}
	selectExprs = append(selectExprs, metricExpr)

	builder := sq.Select(selectExprs...).
		From(fmt.Sprintf("%s AS %s", sqlutil.QuoteIdentifier(a.model.FactTable), FactAlias)).
		Where(sq.Expr(dateRef+" BETWEEN ? AND ?", v.Dates.StartString(), v.Dates.EndString()))

	params := map[string]any{
		"start_date": v.Dates.StartString(),
		"end_date":   v.Dates.EndString(),
	}

	for _, dim := range sortedKeys(v.Filters) {
		spec := a.model.Dimensions[dim]
		ref, err := joins.columnRef(dim, spec)
		if err != nil {
			return nil, err
		}
		values := v.Filters[dim]
		if len(values) == 1 {
			builder = builder.Where(sq.Eq{ref: values[0]})
			params[dim] = values[0]
		} else {
			builder = builder.Where(sq.Eq{ref: []string(values)})
			params[dim] = []string(values)
		}
	}

	for _, j := range joins.all() {
		builder = builder.Join(j.Clause())
	}
	if len(groupExprs) > 0 {
		builder = builder.GroupBy(groupExprs...)
	}
	if len(orderBy) > 0 {
		builder = builder.OrderBy(orderBy...)
	}

	sqlText, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, fmt.Errorf("assemble query: %w", err)
	}

	return &CompiledQuery{
		ID:            uuid.NewString(),
		Shape:         shape,
		SQL:           sqlText,
		Args:          args,
		Params:        params,
		Joins:         joins.all(),
		LowConfidence: joins.hasInferred(),
	}, nil
}

// grouping builds the group select expressions, GROUP BY list, and ORDER BY
// for the query shape. The first dimension target keeps the stable group_col
// alias; extra dimension targets are aliased by their dimension name. The
// month bucket always uses the month alias and orders trends oldest first.
func (a *Assembler) grouping(groupBy intent.GroupBy, joins *joinSet, dateRef string, shape Shape) (selectExprs, groupExprs, orderBy []string, err error) {
	var dimAliases []string
	for _, target := range groupBy {
		if target == validate.MonthToken {
			expr := fmt.Sprintf("strftime('%%Y-%%m', %s)", dateRef)
			selectExprs = append(selectExprs, fmt.Sprintf("%s AS %s", expr, MonthAlias))
			groupExprs = append(groupExprs, expr)
			continue
		}

		spec := a.model.Dimensions[target]
		ref, refErr := joins.columnRef(target, spec)
		if refErr != nil {
			return nil, nil, nil, refErr
		}
		alias := GroupAlias
		if len(dimAliases) > 0 {
			alias = sqlutil.QuoteIdentifier(target)
		}
		dimAliases = append(dimAliases, alias)
		selectExprs = append(selectExprs, fmt.Sprintf("%s AS %s", ref, alias))
		groupExprs = append(groupExprs, ref)
	}

	switch shape {
	case ShapeTrend:
		orderBy = append(orderBy, MonthAlias+" ASC")
		for _, alias := range dimAliases {
			orderBy = append(orderBy, alias+" ASC")
		}
	case ShapeGrouped:
		// A single dimension ranks groups by the metric; multiple
		// dimensions order by every label so the cross product reads
		// as a stable table.
		if len(dimAliases) > 1 {
			for _, alias := range dimAliases {
				orderBy = append(orderBy, alias+" ASC")
			}
		} else {
			orderBy = []string{MetricAlias + " DESC"}
		}
	}
	return selectExprs, groupExprs, orderBy, nil
}

func (a *Assembler) log(ctx context.Context, q *CompiledQuery, v *intent.Validated) {
	logger := a.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	logger = logger.WithCompileID(q.ID)
	logger.InfoContext(ctx, "compiled intent",
		"shape", string(q.Shape),
		"metric", v.Metric.Name,
		"joins", len(q.Joins),
		"low_confidence", q.LowConfidence,
	)
	if q.LowConfidence {
		logger.WarnContext(ctx, "query joins through an inferred foreign key; verify results")
	}
}

func shapeOf(groupBy intent.GroupBy) Shape {
	if len(groupBy) == 0 {
		return ShapeSummary
	}
	for _, target := range groupBy {
		if target == validate.MonthToken {
			return ShapeTrend
		}
	}
	return ShapeGrouped
}

func errorCode(err error) string {
	var joinErr *JoinResolutionError
	if errors.As(err, &joinErr) {
		return CodeJoinResolutionFailed
	}
	var shapeErr *UnsupportedMetricShapeError
	if errors.As(err, &shapeErr) {
		return CodeUnsupportedMetricShape
	}
	return "INTERNAL"
}

func sortedKeys(filters map[string]intent.FilterValue) []string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
