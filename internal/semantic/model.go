// Package semantic holds the per-tenant semantic model: the mapping from
// user-facing metric and dimension names to physical expressions and
// columns, plus the catalog of supported relative date ranges. A model is
// loaded once and treated as read-only; reload means loading a fresh model
// and swapping the reference.
package semantic

import (
	"fmt"
	"sort"
)

// MetricKind is the closed set of aggregation shapes a metric can take.
// The kind is assigned exactly once, when the model is loaded or when an
// ephemeral metric is constructed, and the expression router matches on it
// exhaustively.
type MetricKind int

const (
	KindColumnSum MetricKind = iota
	KindCountStar
	KindAvgColumn
	KindDerived
)

func (k MetricKind) String() string {
	switch k {
	case KindColumnSum:
		return "column_sum"
	case KindCountStar:
		return "count_star"
	case KindAvgColumn:
		return "avg_column"
	case KindDerived:
		return "derived"
	default:
		return fmt.Sprintf("metric_kind(%d)", int(k))
	}
}

// MetricSpec describes how one metric aggregates.
//
// For column_sum and avg_column, Column holds the fact table column.
// For derived, Expression holds the full SQL expression with fact columns
// qualified by the fact alias. Ephemeral specs are request-scoped and never
// persisted into the model.
type MetricSpec struct {
	Name       string
	Expression string
	Column     string
	Kind       MetricKind
	Ephemeral  bool
}

// DimensionSpec maps a user-facing dimension name to a physical column.
// Table may be empty in tenant config; BindSnapshot resolves it to the
// unique dimension table carrying the column, or leaves it empty for
// columns living on the fact table itself.
type DimensionSpec struct {
	Name   string
	Column string
	Table  string
}

// DateRange is one named relative range: either a rolling day-count window
// or a calendar-month range.
type DateRange struct {
	Days     int
	Calendar bool
}

// Model is the tenant's semantic model.
type Model struct {
	Tenant     string
	FactTable  string
	DateColumn string
	Metrics    map[string]MetricSpec
	Dimensions map[string]DimensionSpec
	DateRanges map[string]DateRange
}

// MetricNames returns the metric names in sorted order, for error candidates.
func (m *Model) MetricNames() []string {
	return sortedKeys(m.Metrics)
}

// DimensionNames returns the dimension names in sorted order.
func (m *Model) DimensionNames() []string {
	return sortedKeys(m.Dimensions)
}

// DateRangeNames returns the named ranges in sorted order, including the
// built-in calendar tokens the resolver accepts without configuration.
func (m *Model) DateRangeNames() []string {
	names := make([]string, 0, len(m.DateRanges)+4)
	for name := range m.DateRanges {
		names = append(names, name)
	}
	names = append(names, "last_month", "previous_month", "this_month", "current_month")
	sort.Strings(names)
	return dedupe(names)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
