package compiler

import (
	"fmt"

	"semql/internal/semantic"
	"semql/internal/sqlutil"
)

// CodeUnsupportedMetricShape marks a metric whose aggregation kind the
// expression router does not know how to emit.
const CodeUnsupportedMetricShape = "UNSUPPORTED_METRIC_SHAPE"

// UnsupportedMetricShapeError reports a metric spec the router refused.
// The closed kind set makes this unreachable for well-formed models; it
// exists so a malformed or future kind fails loudly instead of producing
// silently wrong SQL.
type UnsupportedMetricShapeError struct {
	Metric string
	Kind   semantic.MetricKind
}

func (e *UnsupportedMetricShapeError) Error() string {
	return fmt.Sprintf("%s: metric %q has unsupported kind %s", CodeUnsupportedMetricShape, e.Metric, e.Kind)
}

// metricExpression routes a metric spec to its aggregate SELECT expression.
// The switch is exhaustive over the metric kinds; count_star is emitted as
// COUNT(*) directly and is never wrapped in another aggregate.
func metricExpression(spec semantic.MetricSpec) (string, error) {
	switch spec.Kind {
	case semantic.KindColumnSum:
		if spec.Column == "" {
			return "", &UnsupportedMetricShapeError{Metric: spec.Name, Kind: spec.Kind}
		}
		return fmt.Sprintf("SUM(%s) AS %s", sqlutil.Qualify(FactAlias, spec.Column), MetricAlias), nil
	case semantic.KindCountStar:
		return fmt.Sprintf("COUNT(*) AS %s", MetricAlias), nil
	case semantic.KindAvgColumn:
		if spec.Column == "" {
			return "", &UnsupportedMetricShapeError{Metric: spec.Name, Kind: spec.Kind}
		}
		return fmt.Sprintf("AVG(%s) AS %s", sqlutil.Qualify(FactAlias, spec.Column), MetricAlias), nil
	case semantic.KindDerived:
		if spec.Expression == "" {
			return "", &UnsupportedMetricShapeError{Metric: spec.Name, Kind: spec.Kind}
		}
		return fmt.Sprintf("%s AS %s", spec.Expression, MetricAlias), nil
	default:
		return "", &UnsupportedMetricShapeError{Metric: spec.Name, Kind: spec.Kind}
	}
}
