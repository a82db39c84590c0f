package semantic

import (
	"fmt"
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ClassifyExpression turns a tenant-config metric expression into a
// MetricSpec with its kind fixed. Accepted forms:
//
//	net_revenue          -> column_sum over that column
//	SUM(net_revenue)     -> column_sum over the inner column
//	AVG(net_revenue)     -> avg_column over the inner column
//	COUNT(*)             -> count_star
//	anything else        -> derived, kept verbatim
//
// Classification happens once at load; the router trusts the kind tag and
// never re-inspects surface syntax.
func ClassifyExpression(name, expr string) (MetricSpec, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return MetricSpec{}, fmt.Errorf("metric %q has an empty expression", name)
	}

	spec := MetricSpec{Name: name, Expression: trimmed}
	upper := strings.ToUpper(trimmed)

	switch {
	case upper == "COUNT(*)" || upper == "COUNT()":
		spec.Kind = KindCountStar
	case strings.HasPrefix(upper, "SUM(") && strings.HasSuffix(trimmed, ")"):
		inner := innerArg(trimmed)
		if !identPattern.MatchString(inner) {
			spec.Kind = KindDerived
			break
		}
		spec.Kind = KindColumnSum
		spec.Column = inner
	case strings.HasPrefix(upper, "AVG(") && strings.HasSuffix(trimmed, ")"):
		inner := innerArg(trimmed)
		if !identPattern.MatchString(inner) {
			spec.Kind = KindDerived
			break
		}
		spec.Kind = KindAvgColumn
		spec.Column = inner
	case identPattern.MatchString(trimmed):
		// Bare column reference: a plain measure defaults to SUM.
		spec.Kind = KindColumnSum
		spec.Column = trimmed
	default:
		spec.Kind = KindDerived
	}

	return spec, nil
}

func innerArg(expr string) string {
	open := strings.Index(expr, "(")
	end := strings.LastIndex(expr, ")")
	if open < 0 || end <= open {
		return ""
	}
	return strings.TrimSpace(expr[open+1 : end])
}
