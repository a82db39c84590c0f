// Package validate checks an Intent against the tenant's semantic model and
// resolves its date range, producing a validated intent or a structured,
// coded error the caller can turn into a clarification. Validation performs
// no I/O; the only collaborator is the pure date range resolver.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"semql/internal/daterange"
	"semql/internal/intent"
	"semql/internal/semantic"
	"semql/internal/snapshot"
)

// Code identifies one class of validation failure. All codes are
// recoverable by the caller via clarification; none is fatal to the
// process.
type Code string

const (
	CodeInvalidMetric    Code = "INVALID_METRIC"
	CodeInvalidDimension Code = "INVALID_DIMENSION"
	CodeInvalidDateRange Code = "INVALID_DATE_RANGE"
)

// Error is a structured validation failure with the valid candidates the
// caller can offer to the user.
type Error struct {
	Code       Code
	Message    string
	Candidates []string
}

func (e *Error) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (valid: %s)", e.Code, e.Message, strings.Join(e.Candidates, ", "))
}

// MonthToken is the group-by token selecting calendar-month bucketing
// rather than a dimension.
const MonthToken = "month"

// Validate checks the intent against the model, resolves its dates, and
// returns an immutable validated intent. The snapshot is needed only when
// the intent carries an ephemeral derived expression.
func Validate(in *intent.Intent, model *semantic.Model, snap *snapshot.Snapshot, now time.Time) (*intent.Validated, error) {
	if in.Metric == "" && in.DerivedExpression == "" {
		return nil, &Error{Code: CodeInvalidMetric, Message: "intent is missing a metric", Candidates: model.MetricNames()}
	}

	spec, err := resolveMetric(in, model, snap)
	if err != nil {
		return nil, err
	}

	for name := range in.Filters {
		if _, ok := model.Dimensions[name]; !ok {
			return nil, &Error{
				Code:       CodeInvalidDimension,
				Message:    fmt.Sprintf("unsupported dimension filter %q", name),
				Candidates: model.DimensionNames(),
			}
		}
	}

	for _, target := range in.GroupBy {
		if target == MonthToken {
			continue
		}
		if _, ok := model.Dimensions[target]; !ok {
			return nil, &Error{
				Code:       CodeInvalidDimension,
				Message:    fmt.Sprintf("unsupported group_by %q", target),
				Candidates: append(model.DimensionNames(), MonthToken),
			}
		}
	}

	dates, err := resolveDates(in, model, now)
	if err != nil {
		return nil, err
	}

	validated := &intent.Validated{
		Metric:  spec,
		GroupBy: append(intent.GroupBy(nil), in.GroupBy...),
		Dates:   dates,
	}
	validated.Filters = make(map[string]intent.FilterValue, len(in.Filters))
	for k, v := range in.Filters {
		validated.Filters[k] = append(intent.FilterValue(nil), v...)
	}
	return validated, nil
}

func resolveMetric(in *intent.Intent, model *semantic.Model, snap *snapshot.Snapshot) (semantic.MetricSpec, error) {
	if in.DerivedExpression != "" {
		name := in.Metric
		if name == "" {
			name = "custom_metric"
		}
		spec, err := semantic.EphemeralMetric(name, in.DerivedExpression, snap, model.FactTable)
		if err != nil {
			return semantic.MetricSpec{}, &Error{
				Code:       CodeInvalidMetric,
				Message:    err.Error(),
				Candidates: model.MetricNames(),
			}
		}
		return spec, nil
	}

	spec, ok := model.Metrics[in.Metric]
	if !ok {
		return semantic.MetricSpec{}, &Error{
			Code:       CodeInvalidMetric,
			Message:    fmt.Sprintf("unsupported metric %q", in.Metric),
			Candidates: model.MetricNames(),
		}
	}
	return spec, nil
}

func resolveDates(in *intent.Intent, model *semantic.Model, now time.Time) (daterange.Range, error) {
	if c := in.CustomDate; c != nil {
		var (
			r   daterange.Range
			err error
		)
		switch {
		case c.Start != "" || c.End != "":
			r, err = daterange.ResolveExplicit(c.Start, c.End)
		case c.Period != "":
			r, err = daterange.ResolvePeriod(c.Period)
		case c.Month != "":
			r, err = daterange.ResolveMonth(c.Month)
		default:
			err = &daterange.InvalidRangeError{Reason: "custom_date payload is empty"}
		}
		if err != nil {
			return daterange.Range{}, dateError(err, model)
		}
		return r, nil
	}

	if in.DateRange == "" {
		return daterange.Range{}, &Error{
			Code:       CodeInvalidDateRange,
			Message:    "intent specifies no date range",
			Candidates: model.DateRangeNames(),
		}
	}

	r, err := daterange.Resolve(in.DateRange, model, now)
	if err != nil {
		return daterange.Range{}, dateError(err, model)
	}
	return r, nil
}

func dateError(err error, model *semantic.Model) error {
	verr := &Error{Code: CodeInvalidDateRange, Message: err.Error()}
	var unsupported *daterange.UnsupportedRangeError
	if errors.As(err, &unsupported) {
		verr.Candidates = unsupported.Supported
	} else {
		verr.Candidates = model.DateRangeNames()
	}
	return verr
}
