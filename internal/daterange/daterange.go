// Package daterange resolves relative and explicit date range tokens to
// concrete [start, end] date pairs. Resolution is a pure function of the
// token, the tenant's configured ranges, and an explicitly passed "now";
// nothing here reads the wall clock.
package daterange

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"semql/internal/semantic"
)

// DateLayout is the on-the-wire date format for bounds and explicit ranges.
const DateLayout = "2006-01-02"

// Range is a resolved inclusive date range.
type Range struct {
	Start time.Time
	End   time.Time
}

// StartString returns the start bound in YYYY-MM-DD form.
func (r Range) StartString() string { return r.Start.Format(DateLayout) }

// EndString returns the end bound in YYYY-MM-DD form.
func (r Range) EndString() string { return r.End.Format(DateLayout) }

// UnsupportedRangeError reports a token missing from the tenant's catalog.
type UnsupportedRangeError struct {
	Token     string
	Supported []string
}

func (e *UnsupportedRangeError) Error() string {
	return fmt.Sprintf("unsupported date range %q", e.Token)
}

// InvalidRangeError reports an explicit range that fails validation.
type InvalidRangeError struct {
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: %s", e.Reason)
}

// Resolve maps a named range token to concrete bounds. Calendar tokens
// (last_month, previous_month, this_month, current_month) resolve to
// calendar month boundaries regardless of tenant config; other tokens are
// looked up in the model's date_ranges and resolve to rolling windows of
// now-N days to now, or to the previous calendar month when flagged.
func Resolve(token string, model *semantic.Model, now time.Time) (Range, error) {
	day := civil(now)

	switch token {
	case "last_month", "previous_month":
		return previousCalendarMonth(day), nil
	case "this_month", "current_month":
		return currentCalendarMonth(day), nil
	}

	dr, ok := model.DateRanges[token]
	if !ok {
		return Range{}, &UnsupportedRangeError{Token: token, Supported: model.DateRangeNames()}
	}
	if dr.Calendar {
		return previousCalendarMonth(day), nil
	}
	return Range{Start: day.AddDate(0, 0, -dr.Days), End: day}, nil
}

// ResolveExplicit validates an explicit from/to pair in YYYY-MM-DD form
// with from <= to.
func ResolveExplicit(from, to string) (Range, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return Range{}, &InvalidRangeError{Reason: fmt.Sprintf("start %q is not a YYYY-MM-DD date", from)}
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return Range{}, &InvalidRangeError{Reason: fmt.Sprintf("end %q is not a YYYY-MM-DD date", to)}
	}
	if start.After(end) {
		return Range{}, &InvalidRangeError{Reason: "start date is after end date"}
	}
	return Range{Start: start, End: end}, nil
}

// ResolvePeriod resolves calendar periods of the form 2025-Q3 (quarter)
// or 2025-FY (full year).
func ResolvePeriod(period string) (Range, error) {
	year, token, ok := strings.Cut(period, "-")
	if !ok {
		return Range{}, &InvalidRangeError{Reason: fmt.Sprintf("period %q must look like 2025-Q1 or 2025-FY", period)}
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Range{}, &InvalidRangeError{Reason: fmt.Sprintf("period %q has a non-numeric year", period)}
	}

	upper := strings.ToUpper(token)
	switch {
	case upper == "FY":
		return Range{
			Start: time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC),
		}, nil
	case strings.HasPrefix(upper, "Q") && len(upper) == 2:
		q := int(upper[1] - '0')
		if q < 1 || q > 4 {
			return Range{}, &InvalidRangeError{Reason: fmt.Sprintf("invalid quarter in period %q", period)}
		}
		start := time.Date(y, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return Range{Start: start, End: endOfMonth(start.AddDate(0, 2, 0))}, nil
	default:
		return Range{}, &InvalidRangeError{Reason: fmt.Sprintf("unsupported period token %q", token)}
	}
}

// ResolveMonth resolves a single calendar month given as YYYY-MM.
func ResolveMonth(month string) (Range, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return Range{}, &InvalidRangeError{Reason: fmt.Sprintf("month %q must look like 2025-03", month)}
	}
	return Range{Start: start, End: endOfMonth(start)}, nil
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func previousCalendarMonth(day time.Time) Range {
	firstOfThis := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := firstOfThis.AddDate(0, 0, -1)
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: end}
}

func currentCalendarMonth(day time.Time) Range {
	start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: endOfMonth(start)}
}

func endOfMonth(firstOfMonth time.Time) time.Time {
	return firstOfMonth.AddDate(0, 1, 0).AddDate(0, 0, -1)
}
