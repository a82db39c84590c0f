package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semql/internal/semantic"
)

func rangeModel() *semantic.Model {
	return &semantic.Model{
		DateRanges: map[string]semantic.DateRange{
			"last_12_months": {Days: 365},
			"last_6_months":  {Days: 182},
			"last_30_days":   {Days: 30},
			"trailing_month": {Calendar: true},
		},
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestResolveRollingWindow(t *testing.T) {
	now := mustDate(t, "2025-11-15")

	r, err := Resolve("last_12_months", rangeModel(), now)
	require.NoError(t, err)
	assert.Equal(t, "2024-11-15", r.StartString())
	assert.Equal(t, "2025-11-15", r.EndString())
}

func TestResolveLast6MonthsAlways182Days(t *testing.T) {
	for _, nowStr := range []string{"2025-01-01", "2025-02-28", "2025-07-04", "2024-02-29", "2025-12-31"} {
		now := mustDate(t, nowStr)
		r, err := Resolve("last_6_months", rangeModel(), now)
		require.NoError(t, err)
		assert.Equal(t, 182*24*time.Hour, r.End.Sub(r.Start), "now=%s", nowStr)
	}
}

func TestResolveLastMonthCalendar(t *testing.T) {
	r, err := Resolve("last_month", rangeModel(), mustDate(t, "2025-11-15"))
	require.NoError(t, err)
	assert.Equal(t, "2025-10-01", r.StartString())
	assert.Equal(t, "2025-10-31", r.EndString())
}

func TestResolveLastMonthAcrossYearBoundary(t *testing.T) {
	r, err := Resolve("previous_month", rangeModel(), mustDate(t, "2026-01-10"))
	require.NoError(t, err)
	assert.Equal(t, "2025-12-01", r.StartString())
	assert.Equal(t, "2025-12-31", r.EndString())
}

func TestResolveCalendarFlaggedConfigRange(t *testing.T) {
	r, err := Resolve("trailing_month", rangeModel(), mustDate(t, "2025-03-09"))
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", r.StartString())
	assert.Equal(t, "2025-02-28", r.EndString())
}

func TestResolveThisMonth(t *testing.T) {
	r, err := Resolve("this_month", rangeModel(), mustDate(t, "2025-11-15"))
	require.NoError(t, err)
	assert.Equal(t, "2025-11-01", r.StartString())
	assert.Equal(t, "2025-11-30", r.EndString())
}

func TestResolveUnsupportedToken(t *testing.T) {
	_, err := Resolve("last_fortnight", rangeModel(), mustDate(t, "2025-11-15"))

	var unsupported *UnsupportedRangeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "last_fortnight", unsupported.Token)
	assert.Contains(t, unsupported.Supported, "last_12_months")
	assert.Contains(t, unsupported.Supported, "previous_month")
}

func TestResolveExplicit(t *testing.T) {
	r, err := ResolveExplicit("2025-01-01", "2025-03-31")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", r.StartString())
	assert.Equal(t, "2025-03-31", r.EndString())
}

func TestResolveExplicitBadFormat(t *testing.T) {
	_, err := ResolveExplicit("01/01/2025", "2025-03-31")
	var invalid *InvalidRangeError
	require.ErrorAs(t, err, &invalid)

	_, err = ResolveExplicit("2025-01-01", "March 31")
	assert.ErrorAs(t, err, &invalid)
}

func TestResolveExplicitReversed(t *testing.T) {
	_, err := ResolveExplicit("2025-03-31", "2025-01-01")
	assert.ErrorContains(t, err, "after end date")
}

func TestResolvePeriodQuarter(t *testing.T) {
	r, err := ResolvePeriod("2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", r.StartString())
	assert.Equal(t, "2025-03-31", r.EndString())

	r, err = ResolvePeriod("2025-q4")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-01", r.StartString())
	assert.Equal(t, "2025-12-31", r.EndString())
}

func TestResolvePeriodFiscalYear(t *testing.T) {
	r, err := ResolvePeriod("2024-FY")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", r.StartString())
	assert.Equal(t, "2024-12-31", r.EndString())
}

func TestResolvePeriodInvalid(t *testing.T) {
	for _, bad := range []string{"2025", "twenty-Q1", "2025-Q5", "2025-H1"} {
		_, err := ResolvePeriod(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveMonth(t *testing.T) {
	r, err := ResolveMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", r.StartString())
	assert.Equal(t, "2024-02-29", r.EndString())
}

func TestResolveMonthInvalid(t *testing.T) {
	_, err := ResolveMonth("Feb 2024")
	assert.Error(t, err)
}
