// Package intent defines the structured request contract between the
// external natural-language layer and the compiler: what the user wants
// (metric, filters, grouping, date range), independent of SQL. Intents are
// constructed fresh per request and immutable once validated.
package intent

import (
	"encoding/json"
	"fmt"
	"io"

	"semql/internal/daterange"
	"semql/internal/semantic"
)

// FilterValue holds one filter's value: a single string or a list of
// strings. JSON accepts either shape.
type FilterValue []string

func (v *FilterValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = FilterValue{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("filter value must be a string or list of strings")
	}
	*v = FilterValue(many)
	return nil
}

func (v FilterValue) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]string(v))
}

// GroupBy holds the grouping targets: absent, a single dimension or the
// month bucket, or a list mixing both. JSON accepts null, a string, or an
// array of strings.
type GroupBy []string

func (g *GroupBy) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*g = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*g = nil
		} else {
			*g = GroupBy{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("group_by must be a string or list of strings")
	}
	*g = GroupBy(many)
	return nil
}

// CustomDate is an explicit date payload: absolute bounds, a calendar
// period like 2025-Q1 or 2025-FY, or a single month like 2025-03.
type CustomDate struct {
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Period string `json:"period,omitempty"`
	Month  string `json:"month,omitempty"`
}

// Intent is the input contract from the external parsing layer.
type Intent struct {
	Metric            string                 `json:"metric"`
	Filters           map[string]FilterValue `json:"filters,omitempty"`
	GroupBy           GroupBy                `json:"group_by,omitempty"`
	DateRange         string                 `json:"date_range,omitempty"`
	CustomDate        *CustomDate            `json:"custom_date,omitempty"`
	DerivedExpression string                 `json:"derived_expression,omitempty"`
}

// Decode reads an Intent from JSON.
func Decode(r io.Reader) (*Intent, error) {
	var in Intent
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return &in, nil
}

// Validated is an intent that passed validation: the metric is resolved to
// its spec, dates are concrete, and (after disambiguation) filter values
// are canonical stored values. Treated as immutable; the disambiguator
// returns a fresh copy rather than mutating in place.
type Validated struct {
	Metric  semantic.MetricSpec
	Filters map[string]FilterValue
	GroupBy GroupBy
	Dates   daterange.Range
}

// CloneFilters returns a deep copy of the filter map, used when producing
// a modified Validated intent.
func (v *Validated) CloneFilters() map[string]FilterValue {
	out := make(map[string]FilterValue, len(v.Filters))
	for k, vals := range v.Filters {
		copied := make(FilterValue, len(vals))
		copy(copied, vals)
		out[k] = copied
	}
	return out
}
