package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScalarShapes(t *testing.T) {
	in, err := Decode(strings.NewReader(`{
		"metric": "revenue",
		"filters": {"customer_name": "Acme Corp"},
		"group_by": "month",
		"date_range": "last_12_months"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "revenue", in.Metric)
	assert.Equal(t, FilterValue{"Acme Corp"}, in.Filters["customer_name"])
	assert.Equal(t, GroupBy{"month"}, in.GroupBy)
	assert.Equal(t, "last_12_months", in.DateRange)
}

func TestDecodeListShapes(t *testing.T) {
	in, err := Decode(strings.NewReader(`{
		"metric": "deal_count",
		"filters": {"region": ["EMEA", "APAC"]},
		"group_by": ["sales_rep", "month"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, FilterValue{"EMEA", "APAC"}, in.Filters["region"])
	assert.Equal(t, GroupBy{"sales_rep", "month"}, in.GroupBy)
}

func TestDecodeNullAndEmptyGroupBy(t *testing.T) {
	in, err := Decode(strings.NewReader(`{"metric": "revenue", "group_by": null}`))
	require.NoError(t, err)
	assert.Nil(t, in.GroupBy)

	in, err = Decode(strings.NewReader(`{"metric": "revenue", "group_by": ""}`))
	require.NoError(t, err)
	assert.Nil(t, in.GroupBy)
}

func TestDecodeCustomDate(t *testing.T) {
	in, err := Decode(strings.NewReader(`{
		"metric": "revenue",
		"custom_date": {"period": "2025-Q1"}
	}`))
	require.NoError(t, err)
	require.NotNil(t, in.CustomDate)
	assert.Equal(t, "2025-Q1", in.CustomDate.Period)
}

func TestDecodeBadFilterValue(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"metric": "revenue", "filters": {"region": 7}}`))
	assert.ErrorContains(t, err, "filter value")
}

func TestDecodeBadGroupBy(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"metric": "revenue", "group_by": {"dim": "x"}}`))
	assert.ErrorContains(t, err, "group_by")
}

func TestFilterValueMarshalRoundTrip(t *testing.T) {
	single := FilterValue{"Acme Corp"}
	data, err := single.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"Acme Corp"`, string(data))

	many := FilterValue{"EMEA", "APAC"}
	data, err = many.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `["EMEA", "APAC"]`, string(data))
}

func TestCloneFilters(t *testing.T) {
	v := &Validated{Filters: map[string]FilterValue{"region": {"EMEA"}}}
	cloned := v.CloneFilters()
	cloned["region"][0] = "APAC"
	cloned["extra"] = FilterValue{"x"}

	assert.Equal(t, FilterValue{"EMEA"}, v.Filters["region"])
	assert.NotContains(t, v.Filters, "extra")
}
