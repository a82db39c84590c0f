package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyExpression(t *testing.T) {
	tests := []struct {
		name       string
		expr       string
		wantKind   MetricKind
		wantColumn string
	}{
		{"bare column", "net_revenue", KindColumnSum, "net_revenue"},
		{"explicit sum", "SUM(net_revenue)", KindColumnSum, "net_revenue"},
		{"lowercase sum", "sum(arr)", KindColumnSum, "arr"},
		{"average", "AVG(deal_size)", KindAvgColumn, "deal_size"},
		{"count star", "COUNT(*)", KindCountStar, ""},
		{"derived ratio", "SUM(net_revenue) / NULLIF(COUNT(DISTINCT customer_id), 0)", KindDerived, ""},
		{"derived arithmetic", "gross_revenue - discounts", KindDerived, ""},
		{"sum of expression", "SUM(net_revenue * fx_rate)", KindDerived, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ClassifyExpression("m", tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, spec.Kind)
			assert.Equal(t, tt.wantColumn, spec.Column)
			assert.False(t, spec.Ephemeral)
		})
	}
}

func TestClassifyExpressionEmpty(t *testing.T) {
	_, err := ClassifyExpression("m", "   ")
	assert.ErrorContains(t, err, "empty expression")
}

func TestMetricKindString(t *testing.T) {
	assert.Equal(t, "column_sum", KindColumnSum.String())
	assert.Equal(t, "count_star", KindCountStar.String())
	assert.Equal(t, "avg_column", KindAvgColumn.String())
	assert.Equal(t, "derived", KindDerived.String())
	assert.Equal(t, "metric_kind(99)", MetricKind(99).String())
}
