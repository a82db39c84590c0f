package sqlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple name", "orders", `"orders"`},
		{"snake case", "fact_sales_pipeline", `"fact_sales_pipeline"`},
		{"embedded quote", `bad"name`, `"bad""name"`},
		{"empty", "", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteIdentifier(tt.input))
		})
	}
}

func TestQualify(t *testing.T) {
	assert.Equal(t, `f."net_revenue"`, Qualify("f", "net_revenue"))
	assert.Equal(t, `d0."customer_name"`, Qualify("d0", "customer_name"))
}

func TestQuoteString(t *testing.T) {
	assert.Equal(t, `'fact_sales_pipeline'`, QuoteString("fact_sales_pipeline"))
	assert.Equal(t, `'O''Brien'`, QuoteString("O'Brien"))
}
