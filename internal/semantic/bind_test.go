package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semql/internal/snapshot"
)

func bindSnapshotFixture() *snapshot.Snapshot {
	return &snapshot.Snapshot{Tables: map[string]snapshot.Table{
		"fact_sales_pipeline": {
			Name: "fact_sales_pipeline",
			Columns: []snapshot.Column{
				{Name: "deal_id", PrimaryKey: true},
				{Name: "close_date"},
				{Name: "net_revenue"},
				{Name: "stage"},
			},
		},
		"dim_customer": {
			Name:    "dim_customer",
			Columns: []snapshot.Column{{Name: "customer_id"}, {Name: "customer_name"}, {Name: "segment"}},
		},
		"dim_region": {
			Name:    "dim_region",
			Columns: []snapshot.Column{{Name: "region_id"}, {Name: "country"}, {Name: "geo_cluster"}, {Name: "segment"}},
		},
	}}
}

func bindModelFixture() *Model {
	return &Model{
		FactTable:  "fact_sales_pipeline",
		DateColumn: "close_date",
		Metrics:    map[string]MetricSpec{"revenue": {Name: "revenue", Column: "net_revenue", Kind: KindColumnSum}},
		Dimensions: map[string]DimensionSpec{
			"customer_name": {Name: "customer_name", Column: "customer_name"},
			"region":        {Name: "region", Column: "geo_cluster"},
			"stage":         {Name: "stage", Column: "stage"},
		},
	}
}

func TestBindSnapshotResolvesTables(t *testing.T) {
	bound, err := BindSnapshot(bindModelFixture(), bindSnapshotFixture())
	require.NoError(t, err)

	assert.Equal(t, "dim_customer", bound.Dimensions["customer_name"].Table)
	assert.Equal(t, "dim_region", bound.Dimensions["region"].Table)
	// stage lives on the fact table; no join target.
	assert.Empty(t, bound.Dimensions["stage"].Table)
}

func TestBindSnapshotDoesNotMutateInput(t *testing.T) {
	model := bindModelFixture()
	_, err := BindSnapshot(model, bindSnapshotFixture())
	require.NoError(t, err)
	assert.Empty(t, model.Dimensions["customer_name"].Table)
}

func TestBindSnapshotAmbiguousColumn(t *testing.T) {
	model := bindModelFixture()
	model.Dimensions["segment"] = DimensionSpec{Name: "segment", Column: "segment"}

	_, err := BindSnapshot(model, bindSnapshotFixture())
	require.Error(t, err)
	assert.ErrorContains(t, err, "ambiguous")
	assert.ErrorContains(t, err, "dim_customer, dim_region")
}

func TestBindSnapshotExplicitTableDisambiguates(t *testing.T) {
	model := bindModelFixture()
	model.Dimensions["segment"] = DimensionSpec{Name: "segment", Column: "segment", Table: "dim_customer"}

	bound, err := BindSnapshot(model, bindSnapshotFixture())
	require.NoError(t, err)
	assert.Equal(t, "dim_customer", bound.Dimensions["segment"].Table)
}

func TestBindSnapshotUnknownColumn(t *testing.T) {
	model := bindModelFixture()
	model.Dimensions["ghost"] = DimensionSpec{Name: "ghost", Column: "ghost_col"}

	_, err := BindSnapshot(model, bindSnapshotFixture())
	assert.ErrorContains(t, err, "ghost_col")
}

func TestBindSnapshotExplicitTableMissingColumn(t *testing.T) {
	model := bindModelFixture()
	model.Dimensions["region"] = DimensionSpec{Name: "region", Column: "geo_cluster", Table: "dim_customer"}

	_, err := BindSnapshot(model, bindSnapshotFixture())
	assert.ErrorContains(t, err, `column "geo_cluster" not present on table "dim_customer"`)
}

func TestBindSnapshotMissingFactTable(t *testing.T) {
	model := bindModelFixture()
	model.FactTable = "fact_orders"

	_, err := BindSnapshot(model, bindSnapshotFixture())
	assert.ErrorContains(t, err, "fact_orders")
}

func TestBindSnapshotMissingDateColumn(t *testing.T) {
	model := bindModelFixture()
	model.DateColumn = "order_date"

	_, err := BindSnapshot(model, bindSnapshotFixture())
	assert.ErrorContains(t, err, "order_date")
}
