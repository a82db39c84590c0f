package dbexec

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistinctValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT DISTINCT "customer_name" FROM "dim_customer" WHERE "customer_name" IS NOT NULL ORDER BY "customer_name"`).
		WillReturnRows(sqlmock.NewRows([]string{"customer_name"}).
			AddRow("Acme Corp").
			AddRow("Globex"))

	values, err := DistinctValues(context.Background(), NewStandardExecutor(db), "dim_customer", "customer_name")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme Corp", "Globex"}, values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistinctValuesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT DISTINCT").WillReturnError(assert.AnError)

	_, err = DistinctValues(context.Background(), NewStandardExecutor(db), "dim_customer", "customer_name")
	require.Error(t, err)
	assert.ErrorContains(t, err, "dim_customer.customer_name")
}

func TestLookupDistinctValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT DISTINCT "geo_cluster" FROM "dim_region"`).
		WillReturnRows(sqlmock.NewRows([]string{"geo_cluster"}).AddRow("EMEA"))

	lookup := NewLookup(NewStandardExecutor(db))
	values, err := lookup.DistinctValues(context.Background(), "dim_region", "geo_cluster")
	require.NoError(t, err)
	assert.Equal(t, []string{"EMEA"}, values)
}

func TestQueryMaps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT month, metric").
		WithArgs("2025-01-01", "2025-12-31").
		WillReturnRows(sqlmock.NewRows([]string{"month", "metric"}).
			AddRow("2025-01", 1200.5).
			AddRow([]byte("2025-02"), 900.0))

	rows, err := QueryMaps(context.Background(), NewStandardExecutor(db),
		"SELECT month, metric FROM t WHERE d BETWEEN ? AND ?", "2025-01-01", "2025-12-31")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-01", rows[0]["month"])
	assert.Equal(t, 1200.5, rows[0]["metric"])
	// []byte columns come back as strings
	assert.Equal(t, "2025-02", rows[1]["month"])
}

func TestStandardExecutorNilDB(t *testing.T) {
	exec := NewStandardExecutor(nil)
	_, err := exec.QueryContext(context.Background(), "SELECT 1")
	assert.Error(t, err)
}
