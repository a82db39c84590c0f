// Package dbexec provides read-only database query execution abstractions.
// The compiler itself performs no I/O; everything that touches the store
// (disambiguation lookups, live introspection, running a compiled query)
// goes through a QueryExecutor so callers can swap in instrumented or
// mocked implementations.
package dbexec

import (
	"context"
	"database/sql"
	"fmt"

	"semql/internal/sqlutil"
)

// Rows abstracts sql.Rows to allow wrapped cleanup behavior.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// QueryExecutor abstracts SQL execution so callers can swap in mocks or
// instrumented handles.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
}

// StandardExecutor executes queries directly against a database handle.
type StandardExecutor struct {
	db *sql.DB
}

// NewStandardExecutor creates an executor that runs queries directly against the database.
func NewStandardExecutor(db *sql.DB) *StandardExecutor {
	return &StandardExecutor{db: db}
}

func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

// DistinctValues returns the distinct non-null values stored in table.column,
// ordered for deterministic results. Used by the disambiguator to resolve
// free-text filter values to canonical stored values.
func DistinctValues(ctx context.Context, exec QueryExecutor, table, column string) ([]string, error) {
	col := sqlutil.QuoteIdentifier(column)
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		col, sqlutil.QuoteIdentifier(table), col, col)

	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct values for %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value for %s.%s: %w", table, column, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// Lookup adapts a QueryExecutor to the disambiguator's lookup contract.
type Lookup struct {
	exec QueryExecutor
}

// NewLookup creates a read-only lookup backed by the given executor.
func NewLookup(exec QueryExecutor) *Lookup {
	return &Lookup{exec: exec}
}

func (l *Lookup) DistinctValues(ctx context.Context, table, column string) ([]string, error) {
	return DistinctValues(ctx, l.exec, table, column)
}

// QueryMaps runs a query and collects every row as a column-name keyed map.
// Used by the wiring binary to print result rows; the compiler never calls it.
func QueryMaps(ctx context.Context, exec QueryExecutor, query string, args ...any) ([]map[string]any, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
