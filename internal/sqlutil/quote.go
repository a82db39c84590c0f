// Package sqlutil provides SQL utility functions for the SQLite dialect.
package sqlutil

import "strings"

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// with double quotes and escapes any double quotes within the identifier.
func QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// Qualify returns alias.column with the column quoted. The alias is a
// compiler-assigned identifier (f, d0, d1, ...) and is emitted as-is.
func Qualify(alias, column string) string {
	return alias + "." + QuoteIdentifier(column)
}

// QuoteString quotes a SQL string literal with single quotes and escapes
// any single quotes within the string by doubling them. Filter values are
// always bound, never quoted into query text; this exists for identifiers
// that SQLite only accepts in literal position (PRAGMA arguments).
func QuoteString(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	return "'" + escaped + "'"
}
