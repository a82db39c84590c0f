package semantic

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"semql/internal/snapshot"
)

// FactAlias is the fixed alias derived expressions use for the fact table.
const FactAlias = "f"

var exprIdentPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_.]*`)

// Words that may appear in a derived expression without being column
// references. Anything else must resolve to a fact table column.
var sqlWords = map[string]struct{}{
	"SUM": {}, "AVG": {}, "COUNT": {}, "MIN": {}, "MAX": {}, "TOTAL": {},
	"DISTINCT": {}, "NULLIF": {}, "COALESCE": {}, "IIF": {}, "ABS": {}, "ROUND": {},
	"CAST": {}, "AS": {}, "REAL": {}, "INTEGER": {}, "TEXT": {},
	"CASE": {}, "WHEN": {}, "THEN": {}, "ELSE": {}, "END": {},
	"AND": {}, "OR": {}, "NOT": {}, "NULL": {}, "IS": {}, "IN": {}, "LIKE": {},
}

// EphemeralMetric constructs a request-scoped derived metric from a raw SQL
// expression. Every column reference must exist on the fact table; bare
// references are rewritten to use the fact alias so the expression stays
// unambiguous once dimension tables are joined. The result is never added
// to the model.
func EphemeralMetric(name, expr string, snap *snapshot.Snapshot, factTable string) (MetricSpec, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return MetricSpec{}, fmt.Errorf("derived expression is empty")
	}
	if strings.ContainsAny(trimmed, ";") || strings.Contains(trimmed, "--") {
		return MetricSpec{}, fmt.Errorf("derived expression contains disallowed characters")
	}

	fact, ok := snap.Table(factTable)
	if !ok {
		return MetricSpec{}, fmt.Errorf("fact table %q not present in schema snapshot", factTable)
	}

	var unknown []string
	rewritten := exprIdentPattern.ReplaceAllStringFunc(trimmed, func(tok string) string {
		if _, ok := sqlWords[strings.ToUpper(tok)]; ok {
			return tok
		}
		if col, found := strings.CutPrefix(tok, FactAlias+"."); found {
			if !fact.HasColumn(col) {
				unknown = append(unknown, tok)
			}
			return tok
		}
		if strings.Contains(tok, ".") {
			unknown = append(unknown, tok)
			return tok
		}
		if !fact.HasColumn(tok) {
			unknown = append(unknown, tok)
			return tok
		}
		return FactAlias + "." + tok
	})

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return MetricSpec{}, fmt.Errorf("derived expression references unknown fact columns: %s",
			strings.Join(dedupe(unknown), ", "))
	}

	return MetricSpec{
		Name:       name,
		Expression: rewritten,
		Kind:       KindDerived,
		Ephemeral:  true,
	}, nil
}
