package snapshot

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// InferForeignKeys adds heuristic foreign key edges for columns named
// <base>_id that have no declared edge. Candidate targets, in order:
// dim_<base>, <base>, dim_<plural base>, <plural base>. The referenced
// column is the same name when the target carries it, otherwise the
// target's single-column primary key. Every edge added here is tagged
// EdgeInferred so join resolution can flag lower confidence.
func InferForeignKeys(snap *Snapshot) {
	for name, table := range snap.Tables {
		for _, col := range table.Columns {
			if !strings.HasSuffix(col.Name, "_id") {
				continue
			}
			base := strings.TrimSuffix(col.Name, "_id")
			if base == "" {
				continue
			}

			target := findTarget(snap, name, base)
			if target == "" {
				continue
			}
			if hasEdge(table, col.Name, target) {
				continue
			}

			refColumn := col.Name
			targetTable := snap.Tables[target]
			if !targetTable.HasColumn(refColumn) {
				if len(targetTable.PrimaryKey) != 1 {
					continue
				}
				refColumn = targetTable.PrimaryKey[0]
			}

			table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
				Column:    col.Name,
				RefTable:  target,
				RefColumn: refColumn,
				Source:    EdgeInferred,
			})
		}
		snap.Tables[name] = table
	}
}

func findTarget(snap *Snapshot, owner, base string) string {
	plural := inflection.Plural(base)
	candidates := []string{"dim_" + base, base, "dim_" + plural, plural}
	for _, cand := range candidates {
		if cand == owner {
			continue
		}
		if _, ok := snap.Tables[cand]; ok {
			return cand
		}
	}
	return ""
}

func hasEdge(table Table, column, refTable string) bool {
	for _, fk := range table.ForeignKeys {
		if fk.Column == column && fk.RefTable == refTable {
			return true
		}
	}
	return false
}
