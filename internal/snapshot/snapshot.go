// Package snapshot models an immutable, versioned description of the
// physical database schema: tables, columns, primary keys, and foreign key
// edges. Snapshots are normally loaded from an artifact generated by the
// schema extraction tool; when the artifact is absent the package can build
// a degraded snapshot from live SQLite introspection.
package snapshot

import (
	"sort"
	"strings"
	"time"
)

// EdgeSource distinguishes foreign keys declared in the schema from edges
// inferred by naming heuristics. Declared edges are always preferred;
// inferred edges exist only to cover schemas lacking explicit constraints
// and produce low-confidence joins.
type EdgeSource string

const (
	EdgeDeclared EdgeSource = "declared"
	EdgeInferred EdgeSource = "inferred"
)

// Column describes one column of a table.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// ForeignKey is a single edge from a column of the owning table to a column
// of another table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
	Source    EdgeSource
}

// Table holds the metadata of one physical table.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
}

// HasColumn reports whether the table contains the named column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Snapshot is a point-in-time capture of the schema. It is treated as
// read-only after construction; reload is an atomic swap via Manager.
type Snapshot struct {
	Tables  map[string]Table
	Version string
	BuiltAt time.Time
	// Degraded marks snapshots built from live introspection instead of the
	// extraction artifact.
	Degraded bool
}

// Table returns the metadata for the named table.
func (s *Snapshot) Table(name string) (Table, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// TableNames returns all table names in sorted order.
func (s *Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsDimensionTable reports whether a table follows the dimension naming
// convention of the star schema.
func IsDimensionTable(name string) bool {
	return strings.HasPrefix(name, "dim_")
}

// DimensionTablesWithColumn returns the dimension tables containing the
// named column, in sorted order. More than one result means the column is
// ambiguous without an explicit table in the tenant's dimension spec.
func (s *Snapshot) DimensionTablesWithColumn(column string) []string {
	var out []string
	for _, name := range s.TableNames() {
		if !IsDimensionTable(name) {
			continue
		}
		if s.Tables[name].HasColumn(column) {
			out = append(out, name)
		}
	}
	return out
}

// Edges returns the foreign key edges from one table to another, declared
// edges first. Within a source, edges keep a deterministic column order.
func (s *Snapshot) Edges(from, to string) []ForeignKey {
	table, ok := s.Tables[from]
	if !ok {
		return nil
	}
	var edges []ForeignKey
	for _, fk := range table.ForeignKeys {
		if fk.RefTable == to {
			edges = append(edges, fk)
		}
	}
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source == EdgeDeclared
		}
		return edges[i].Column < edges[j].Column
	})
	return edges
}
