package semantic

import (
	"fmt"
	"strings"

	"semql/internal/snapshot"
)

// BindSnapshot verifies the model against a schema snapshot and pins every
// dimension to its physical table. Tenant config is not trusted blindly:
// a dimension without an explicit table must resolve to exactly one
// dimension table, and explicit tables must actually carry the column.
// Returns a new model; the input is not mutated.
func BindSnapshot(model *Model, snap *snapshot.Snapshot) (*Model, error) {
	fact, ok := snap.Table(model.FactTable)
	if !ok {
		return nil, fmt.Errorf("fact table %q not present in schema snapshot", model.FactTable)
	}
	if !fact.HasColumn(model.DateColumn) {
		return nil, fmt.Errorf("date column %q not present on fact table %q", model.DateColumn, model.FactTable)
	}

	bound := *model
	bound.Dimensions = make(map[string]DimensionSpec, len(model.Dimensions))

	for name, spec := range model.Dimensions {
		resolved, err := bindDimension(spec, fact, snap)
		if err != nil {
			return nil, err
		}
		bound.Dimensions[name] = resolved
	}

	return &bound, nil
}

func bindDimension(spec DimensionSpec, fact snapshot.Table, snap *snapshot.Snapshot) (DimensionSpec, error) {
	if spec.Table != "" {
		table, ok := snap.Table(spec.Table)
		if !ok {
			return DimensionSpec{}, fmt.Errorf("dimension %q: table %q not present in schema snapshot", spec.Name, spec.Table)
		}
		if !table.HasColumn(spec.Column) {
			return DimensionSpec{}, fmt.Errorf("dimension %q: column %q not present on table %q", spec.Name, spec.Column, spec.Table)
		}
		return spec, nil
	}

	// Fact-resident dimensions need no join and keep an empty table.
	if fact.HasColumn(spec.Column) {
		return spec, nil
	}

	tables := snap.DimensionTablesWithColumn(spec.Column)
	switch len(tables) {
	case 1:
		spec.Table = tables[0]
		return spec, nil
	case 0:
		return DimensionSpec{}, fmt.Errorf("dimension %q: column %q not found on the fact table or any dimension table", spec.Name, spec.Column)
	default:
		return DimensionSpec{}, fmt.Errorf("dimension %q: column %q is ambiguous across tables %s; pin a table in tenant config",
			spec.Name, spec.Column, strings.Join(tables, ", "))
	}
}
