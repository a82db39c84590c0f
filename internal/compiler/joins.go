package compiler

import (
	"fmt"

	"semql/internal/semantic"
	"semql/internal/snapshot"
	"semql/internal/sqlutil"
)

// CodeJoinResolutionFailed marks a dimension whose table has no foreign key
// edge from the fact table, declared or inferred.
const CodeJoinResolutionFailed = "JOIN_RESOLUTION_FAILED"

// JoinResolutionError reports a dimension the compiler could not join.
type JoinResolutionError struct {
	Dimension string
	FactTable string
	DimTable  string
}

func (e *JoinResolutionError) Error() string {
	return fmt.Sprintf("%s: no foreign key edge from %s to %s for dimension %q",
		CodeJoinResolutionFailed, e.FactTable, e.DimTable, e.Dimension)
}

// Join is one resolved fact-to-dimension join of a compiled query.
type Join struct {
	Table      string              `json:"table"`
	Alias      string              `json:"alias"`
	FactColumn string              `json:"fact_column"`
	DimColumn  string              `json:"dim_column"`
	Source     snapshot.EdgeSource `json:"source"`
	// LowConfidence marks joins riding an inferred edge.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// Clause renders the join as a squirrel JOIN argument.
func (j Join) Clause() string {
	return fmt.Sprintf("%s AS %s ON %s = %s",
		sqlutil.QuoteIdentifier(j.Table),
		j.Alias,
		sqlutil.Qualify(j.Alias, j.DimColumn),
		sqlutil.Qualify(FactAlias, j.FactColumn),
	)
}

// joinSet collects the joins a query needs, one per dimension table, with
// deterministic d0, d1, ... aliases in order of first use.
type joinSet struct {
	snap    *snapshot.Snapshot
	fact    string
	joins   []Join
	byTable map[string]int
}

func newJoinSet(snap *snapshot.Snapshot, factTable string) *joinSet {
	return &joinSet{snap: snap, fact: factTable, byTable: make(map[string]int)}
}

// columnRef resolves a dimension spec to a qualified column reference,
// adding the join when the dimension lives on its own table. Edges are
// consumed declared-first, so an inferred edge is used only when no
// declared edge exists.
func (s *joinSet) columnRef(dim string, spec semantic.DimensionSpec) (string, error) {
	if spec.Table == "" || spec.Table == s.fact {
		return sqlutil.Qualify(FactAlias, spec.Column), nil
	}

	if idx, ok := s.byTable[spec.Table]; ok {
		return sqlutil.Qualify(s.joins[idx].Alias, spec.Column), nil
	}

	edges := s.snap.Edges(s.fact, spec.Table)
	if len(edges) == 0 {
		return "", &JoinResolutionError{Dimension: dim, FactTable: s.fact, DimTable: spec.Table}
	}
	edge := edges[0]

	join := Join{
		Table:         spec.Table,
		Alias:         fmt.Sprintf("d%d", len(s.joins)),
		FactColumn:    edge.Column,
		DimColumn:     edge.RefColumn,
		Source:        edge.Source,
		LowConfidence: edge.Source == snapshot.EdgeInferred,
	}
	s.byTable[spec.Table] = len(s.joins)
	s.joins = append(s.joins, join)
	return sqlutil.Qualify(join.Alias, spec.Column), nil
}

func (s *joinSet) all() []Join {
	return s.joins
}

func (s *joinSet) hasInferred() bool {
	for _, j := range s.joins {
		if j.LowConfidence {
			return true
		}
	}
	return false
}
