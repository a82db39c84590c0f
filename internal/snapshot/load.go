package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Artifact mirrors the JSON emitted by the schema extraction tool. Declared
// and inferred foreign keys arrive in separate lists; loading merges them
// into tagged edges on each table.
type artifact struct {
	Version     string                   `json:"version"`
	GeneratedAt string                   `json:"generated_at"`
	Tables      map[string]artifactTable `json:"tables"`
}

type artifactTable struct {
	Table       string           `json:"table"`
	Columns     []artifactColumn `json:"columns"`
	PrimaryKey  []string         `json:"primary_key"`
	DeclaredFKs []artifactFK     `json:"declared_foreign_keys"`
	InferredFKs []artifactFK     `json:"inferred_foreign_keys"`
}

type artifactColumn struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"notnull"`
	PK      bool   `json:"pk"`
}

type artifactFK struct {
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Load reads a schema snapshot artifact from disk. The extraction tool may
// write the file with a UTF-8 BOM.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema snapshot: %w", err)
	}
	return Parse(data)
}

// Parse decodes a schema snapshot artifact.
func Parse(data []byte) (*Snapshot, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode schema snapshot: %w", err)
	}
	if len(art.Tables) == 0 {
		return nil, fmt.Errorf("schema snapshot contains no tables")
	}

	snap := &Snapshot{
		Tables:  make(map[string]Table, len(art.Tables)),
		Version: art.Version,
		BuiltAt: time.Now(),
	}
	if art.GeneratedAt != "" {
		if ts, err := time.Parse(time.RFC3339, art.GeneratedAt); err == nil {
			snap.BuiltAt = ts
		}
	}

	for name, at := range art.Tables {
		if at.Table != "" {
			name = at.Table
		}
		table := Table{Name: name, PrimaryKey: at.PrimaryKey}
		for _, c := range at.Columns {
			table.Columns = append(table.Columns, Column{
				Name:       c.Name,
				Type:       c.Type,
				NotNull:    c.NotNull,
				PrimaryKey: c.PK,
			})
			if c.PK && len(at.PrimaryKey) == 0 {
				table.PrimaryKey = append(table.PrimaryKey, c.Name)
			}
		}
		for _, fk := range at.DeclaredFKs {
			table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
				Column:    fk.Column,
				RefTable:  fk.RefTable,
				RefColumn: fk.RefColumn,
				Source:    EdgeDeclared,
			})
		}
		for _, fk := range at.InferredFKs {
			table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
				Column:    fk.Column,
				RefTable:  fk.RefTable,
				RefColumn: fk.RefColumn,
				Source:    EdgeInferred,
			})
		}
		snap.Tables[name] = table
	}

	return snap, nil
}
