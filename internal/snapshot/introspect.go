package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"semql/internal/dbexec"
	"semql/internal/sqlutil"
)

// BuildFromDB constructs a snapshot by introspecting a live SQLite database
// through sqlite_master and PRAGMA statements. This is the explicitly
// degraded mode used only when the extraction artifact is absent; the
// resulting snapshot is marked Degraded and has heuristic edges inferred.
func BuildFromDB(ctx context.Context, exec dbexec.QueryExecutor) (*Snapshot, error) {
	tracer := otel.Tracer("semql/snapshot")
	ctx, span := tracer.Start(ctx, "snapshot.build_from_db")
	defer span.End()

	names, err := listTables(ctx, exec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "table listing failed")
		return nil, err
	}

	snap := &Snapshot{
		Tables:   make(map[string]Table, len(names)),
		BuiltAt:  time.Now(),
		Degraded: true,
	}

	for _, name := range names {
		table, err := introspectTable(ctx, exec, name)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "table introspection failed")
			return nil, err
		}
		snap.Tables[name] = table
	}

	resolveImplicitRefs(snap)
	InferForeignKeys(snap)

	span.SetAttributes(attribute.Int("snapshot.tables", len(snap.Tables)))
	return snap, nil
}

func listTables(ctx context.Context, exec dbexec.QueryExecutor) ([]string, error) {
	rows, err := exec.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func introspectTable(ctx context.Context, exec dbexec.QueryExecutor, name string) (Table, error) {
	table := Table{Name: name}

	rows, err := exec.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", sqlutil.QuoteString(name)))
	if err != nil {
		return Table{}, fmt.Errorf("table_info %s: %w", name, err)
	}
	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return Table{}, err
		}
		table.Columns = append(table.Columns, Column{
			Name:       colName,
			Type:       colType,
			NotNull:    notNull != 0,
			PrimaryKey: pk != 0,
		})
		if pk != 0 {
			table.PrimaryKey = append(table.PrimaryKey, colName)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Table{}, err
	}
	rows.Close()

	fkRows, err := exec.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", sqlutil.QuoteString(name)))
	if err != nil {
		// Some handles disallow foreign_key_list; declared edges are simply absent.
		return table, nil
	}
	defer fkRows.Close()
	for fkRows.Next() {
		var (
			id, seq                   int
			refTable, from            string
			to                        sql.NullString
			onUpdate, onDelete, match any
		)
		if err := fkRows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return Table{}, err
		}
		// to is NULL when the FK references the target's implicit primary
		// key; resolveImplicitRefs fills it in once all tables are loaded.
		table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
			Column:    from,
			RefTable:  refTable,
			RefColumn: to.String,
			Source:    EdgeDeclared,
		})
	}
	return table, fkRows.Err()
}

// resolveImplicitRefs rewrites declared foreign keys that carry no target
// column to the referenced table's single-column primary key. Edges whose
// target cannot be resolved are dropped rather than left dangling.
func resolveImplicitRefs(snap *Snapshot) {
	for name, table := range snap.Tables {
		kept := table.ForeignKeys[:0]
		for _, fk := range table.ForeignKeys {
			if fk.RefColumn == "" {
				target, ok := snap.Tables[fk.RefTable]
				if !ok || len(target.PrimaryKey) != 1 {
					continue
				}
				fk.RefColumn = target.PrimaryKey[0]
			}
			kept = append(kept, fk)
		}
		table.ForeignKeys = kept
		snap.Tables[name] = table
	}
}
