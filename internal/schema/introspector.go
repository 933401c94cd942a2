package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

const (
	listTablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`

	listColumnsQuery = `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

	listForeignKeysQuery = `
SELECT kcu.constraint_name, kcu.table_name, kcu.column_name, pk.table_name, pk.column_name
FROM information_schema.referential_constraints rc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_schema = rc.constraint_schema AND kcu.constraint_name = rc.constraint_name
JOIN information_schema.key_column_usage pk
  ON pk.constraint_schema = rc.unique_constraint_schema
 AND pk.constraint_name = rc.unique_constraint_name
 AND pk.ordinal_position = kcu.position_in_unique_constraint
WHERE kcu.table_schema = $1
ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`
)

type Introspector struct {
	db     *sql.DB
	schema string
	logger *slog.Logger
}

func NewIntrospector(db *sql.DB, schemaName string, logger *slog.Logger) *Introspector {
	schemaName = strings.TrimSpace(schemaName)
	if schemaName == "" {
		schemaName = "public"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Introspector{db: db, schema: schemaName, logger: logger}
}

func (i *Introspector) SchemaName() string {
	return i.schema
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	if i.db == nil {
		return nil, fmt.Errorf("database is not configured")
	}
	rows, err := i.db.QueryContext(ctx, listTablesQuery, i.schema)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tables, nil
}

func (i *Introspector) ListColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := i.db.QueryContext(ctx, listColumnsQuery, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var column Column
		if err := rows.Scan(&column.Name, &column.DataType); err != nil {
			return nil, fmt.Errorf("scan column for %q: %w", table, err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return columns, nil
}

func (i *Introspector) ListRelationships(ctx context.Context) ([]Relationship, error) {
	rows, err := i.db.QueryContext(ctx, listForeignKeysQuery, i.schema)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var relationships []Relationship
	index := map[string]int{}
	for rows.Next() {
		var constraint, childTable, childColumn, parentTable, parentColumn string
		if err := rows.Scan(&constraint, &childTable, &childColumn, &parentTable, &parentColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		key := childTable + "." + constraint
		pos, ok := index[key]
		if !ok {
			relationships = append(relationships, Relationship{
				Constraint:  constraint,
				ChildTable:  childTable,
				ParentTable: parentTable,
			})
			pos = len(relationships) - 1
			index[key] = pos
		}
		relationships[pos].ChildColumns = append(relationships[pos].ChildColumns, childColumn)
		relationships[pos].ParentColumns = append(relationships[pos].ParentColumns, parentColumn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return relationships, nil
}

// Snapshot never fails: a table whose columns cannot be read keeps an empty column
// list, and a failed table listing yields an empty snapshot.
func (i *Introspector) Snapshot(ctx context.Context) Snapshot {
	snapshot := Snapshot{Columns: map[string][]Column{}}
	tables, err := i.ListTables(ctx)
	if err != nil {
		i.logger.WarnContext(ctx, "schema snapshot unavailable", slog.Any("error", err))
		return snapshot
	}
	snapshot.Tables = tables

	for _, table := range tables {
		columns, err := i.ListColumns(ctx, table)
		if err != nil {
			i.logger.WarnContext(ctx, "table columns unavailable",
				slog.String("table", table),
				slog.Any("error", err),
			)
			columns = []Column{}
		}
		snapshot.Columns[table] = columns
	}

	relationships, err := i.ListRelationships(ctx)
	if err != nil {
		i.logger.WarnContext(ctx, "foreign keys unavailable", slog.Any("error", err))
		relationships = nil
	}
	snapshot.Relationships = relationships
	return snapshot
}
