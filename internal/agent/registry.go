package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dbchat/dbchat/internal/observability"
	"github.com/dbchat/dbchat/internal/schema"
)

const (
	ToolListTables = "list_tables"
	ToolGetSchema  = "get_schema"
	ToolExecuteSQL = "execute_sql"
)

type SchemaSource interface {
	ListTables(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context) schema.Snapshot
}

type SQLRunner interface {
	Run(ctx context.Context, raw string) string
	Sample(ctx context.Context, table string, limit int) string
}

type getSchemaInput struct {
	Tables []string `json:"tables"`
}

type executeSQLInput struct {
	Query string `json:"query"`
}

// Registry is the closed set of tools the model may call.
type Registry struct {
	schema     SchemaSource
	sql        SQLRunner
	sampleRows int
	logger     *slog.Logger
}

func NewRegistry(source SchemaSource, runner SQLRunner, sampleRows int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{schema: source, sql: runner, sampleRows: sampleRows, logger: logger}
}

func (r *Registry) Names() []string {
	return []string{ToolListTables, ToolGetSchema, ToolExecuteSQL}
}

func (r *Registry) Tools() []Tool {
	return []Tool{
		{
			Name:        ToolListTables,
			Description: "List the tables available in the database. Call this before referencing any table.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        ToolGetSchema,
			Description: "Describe the columns, data types, relationships and a few sample rows of the given tables.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tables": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Table names returned by list_tables",
					},
				},
				"required": []string{"tables"},
			},
		},
		{
			Name:        ToolExecuteSQL,
			Description: "Execute one read-only SQL statement and return the rows as text. Failures are returned as text starting with \"Error: \".",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "A single SQL statement",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// Call dispatches a tool by name. Every failure, including an unknown tool or
// an invalid input, comes back as an error result for the model to read.
func (r *Registry) Call(ctx context.Context, name string, input []byte) (string, bool) {
	out, isError := r.call(ctx, name, input)
	observability.ObserveToolCall(name, isError)
	r.logger.DebugContext(ctx, "tool call",
		slog.String("tool", name),
		slog.Bool("is_error", isError),
	)
	return out, isError
}

func (r *Registry) call(ctx context.Context, name string, input []byte) (string, bool) {
	switch name {
	case ToolListTables:
		return r.listTables(ctx)
	case ToolGetSchema:
		var in getSchemaInput
		if err := decodeInput(input, &in); err != nil {
			return "Error: " + err.Error(), true
		}
		tables := make([]string, 0, len(in.Tables))
		for _, table := range in.Tables {
			if table = strings.TrimSpace(table); table != "" {
				tables = append(tables, table)
			}
		}
		if len(tables) == 0 {
			return "Error: tables must list at least one table name", true
		}
		return r.getSchema(ctx, tables)
	case ToolExecuteSQL:
		var in executeSQLInput
		if err := decodeInput(input, &in); err != nil {
			return "Error: " + err.Error(), true
		}
		out := r.sql.Run(ctx, in.Query)
		return out, strings.HasPrefix(out, "Error: ")
	default:
		return fmt.Sprintf("Error: unknown tool %q", name), true
	}
}

func (r *Registry) listTables(ctx context.Context) (string, bool) {
	tables, err := r.schema.ListTables(ctx)
	if err != nil {
		return "Error: " + err.Error(), true
	}
	if len(tables) == 0 {
		return "No tables found.", false
	}
	return strings.Join(tables, ", "), false
}

func (r *Registry) getSchema(ctx context.Context, tables []string) (string, bool) {
	snapshot := r.schema.Snapshot(ctx)
	if snapshot.Empty() {
		return "Error: no schema available", true
	}

	var sb strings.Builder
	sb.WriteString(snapshot.Describe(tables...))
	if r.sampleRows > 0 {
		for _, table := range tables {
			if !snapshot.HasTable(table) {
				continue
			}
			sample := r.sql.Sample(ctx, table, r.sampleRows)
			if sample == "" || strings.HasPrefix(sample, "Error: ") {
				continue
			}
			fmt.Fprintf(&sb, "\n\nSample rows from %s:\n%s", table, strings.TrimRight(sample, "\n"))
		}
	}
	return sb.String(), false
}

func decodeInput(raw []byte, dst any) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid tool input: %w", err)
	}
	return nil
}
