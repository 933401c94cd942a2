package sqltool

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dbchat/dbchat/internal/observability"
)

const (
	DefaultMaxRows = 50
	maxValueLength = 100

	noResults = "Query returned no results."
)

var readOnlyPrefixes = []string{"SELECT", "WITH"}

type Options struct {
	ReadOnly bool
	MaxRows  int
	Logger   *slog.Logger
}

// Executor runs model-authored SQL and renders the outcome as text. Failures are
// reported in the returned string with an "Error: " prefix and never as Go errors.
type Executor struct {
	db       *sql.DB
	readOnly bool
	maxRows  int
	logger   *slog.Logger
}

func NewExecutor(db *sql.DB, opts Options) *Executor {
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{db: db, readOnly: opts.ReadOnly, maxRows: opts.MaxRows, logger: opts.Logger}
}

func (e *Executor) Run(ctx context.Context, raw string) string {
	query := StripFences(raw)
	if query == "" {
		return "Error: empty query"
	}
	if e.readOnly && !IsReadOnly(query) {
		return "Error: only read-only SELECT/WITH queries are allowed"
	}
	if e.db == nil {
		return "Error: database is not configured"
	}

	e.logger.DebugContext(ctx, "executing query", slog.String("sql", query))
	start := time.Now()
	result, err := e.query(ctx, query)
	observability.ObserveSQLExecution(time.Since(start), err != nil)
	if err != nil {
		e.logger.InfoContext(ctx, "query failed", slog.String("sql", query), slog.Any("error", err))
		return "Error: " + err.Error()
	}
	return result
}

// Sample renders up to limit rows of a table in the same compact format as Run.
func (e *Executor) Sample(ctx context.Context, table string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if e.db == nil {
		return "Error: database is not configured"
	}
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(table), limit)
	result, err := e.query(ctx, query)
	if err != nil {
		return "Error: " + err.Error()
	}
	return result
}

func (e *Executor) query(ctx context.Context, query string) (string, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns: %w", err)
	}

	var kept [][]string
	total := 0
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}
		total++
		if len(kept) < e.maxRows {
			kept = append(kept, formatRow(values))
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return formatCompact(columns, kept, total, e.maxRows), nil
}

func formatCompact(columns []string, rows [][]string, total, maxRows int) string {
	if total == 0 {
		return noResults
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Columns: %s\n", strings.Join(columns, ", "))
	fmt.Fprintf(&sb, "Rows (%d total, showing %d):\n", total, len(rows))
	for _, row := range rows {
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString("\n")
	}
	if total > maxRows {
		fmt.Fprintf(&sb, "... and %d more rows\n", total-maxRows)
	}
	return sb.String()
}

func formatRow(values []any) []string {
	out := make([]string, len(values))
	for i, value := range values {
		out[i] = truncate(formatValue(value))
	}
	return out
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truncate(value string) string {
	if len(value) > maxValueLength {
		return value[:maxValueLength-3] + "..."
	}
	return value
}

// StripFences removes Markdown code fence markers that models wrap around SQL.
func StripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```sql", "")
	cleaned = strings.ReplaceAll(cleaned, "```SQL", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

func IsReadOnly(query string) bool {
	trimmed := strings.TrimLeft(strings.TrimSpace(query), "( \t\r\n")
	end := strings.IndexFunc(trimmed, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end < 0 {
		end = len(trimmed)
	}
	keyword := strings.ToUpper(trimmed[:end])
	for _, prefix := range readOnlyPrefixes {
		if keyword == prefix {
			return true
		}
	}
	return false
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
