package answer

import (
	"regexp"
	"strconv"
	"strings"
)

var separatorPattern = regexp.MustCompile(`^\|[\s:|-]*$`)

type Column struct {
	Name    string
	Numeric bool
	Numbers []float64
}

// Table is tabular data recovered from a model answer. Rows always have one
// cell per column.
type Table struct {
	Columns  []Column
	Rows     [][]string
	Markdown string
}

// NewTable builds a table from stored header and rows, dropping rows whose
// width differs from the header. It returns nil when no row survives.
func NewTable(header []string, rows [][]string) *Table {
	if len(header) == 0 {
		return nil
	}
	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(header) {
			continue
		}
		kept = append(kept, row)
	}
	if len(kept) == 0 {
		return nil
	}

	table := &Table{Columns: make([]Column, len(header)), Rows: kept}
	for i, name := range header {
		table.Columns[i] = coerceColumn(name, kept, i)
	}
	return table
}

func (t *Table) Header() []string {
	names := make([]string, len(t.Columns))
	for i, column := range t.Columns {
		names[i] = column.Name
	}
	return names
}

// Records returns the rows as column-name keyed maps.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make(map[string]string, len(row))
		for i, cell := range row {
			record[t.Columns[i].Name] = cell
		}
		out = append(out, record)
	}
	return out
}

func coerceColumn(name string, rows [][]string, index int) Column {
	column := Column{Name: name, Numeric: true, Numbers: make([]float64, 0, len(rows))}
	for _, row := range rows {
		value, err := strconv.ParseFloat(strings.TrimSpace(row[index]), 64)
		if err != nil {
			return Column{Name: name}
		}
		column.Numbers = append(column.Numbers, value)
	}
	return column
}

// ExtractTable finds the first Markdown table in text. The returned summary is
// the text before the table. When there is no usable table the original text
// is returned with a nil table.
func ExtractTable(text string) (string, *Table) {
	lines := strings.Split(text, "\n")
	for i := 0; i+1 < len(lines); i++ {
		headerLine := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(headerLine, "|") || !isSeparator(lines[i+1]) {
			continue
		}

		end := i + 2
		var body [][]string
		for ; end < len(lines); end++ {
			line := strings.TrimSpace(lines[end])
			if !strings.HasPrefix(line, "|") {
				break
			}
			body = append(body, splitRow(line))
		}

		table := NewTable(splitRow(headerLine), body)
		if table == nil {
			return text, nil
		}
		raw := make([]string, 0, end-i)
		for _, line := range lines[i:end] {
			raw = append(raw, strings.TrimSpace(line))
		}
		table.Markdown = strings.Join(raw, "\n")
		return strings.TrimSpace(strings.Join(lines[:i], "\n")), table
	}
	return text, nil
}

func isSeparator(line string) bool {
	trimmed := strings.TrimSpace(line)
	return separatorPattern.MatchString(trimmed) && strings.Contains(trimmed, "-")
}

func splitRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")
	cells := strings.Split(trimmed, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}
