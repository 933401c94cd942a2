package schema

import (
	"fmt"
	"sort"
	"strings"
)

type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type,omitempty"`
}

type Relationship struct {
	Constraint    string   `json:"constraint"`
	ChildTable    string   `json:"child_table"`
	ChildColumns  []string `json:"child_columns"`
	ParentTable   string   `json:"parent_table"`
	ParentColumns []string `json:"parent_columns"`
}

func (r Relationship) String() string {
	return fmt.Sprintf("%s(%s) -> %s(%s)",
		r.ChildTable, strings.Join(r.ChildColumns, ", "),
		r.ParentTable, strings.Join(r.ParentColumns, ", "),
	)
}

func (r Relationship) Touches(table string) bool {
	return r.ChildTable == table || r.ParentTable == table
}

// Snapshot is a read projection of the database metadata at one point in time.
// An empty snapshot means no schema was available, not that the database is empty.
type Snapshot struct {
	Tables        []string            `json:"tables"`
	Columns       map[string][]Column `json:"columns"`
	Relationships []Relationship      `json:"relationships"`
}

func (s Snapshot) Empty() bool {
	return len(s.Tables) == 0
}

func (s Snapshot) HasTable(name string) bool {
	for _, table := range s.Tables {
		if table == name {
			return true
		}
	}
	return false
}

func (s Snapshot) ColumnNames(table string) []string {
	columns := s.Columns[table]
	names := make([]string, 0, len(columns))
	for _, column := range columns {
		names = append(names, column.Name)
	}
	return names
}

func (s Snapshot) RelationshipStrings() []string {
	out := make([]string, 0, len(s.Relationships))
	for _, rel := range s.Relationships {
		out = append(out, rel.String())
	}
	return out
}

// Describe renders the requested tables (all tables when none are given) as prompt text.
func (s Snapshot) Describe(tables ...string) string {
	if s.Empty() {
		return "No schema available."
	}
	if len(tables) == 0 {
		tables = s.Tables
	}

	var sb strings.Builder
	var unknown []string
	for _, table := range tables {
		if !s.HasTable(table) {
			unknown = append(unknown, table)
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Table: %s\n", table)
		columns := s.Columns[table]
		if len(columns) == 0 {
			sb.WriteString("Columns: (unavailable)\n")
		} else {
			sb.WriteString("Columns:\n")
			for _, column := range columns {
				if column.DataType == "" {
					fmt.Fprintf(&sb, "  %s\n", column.Name)
					continue
				}
				fmt.Fprintf(&sb, "  %s %s\n", column.Name, column.DataType)
			}
		}
		var related []string
		for _, rel := range s.Relationships {
			if rel.Touches(table) {
				related = append(related, rel.String())
			}
		}
		if len(related) > 0 {
			sb.WriteString("Relationships:\n")
			for _, rel := range related {
				fmt.Fprintf(&sb, "  %s\n", rel)
			}
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Unknown tables: %s (available: %s)\n", strings.Join(unknown, ", "), strings.Join(s.Tables, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
