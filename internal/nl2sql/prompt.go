package nl2sql

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You convert natural language questions about a relational database into a single SQL query. " +
	"Return ONLY SQL. No markdown, no explanation."

func userPrompt(req Request) (string, error) {
	tablesJSON, err := json.Marshal(req.Tables)
	if err != nil {
		return "", fmt.Errorf("marshal table context: %w", err)
	}
	dialect := strings.TrimSpace(req.Dialect)
	if dialect == "" {
		dialect = "PostgreSQL"
	}
	relationships := "none"
	if len(req.Relationships) > 0 {
		relationships = strings.Join(req.Relationships, "; ")
	}
	return fmt.Sprintf(
		"SQL dialect: %s\nTables and columns (JSON):\n%s\nRelationships: %s\n\nUser request:\n%s\n\nRules:\n- Use only listed tables and columns.\n- Quote identifiers with double quotes when they contain upper case letters.\n- Read-only SELECT or WITH statements only.\n- Add LIMIT 200 unless the user asks otherwise.\n- Output a single SQL query only.",
		dialect,
		string(tablesJSON),
		relationships,
		req.NaturalLanguage,
	), nil
}
