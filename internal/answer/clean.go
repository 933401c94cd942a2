package answer

import (
	"regexp"
	"sort"
	"strings"
)

const replacement = "the database"

var (
	fencedBlockPattern = regexp.MustCompile("```[\\s\\S]*?```")
	sqlWordPattern     = regexp.MustCompile(`(?i)\bSQL\b`)
)

// Clean strips fenced code and hides internal vocabulary from a user-facing answer.
// Every tool name is replaced case-insensitively, then the whole word SQL.
func Clean(text string, toolNames ...string) string {
	cleaned := fencedBlockPattern.ReplaceAllString(text, "")

	names := make([]string, 0, len(toolNames))
	for _, name := range toolNames {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	for _, name := range names {
		pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name))
		cleaned = pattern.ReplaceAllLiteralString(cleaned, replacement)
	}

	cleaned = sqlWordPattern.ReplaceAllLiteralString(cleaned, replacement)
	return strings.TrimSpace(cleaned)
}
