package answer

import "testing"

func TestCleanReplacesToolNamesAndSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tool name any case",
			in:   "I used EXECUTE_SQL and execute_sql to look this up.",
			want: "I used the database and the database to look this up.",
		},
		{
			name: "sql word",
			in:   "The SQL query and the sql result agree. Sql!",
			want: "The the database query and the the database result agree. the database!",
		},
		{
			name: "sql inside a word is kept",
			in:   "MySQL and PostgreSQL",
			want: "MySQL and PostgreSQL",
		},
		{
			name: "fenced code removed",
			in:   "There are 5 users.\n```sql\nSELECT count(*) FROM users\n```\n",
			want: "There are 5 users.",
		},
		{
			name: "other tools",
			in:   "Called list_tables then get_schema.",
			want: "Called the database then the database.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in, "execute_sql", "list_tables", "get_schema", ""); got != tt.want {
				t.Fatalf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanTrimsWithoutToolNames(t *testing.T) {
	if got := Clean("  plain answer \n"); got != "plain answer" {
		t.Fatalf("Clean() = %q", got)
	}
}
