package answer

import (
	"reflect"
	"testing"
)

func TestExtractTableSplitsSummaryAndTable(t *testing.T) {
	summary, table := ExtractTable("Summary.\n\n| A | B |\n|---|---|\n| 1 | 2 |\n")
	if summary != "Summary." {
		t.Fatalf("summary = %q", summary)
	}
	if table == nil {
		t.Fatal("expected table")
	}
	if !reflect.DeepEqual(table.Header(), []string{"A", "B"}) {
		t.Fatalf("Header() = %v", table.Header())
	}
	if !reflect.DeepEqual(table.Rows, [][]string{{"1", "2"}}) {
		t.Fatalf("Rows = %v", table.Rows)
	}
	if !table.Columns[1].Numeric || table.Columns[1].Numbers[0] != 2 {
		t.Fatalf("column B = %+v", table.Columns[1])
	}
	if table.Markdown != "| A | B |\n|---|---|\n| 1 | 2 |" {
		t.Fatalf("Markdown = %q", table.Markdown)
	}
}

func TestExtractTableWithoutSeparatorReturnsOriginal(t *testing.T) {
	text := "Totals:\n| A | B |\n| 1 | 2 |\n"
	summary, table := ExtractTable(text)
	if summary != text || table != nil {
		t.Fatalf("ExtractTable() = %q, %+v", summary, table)
	}

	plain := "There are 5 users."
	if summary, table := ExtractTable(plain); summary != plain || table != nil {
		t.Fatalf("ExtractTable() = %q, %+v", summary, table)
	}
}

func TestExtractTableDropsMalformedRowsAndStopsAtText(t *testing.T) {
	text := "Top products.\n" +
		"| Product | Price | Stock |\n" +
		"| :--- | ---: | :-: |\n" +
		"| Laptop | 1299.99 | 10 |\n" +
		"| Broken | 5 |\n" +
		"| Mouse | 25.5 | n/a |\n" +
		"\n" +
		"| Ignored | 1 | 2 |\n"

	summary, table := ExtractTable(text)
	if summary != "Top products." {
		t.Fatalf("summary = %q", summary)
	}
	if table == nil {
		t.Fatal("expected table")
	}
	if !reflect.DeepEqual(table.Rows, [][]string{{"Laptop", "1299.99", "10"}, {"Mouse", "25.5", "n/a"}}) {
		t.Fatalf("Rows = %v", table.Rows)
	}
	if table.Columns[0].Numeric {
		t.Fatal("Product should stay text")
	}
	if !table.Columns[1].Numeric || !reflect.DeepEqual(table.Columns[1].Numbers, []float64{1299.99, 25.5}) {
		t.Fatalf("Price = %+v", table.Columns[1])
	}
	if table.Columns[2].Numeric {
		t.Fatal("Stock has a non-numeric cell and should stay text")
	}
}

func TestExtractTableWithoutSurvivingRows(t *testing.T) {
	text := "Nothing.\n| A | B |\n|---|---|\n| only-one |\n"
	summary, table := ExtractTable(text)
	if summary != text || table != nil {
		t.Fatalf("ExtractTable() = %q, %+v", summary, table)
	}
}

func TestSeparatorNeedsDash(t *testing.T) {
	for line, want := range map[string]bool{
		"|---|---|":     true,
		"| :-- | --: |": true,
		"  |---|---  ":  true,
		"| : | : |":     false,
		"|   |   |":     false,
		"| a | b |":     false,
		"---|---":       false,
	} {
		if got := isSeparator(line); got != want {
			t.Fatalf("isSeparator(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestNewTableRebuildsFromStoredRows(t *testing.T) {
	table := NewTable([]string{"User", "Total"}, [][]string{{"Jane", "10"}, {"John", "7.5"}})
	if table == nil || !table.Columns[1].Numeric {
		t.Fatalf("NewTable() = %+v", table)
	}
	records := table.Records()
	if records[1]["User"] != "John" || records[1]["Total"] != "7.5" {
		t.Fatalf("Records() = %v", records)
	}
	if NewTable(nil, [][]string{{"x"}}) != nil {
		t.Fatal("NewTable() without header should be nil")
	}
}
