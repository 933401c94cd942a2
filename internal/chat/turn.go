package chat

import (
	"io"
	"time"

	"github.com/dbchat/dbchat/internal/answer"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Mode string

const (
	ModeChart Mode = "chart"
	ModeTable Mode = "table"
	ModeText  Mode = "text"
)

type Turn struct {
	Index     int            `json:"index"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   *RenderPayload `json:"payload,omitempty"`
}

type TablePayload struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// RenderPayload records how an assistant turn is displayed. Mode is decided when
// the turn is created and never changes.
type RenderPayload struct {
	Mode        Mode          `json:"mode"`
	Summary     string        `json:"summary"`
	ChartType   string        `json:"chart_type,omitempty"`
	Table       *TablePayload `json:"table,omitempty"`
	RawMarkdown string        `json:"raw_markdown,omitempty"`
}

func (p RenderPayload) Records() []map[string]string {
	if p.Table == nil {
		return nil
	}
	table := answer.NewTable(p.Table.Columns, p.Table.Rows)
	if table == nil {
		return nil
	}
	return table.Records()
}

// RenderChart draws the stored table again with the stored chart type.
func (p RenderPayload) RenderChart(w io.Writer) bool {
	if p.Table == nil || p.ChartType == "" {
		return false
	}
	return answer.RenderChart(w, answer.NewTable(p.Table.Columns, p.Table.Rows), p.ChartType)
}

func buildPayload(text, chartType string) RenderPayload {
	summary, table := answer.ExtractTable(text)
	if table == nil {
		return RenderPayload{Mode: ModeText, Summary: text}
	}

	payload := RenderPayload{
		Mode:        ModeTable,
		Summary:     summary,
		Table:       &TablePayload{Columns: table.Header(), Rows: table.Rows},
		RawMarkdown: table.Markdown,
	}
	if chartType != answer.ChartNone && answer.RenderChart(io.Discard, table, chartType) {
		payload.Mode = ModeChart
		payload.ChartType = chartType
	}
	return payload
}
