package answer

import "strings"

const (
	ChartNone    = "none"
	ChartLine    = "line"
	ChartBar     = "bar"
	ChartArea    = "area"
	ChartScatter = "scatter"
)

var (
	chartNouns = []string{"chart", "graph", "plot"}

	// Order matters: the first chart type with a matching keyword wins.
	chartKeywords = []struct {
		chartType string
		keywords  []string
	}{
		{ChartLine, []string{"line"}},
		{ChartBar, []string{"bar", "column"}},
		{ChartArea, []string{"area"}},
		{ChartScatter, []string{"scatter"}},
	}
)

func DetectChartIntent(question string) string {
	lowered := strings.ToLower(question)
	if !containsAny(lowered, chartNouns) {
		return ChartNone
	}
	for _, candidate := range chartKeywords {
		if containsAny(lowered, candidate.keywords) {
			return candidate.chartType
		}
	}
	return ChartNone
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
