package deployments

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGrafanaDashboardJSONIsValid(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "grafana", "dbchat_slo_dashboard.json")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dashboard file: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("dashboard JSON parse error: %v", err)
	}

	title, _ := decoded["title"].(string)
	if strings.TrimSpace(title) == "" {
		t.Fatal("dashboard title is required")
	}
	panels, ok := decoded["panels"].([]any)
	if !ok || len(panels) == 0 {
		t.Fatal("dashboard must include at least one panel")
	}
	for _, raw := range panels {
		panel, _ := raw.(map[string]any)
		targets, _ := panel["targets"].([]any)
		if len(targets) == 0 {
			t.Fatalf("panel %v has no targets", panel["title"])
		}
		for _, rawTarget := range targets {
			target, _ := rawTarget.(map[string]any)
			expr, _ := target["expr"].(string)
			if !strings.Contains(expr, "dbchat") {
				t.Fatalf("panel %v queries %q, want a dbchat series", panel["title"], expr)
			}
		}
	}
}

func TestPrometheusRulesContainExpectedAlerts(t *testing.T) {
	text := readAsset(t, "prometheus", "dbchat_rules.yaml")

	requiredAlerts := []string{
		"DBChatTurnLatencyP95High",
		"DBChatTurnFailuresHigh",
		"DBChatSQLLatencyP95High",
		"DBChatSQLErrorRatioHigh",
		"DBChatChartFallbackRatioHigh",
		"DBChatHTTPErrorRateHigh",
	}
	for _, alertName := range requiredAlerts {
		if !strings.Contains(text, "alert: "+alertName) {
			t.Fatalf("rules missing alert %q", alertName)
		}
	}

	requiredMetrics := []string{
		"dbchat:slo_chat_turn_latency_seconds_p95",
		"dbchat:slo_chat_turn_failure_ratio_15m",
		"dbchat:slo_sql_execution_latency_ms_p95",
		"dbchat:slo_sql_error_ratio_15m",
		"dbchat:slo_chart_fallback_ratio_1h",
		"dbchat:slo_http_error_rate_5m",
	}
	for _, metricName := range requiredMetrics {
		if !strings.Contains(text, metricName) {
			t.Fatalf("rules missing metric reference %q", metricName)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	text := readAsset(t, "prometheus", "prometheus-scrape.example.yaml")

	requiredTokens := []string{
		"metrics_path: /v1/metrics",
		"dbchat_rules.yaml",
		"dbchat_recording_rules.yaml",
		"job_name: dbchat-api",
	}
	for _, token := range requiredTokens {
		if !strings.Contains(text, token) {
			t.Fatalf("scrape example missing token %q", token)
		}
	}
}

func TestPrometheusRecordingRulesReferenceExportedSeries(t *testing.T) {
	text := readAsset(t, "prometheus", "dbchat_recording_rules.yaml")

	requiredRecords := []string{
		"dbchat:slo_chat_turn_latency_seconds_p95",
		"dbchat:slo_chat_turn_failure_ratio_15m",
		"dbchat:slo_sql_execution_latency_ms_p95",
		"dbchat:slo_sql_error_ratio_15m",
		"dbchat:slo_chart_fallback_ratio_1h",
		"dbchat:slo_agent_rounds_per_turn_15m",
		"dbchat:slo_http_error_rate_5m",
	}
	for _, recordName := range requiredRecords {
		if !strings.Contains(text, "record: "+recordName) {
			t.Fatalf("recording rules missing record %q", recordName)
		}
	}

	exported := []string{
		"dbchat_chat_turn_duration_seconds_bucket",
		"dbchat_chat_turns_total",
		"dbchat_chat_turn_failures_total",
		"dbchat_agent_rounds_total",
		"dbchat_sql_executions_total",
		"dbchat_sql_execution_duration_ms_bucket",
		"dbchat_chart_renders_total",
		"dbchat_http_requests_total",
	}
	for _, series := range exported {
		if !strings.Contains(text, series) {
			t.Fatalf("recording rules never read %q", series)
		}
	}
}

func TestAlertmanagerExampleContainsSeverityRouting(t *testing.T) {
	text := readAsset(t, "alertmanager", "alertmanager.example.yaml")

	requiredTokens := []string{
		"receiver: dbchat-default",
		"severity=\"critical\"",
		"severity=\"warning\"",
		"name: dbchat-critical",
		"name: dbchat-warning",
		"inhibit_rules:",
		"group_by: [alertname, service, severity]",
	}
	for _, token := range requiredTokens {
		if !strings.Contains(text, token) {
			t.Fatalf("alertmanager example missing token %q", token)
		}
	}
}

func readAsset(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(repoRoot(t), "deployments", "observability", dir, name)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(content)
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
