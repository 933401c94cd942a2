package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	chatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbchat_chat_turns_total",
			Help: "Total number of answered chat turns by render mode.",
		},
		[]string{"mode"},
	)
	chatTurnFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dbchat_chat_turn_failures_total",
			Help: "Total number of chat turns that failed before an answer was produced.",
		},
	)
	chatTurnDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dbchat_chat_turn_duration_seconds",
			Help:    "End-to-end chat turn latency.",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
	)
	agentToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbchat_agent_tool_calls_total",
			Help: "Total number of agent tool calls by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)
	agentRoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dbchat_agent_rounds_total",
			Help: "Total number of model round trips made by the agent.",
		},
	)
	sqlExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbchat_sql_executions_total",
			Help: "Total number of SQL executions by outcome.",
		},
		[]string{"outcome"},
	)
	sqlExecutionDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dbchat_sql_execution_duration_ms",
			Help:    "SQL execution latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 30000},
		},
	)
	chartRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbchat_chart_renders_total",
			Help: "Total number of chart render attempts by requested type and result.",
		},
		[]string{"chart_type", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		chatTurnsTotal,
		chatTurnFailuresTotal,
		chatTurnDurationSeconds,
		agentToolCallsTotal,
		agentRoundsTotal,
		sqlExecutionsTotal,
		sqlExecutionDurationMs,
		chartRendersTotal,
	)
}

func ObserveChatTurn(mode string, elapsed time.Duration) {
	chatTurnsTotal.WithLabelValues(mode).Inc()
	chatTurnDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementChatTurnFailure() {
	chatTurnFailuresTotal.Inc()
}

func ObserveToolCall(tool string, isError bool) {
	outcome := "ok"
	if isError {
		outcome = "error"
	}
	agentToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

func IncrementAgentRound() {
	agentRoundsTotal.Inc()
}

func ObserveSQLExecution(elapsed time.Duration, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	sqlExecutionsTotal.WithLabelValues(outcome).Inc()
	sqlExecutionDurationMs.Observe(float64(elapsed.Milliseconds()))
}

// ObserveChartRender records result as one of "rendered", "fallback" or "failed".
func ObserveChartRender(chartType, result string) {
	chartRendersTotal.WithLabelValues(chartType, result).Inc()
}
