package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type runtimeMetrics struct {
	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	modelRequestTotal    *prometheus.CounterVec
	modelRequestDuration *prometheus.HistogramVec

	turnTotal       *prometheus.CounterVec
	turnToolCalls   prometheus.Histogram
	activeSessions  prometheus.Gauge
	sessionLoadTime prometheus.Histogram
	sessionSaveTime prometheus.Histogram
	sessionsPruned  prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *runtimeMetrics
)

func getMetrics() *runtimeMetrics {
	metricsOnce.Do(func() {
		m := &runtimeMetrics{
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "golem_tool_execution_total",
					Help: "Total tool dispatches by tool and result status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "golem_tool_execution_duration_seconds",
					Help:    "Tool dispatch duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			modelRequestTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "golem_model_request_total",
					Help: "Total model completions by provider and status.",
				},
				[]string{"provider", "status"},
			),
			modelRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "golem_model_request_duration_seconds",
					Help:    "Model completion duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			turnTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "golem_turn_total",
					Help: "Total conversation turns by outcome.",
				},
				[]string{"outcome"},
			),
			turnToolCalls: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "golem_turn_tool_calls",
					Help:    "Tool calls executed per turn.",
					Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
				},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "golem_active_sessions",
					Help: "Current stored session count.",
				},
			),
			sessionLoadTime: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "golem_session_load_duration_seconds",
					Help:    "Session load duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			sessionSaveTime: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "golem_session_save_duration_seconds",
					Help:    "Session save duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			sessionsPruned: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "golem_sessions_pruned_total",
					Help: "Sessions removed by retention cleanup.",
				},
			),
		}

		prometheus.MustRegister(
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.modelRequestTotal,
			m.modelRequestDuration,
			m.turnTotal,
			m.turnToolCalls,
			m.activeSessions,
			m.sessionLoadTime,
			m.sessionSaveTime,
			m.sessionsPruned,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// RecordToolExecution records one tool dispatch outcome.
func RecordToolExecution(tool string, status string, duration time.Duration) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordModelRequest records one model completion attempt.
func RecordModelRequest(provider string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.modelRequestTotal.WithLabelValues(provider, status).Inc()
	m.modelRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTurn records a completed conversation turn.
func RecordTurn(outcome string, toolCalls int) {
	m := getMetrics()
	m.turnTotal.WithLabelValues(outcome).Inc()
	m.turnToolCalls.Observe(float64(toolCalls))
}

func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}

func RecordSessionLoad(duration time.Duration) {
	getMetrics().sessionLoadTime.Observe(duration.Seconds())
}

func RecordSessionSave(duration time.Duration) {
	getMetrics().sessionSaveTime.Observe(duration.Seconds())
}

func RecordSessionsPruned(count int) {
	getMetrics().sessionsPruned.Add(float64(count))
}
