// Package middleware provides cross-cutting concerns for the decision kernel:
// Prometheus metrics and OpenTelemetry tracing of decision passes.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-ponder/internal/ports"
)

// Metric and operation names understood by PrometheusMetrics. Other
// names are routed to the generic operation and state vectors.
const (
	MetricDecisions      = "decisions_total"
	MetricWinningUtility = "winning_utility"

	OperationDecide   = "decide"
	OperationEvaluate = "evaluate"
	OperationTick     = "tick"

	GaugeAgents  = "agents"
	GaugeScorers = "scorers"
)

const (
	metricNamespace      = "ponder"
	unknownLabel         = "unknown"
	decisionPickerLabel  = "picker"
	decisionOutcomeLabel = "outcome"
	operationLabel       = "operation"
	operationStatusLabel = "status"
	systemStateLabel     = "metric"
)

// Decision outcomes recorded under the "outcome" label.
const (
	OutcomePicked   = "picked"
	OutcomeFallback = "fallback"
	OutcomeIdle     = "idle"
	OutcomeError    = "error"
)

// PrometheusMetrics implements ports.MetricsCollector using Prometheus.
// It tracks decision outcomes, decision and tick latency, the utility of
// winning choices, and world size.
type PrometheusMetrics struct {
	decisions        *prometheus.CounterVec
	winningUtility   *prometheus.HistogramVec
	executionLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the ponder_* metrics and registers them with
// reg. A nil reg registers with the global default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      MetricDecisions,
				Help:      "Decision passes by picker and outcome.",
			},
			[]string{decisionPickerLabel, decisionOutcomeLabel},
		),
		winningUtility: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      MetricWinningUtility,
				Help:      "Utility of the winning choice of each picked decision.",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{decisionPickerLabel},
		),
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      "operation_duration_seconds",
				Help:      "Execution time of decision passes, evaluation steps and ticks.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{operationLabel},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "operations_total",
				Help:      "Operations performed by the kernel.",
			},
			[]string{operationLabel, operationStatusLabel},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "system_state",
				Help:      "Current world state such as live agents and scorer instances.",
			},
			[]string{systemStateLabel},
		),
	}
}

// RecordLatency records an operation's duration.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, _ map[string]string) {
	pm.executionLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter increments a counter. MetricDecisions reads the "picker"
// and "outcome" labels; everything else counts under operations_total
// with the "status" label, defaulting to "success".
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricDecisions:
		pm.decisions.WithLabelValues(
			labelOr(labels, decisionPickerLabel, unknownLabel),
			labelOr(labels, decisionOutcomeLabel, unknownLabel),
		).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, labelOr(labels, operationStatusLabel, "success")).Add(value)
	}
}

// RecordGauge sets a world-state gauge.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram records a value. MetricWinningUtility is kept per
// picker; any other metric is treated as a duration in seconds.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricWinningUtility:
		pm.winningUtility.WithLabelValues(labelOr(labels, decisionPickerLabel, unknownLabel)).Observe(value)
	default:
		pm.executionLatency.WithLabelValues(metric).Observe(value)
	}
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
