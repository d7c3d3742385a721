package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ponder/internal/ports"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

// findMetric returns the sample of family name whose labels include want.
func findMetric(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabels(m, want) {
				return m
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, want)
	return nil
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestNewPrometheusMetrics(t *testing.T) {
	pm, _ := newTestMetrics(t)

	assert.NotNil(t, pm.decisions)
	assert.NotNil(t, pm.winningUtility)
	assert.NotNil(t, pm.executionLatency)
	assert.NotNil(t, pm.operationCounter)
	assert.NotNil(t, pm.systemGauges)

	var _ ports.MetricsCollector = pm
}

func TestPrometheusMetrics_RegistersOncePerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusMetrics(reg)
	assert.Panics(t, func() { NewPrometheusMetrics(reg) }, "duplicate registration on one registry")
	assert.NotPanics(t, func() { NewPrometheusMetrics(prometheus.NewRegistry()) })
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	tests := []struct {
		name       string
		metric     string
		value      float64
		labels     map[string]string
		wantFamily string
		wantLabels map[string]string
	}{
		{
			name:       "decision with picker and outcome",
			metric:     MetricDecisions,
			value:      1,
			labels:     map[string]string{"picker": "highest_score", "outcome": OutcomePicked},
			wantFamily: "ponder_decisions_total",
			wantLabels: map[string]string{"picker": "highest_score", "outcome": OutcomePicked},
		},
		{
			name:       "decision without labels",
			metric:     MetricDecisions,
			value:      2,
			labels:     nil,
			wantFamily: "ponder_decisions_total",
			wantLabels: map[string]string{"picker": "unknown", "outcome": "unknown"},
		},
		{
			name:       "generic operation defaults to success",
			metric:     "journal_writes",
			value:      3,
			labels:     map[string]string{},
			wantFamily: "ponder_operations_total",
			wantLabels: map[string]string{"operation": "journal_writes", "status": "success"},
		},
		{
			name:       "generic operation with status",
			metric:     "journal_writes",
			value:      1,
			labels:     map[string]string{"status": "error"},
			wantFamily: "ponder_operations_total",
			wantLabels: map[string]string{"operation": "journal_writes", "status": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, reg := newTestMetrics(t)
			pm.RecordCounter(tt.metric, tt.value, tt.labels)

			m := findMetric(t, reg, tt.wantFamily, tt.wantLabels)
			assert.Equal(t, tt.value, m.GetCounter().GetValue())
		})
	}
}

func TestPrometheusMetrics_RecordGauge(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordGauge(GaugeAgents, 10, nil)
	pm.RecordGauge(GaugeAgents, 7, nil)
	pm.RecordGauge(GaugeScorers, 42, nil)

	assert.Equal(t, 7.0, findMetric(t, reg, "ponder_system_state", map[string]string{"metric": GaugeAgents}).GetGauge().GetValue())
	assert.Equal(t, 42.0, findMetric(t, reg, "ponder_system_state", map[string]string{"metric": GaugeScorers}).GetGauge().GetValue())
}

func TestPrometheusMetrics_Histograms(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordLatency(OperationTick, 20*time.Millisecond, nil)
	pm.RecordLatency(OperationTick, 30*time.Millisecond, nil)
	pm.RecordHistogram(MetricWinningUtility, 0.75, map[string]string{"picker": "first_to_score"})
	pm.RecordHistogram("custom_seconds", 0.5, nil)

	tick := findMetric(t, reg, "ponder_operation_duration_seconds", map[string]string{"operation": OperationTick})
	assert.Equal(t, uint64(2), tick.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.05, tick.GetHistogram().GetSampleSum(), 1e-9)

	utility := findMetric(t, reg, "ponder_winning_utility", map[string]string{"picker": "first_to_score"})
	assert.Equal(t, uint64(1), utility.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.75, utility.GetHistogram().GetSampleSum(), 1e-9)

	custom := findMetric(t, reg, "ponder_operation_duration_seconds", map[string]string{"operation": "custom_seconds"})
	assert.Equal(t, uint64(1), custom.GetHistogram().GetSampleCount())
}
