package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-ponder/internal/domain"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus,
// OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like decisions and idle ticks.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like live agents or scorer count.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like winning utilities.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// DecisionObserver is notified around every decision pass.
type DecisionObserver interface {
	// PreDecide runs before the picker and may return a derived context
	// (for example one carrying a trace span).
	PreDecide(ctx context.Context, owner domain.Entity, choices int) context.Context

	// PostDecide runs after the picker with the outcome or the error.
	PostDecide(ctx context.Context, decision domain.Decision, elapsed time.Duration, err error)
}

// DecisionJournal persists decisions for offline analysis.
type DecisionJournal interface {
	// Record stores every decision made in one tick.
	Record(ctx context.Context, tick uint64, decisions []domain.Decision) error

	// Close releases the journal's resources.
	Close() error
}
