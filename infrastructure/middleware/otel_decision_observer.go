package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

var _ ports.DecisionObserver = (*OTelDecisionObserver)(nil)

// TracerName is the instrumentation name used for decision spans.
const TracerName = "github.com/ahrav/go-ponder"

// OTelDecisionObserver traces every decision pass with OpenTelemetry and
// reports outcomes to a MetricsCollector. The span travels in the context
// returned by PreDecide, so one observer serves every agent concurrently.
type OTelDecisionObserver struct {
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// ObserverOption configures an OTelDecisionObserver.
type ObserverOption func(*OTelDecisionObserver)

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) ObserverOption {
	return func(o *OTelDecisionObserver) {
		if tp != nil {
			o.tracer = tp.Tracer(TracerName)
		}
	}
}

// NewOTelDecisionObserver creates an observer. metrics may be nil.
func NewOTelDecisionObserver(metrics ports.MetricsCollector, opts ...ObserverOption) *OTelDecisionObserver {
	o := &OTelDecisionObserver{
		metrics: metrics,
		tracer:  otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PreDecide starts the decision span.
func (o *OTelDecisionObserver) PreDecide(ctx context.Context, owner domain.Entity, choices int) context.Context {
	ctx, _ = o.tracer.Start(ctx, "Thinker.Decide", trace.WithAttributes(
		attribute.String("ponder.owner", owner.String()),
		attribute.Int("ponder.choices", choices),
	))
	return ctx
}

// PostDecide records the outcome on the span and in metrics, then ends
// the span.
func (o *OTelDecisionObserver) PostDecide(ctx context.Context, decision domain.Decision, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(
		attribute.String("ponder.picker", decision.Picker),
		attribute.Int64("ponder.tick", int64(decision.Tick)),
	)

	outcome := outcomeOf(decision, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.String("ponder.action", decision.Action),
			attribute.Float64("ponder.value", decision.Value),
			attribute.Bool("ponder.picked", decision.Picked),
			attribute.Bool("ponder.fallback", decision.Fallback),
		)
		span.AddEvent("decision."+outcome)
		span.SetStatus(codes.Ok, "")
	}

	if o.metrics == nil {
		return
	}
	labels := map[string]string{
		decisionPickerLabel:  decision.Picker,
		decisionOutcomeLabel: outcome,
	}
	o.metrics.RecordLatency(OperationDecide, elapsed, labels)
	o.metrics.RecordCounter(MetricDecisions, 1, labels)
	if outcome == OutcomePicked {
		o.metrics.RecordHistogram(MetricWinningUtility, decision.Value, labels)
	}
}

func outcomeOf(decision domain.Decision, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case decision.Picked:
		return OutcomePicked
	case decision.Fallback:
		return OutcomeFallback
	default:
		return OutcomeIdle
	}
}
