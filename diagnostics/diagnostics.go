// Package diagnostics is the non-fatal-warning and tracing-span channel the
// reverse/forward engines and the checkpoint subsystem write to: Prometheus
// counters for skipped-VJP, recompute, eviction and forward-error events,
// and OpenTelemetry spans around the Backward and JVP passes.
package diagnostics

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ckptgrad/ckptgrad"

var (
	vjpMissingCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ckptgrad_vjp_missing_total",
		Help: "Backward passes that reached a node with no registered VJP rule, grouped by op.",
	}, []string{"op"})

	recomputeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ckptgrad_recompute_total",
		Help: "Checkpoint recomputations performed, grouped by op and outcome.",
	}, []string{"op", "outcome"})

	evictionCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ckptgrad_eviction_sweeps_total",
		Help: "Number of evict_non_checkpoint_values sweeps performed.",
	})

	forwardErrorCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ckptgrad_forward_eval_errors_total",
		Help: "Forward evaluator exceptions encountered during compute_forward_values, grouped by op.",
	}, []string{"op"})
)

var (
	tracerOnce sync.Once
	tracer     trace.Tracer
)

// Tracer returns the package-wide tracer, lazily bound to the globally
// configured TracerProvider (a no-op provider until a caller installs one
// via otel.SetTracerProvider, same as any otel-instrumented library).
func Tracer() trace.Tracer {
	tracerOnce.Do(func() {
		tracer = otel.Tracer(instrumentationName)
	})

	return tracer
}

// StartSpan starts a span named name under ctx using the package tracer.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}

// WarnVJPMissing records that backward reached a node with no VJP rule for op.
func WarnVJPMissing(op string) {
	vjpMissingCounter.WithLabelValues(op).Inc()
}

// RecordRecompute records a recompute_subgraph attempt and its outcome.
func RecordRecompute(op string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}

	recomputeCounter.WithLabelValues(op, outcome).Inc()
}

// RecordEviction records one evict_non_checkpoint_values sweep.
func RecordEviction() {
	evictionCounter.Inc()
}

// RecordForwardError records a forward-evaluation-exception for op; the
// caller continues traversal per the engine's fail-soft forward posture.
func RecordForwardError(op string) {
	forwardErrorCounter.WithLabelValues(op).Inc()
}
