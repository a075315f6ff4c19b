package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
)

// TestNoopImplementationsDoNotPanic guards the degraded-mode logging path:
// components configured without a Logger/Metrics/Tracer fall back to these
// types and must tolerate every call shape the interfaces allow.
func TestNoopImplementationsDoNotPanic(t *testing.T) {
	ctx := context.Background()

	logger := NewNoopLogger()
	logger.Debug(ctx, "msg", "k", "v")
	logger.Info(ctx, "msg")
	logger.Warn(ctx, "msg")
	logger.Error(ctx, "msg")

	metrics := NewNoopMetrics()
	metrics.IncCounter("counter", 1, "tag")
	metrics.RecordTimer("timer", time.Millisecond)
	metrics.RecordGauge("gauge", 0.5)

	tracer := NewNoopTracer()
	spanCtx, span := tracer.Start(ctx, "op")
	span.AddEvent("event")
	span.SetStatus(codes.Ok, "fine")
	span.RecordError(nil)
	span.End()
	_ = tracer.Span(spanCtx)
}
