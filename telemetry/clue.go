package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

type (
	// ClueLogger wraps goa.design/clue/log, tagging every record with the
	// component it was constructed for (e.g. "corpuscallosum",
	// "orchestrator") so a single process composing several of this
	// substrate's pieces can tell their log lines apart without every call
	// site repeating a "component" keyval by hand.
	ClueLogger struct {
		component string
	}

	// ClueMetrics wraps an OTEL meter scoped to one component's
	// instrumentation name, so counters/histograms from independently
	// constructed components (bus, orchestrator, ranker) don't collide
	// under one global meter name.
	ClueMetrics struct {
		meter     metric.Meter
		component string
	}

	// ClueTracer wraps an OTEL tracer scoped the same way as ClueMetrics.
	ClueTracer struct {
		tracer trace.Tracer
	}

	clueSpan struct {
		span trace.Span
	}
)

// instrumentationScope builds the OTEL instrumentation name for a
// component, namespaced under this module's import path so multiple
// programs linking this substrate don't collide in a shared collector.
func instrumentationScope(component string) string {
	return "github.com/synapse-systems/corpuscallosum/" + component
}

// NewClueLogger constructs a Logger that delegates to goa.design/clue/log,
// tagging every call with component. The logger reads formatting and debug
// settings from the context (set via log.Context and
// log.WithFormat/log.WithDebug).
func NewClueLogger(component string) Logger {
	return ClueLogger{component: component}
}

// NewClueMetrics constructs a Metrics recorder scoped to component,
// delegating to OTEL metrics via the global MeterProvider; configure it via
// otel.SetMeterProvider before routing any messages.
func NewClueMetrics(component string) Metrics {
	return &ClueMetrics{meter: otel.Meter(instrumentationScope(component)), component: component}
}

// NewClueTracer constructs a Tracer scoped to component, delegating to OTEL
// tracing via the global TracerProvider.
func NewClueTracer(component string) Tracer {
	return &ClueTracer{tracer: otel.Tracer(instrumentationScope(component))}
}

func (l ClueLogger) fields(keyvals []any) []log.Fielder {
	fielders := []log.Fielder{log.KV{K: "component", V: l.component}}
	return append(fielders, kvSliceToClue(keyvals)...)
}

// Debug emits a debug-level log message with structured key-value pairs.
func (l ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, l.fields(keyvals)...)...)
}

// Info emits an info-level log message with structured key-value pairs.
func (l ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, l.fields(keyvals)...)...)
}

// Warn emits a warning-level log message with structured key-value pairs.
func (l ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	fielders := append([]log.Fielder{log.KV{K: "msg", V: msg}, log.KV{K: "severity", V: "warning"}}, l.fields(keyvals)...)
	log.Warn(ctx, fielders...)
}

// Error emits an error-level log message with structured key-value pairs.
func (l ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	log.Error(ctx, nil, append([]log.Fielder{log.KV{K: "msg", V: msg}}, l.fields(keyvals)...)...)
}

// IncCounter increments a counter metric by the given value, tagged with
// this recorder's component.
func (m *ClueMetrics) IncCounter(name string, value float64, tags ...string) {
	counter, err := m.meter.Float64Counter(name)
	if err != nil {
		return
	}
	counter.Add(context.Background(), value, metric.WithAttributes(m.attrs(tags)...))
}

// RecordTimer records a duration histogram/timer metric.
func (m *ClueMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	histogram, err := m.meter.Float64Histogram(name)
	if err != nil {
		return
	}
	histogram.Record(context.Background(), duration.Seconds(), metric.WithAttributes(m.attrs(tags)...))
}

// RecordGauge records a gauge metric value. OTEL has no synchronous gauge
// instrument, so a histogram is used as a fallback.
func (m *ClueMetrics) RecordGauge(name string, value float64, tags ...string) {
	histogram, err := m.meter.Float64Histogram(name + "_gauge")
	if err != nil {
		return
	}
	histogram.Record(context.Background(), value, metric.WithAttributes(m.attrs(tags)...))
}

func (m *ClueMetrics) attrs(tags []string) []attribute.KeyValue {
	return append(tagsToAttrs(tags), attribute.String("component", m.component))
}

// Start creates a new span, returning a derived context and the span handle.
func (t *ClueTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	newCtx, span := t.tracer.Start(ctx, name, opts...)
	return newCtx, &clueSpan{span: span}
}

// Span retrieves the current span from the context.
func (t *ClueTracer) Span(ctx context.Context) Span {
	return &clueSpan{span: trace.SpanFromContext(ctx)}
}

func (s *clueSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s *clueSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name, trace.WithAttributes(kvSliceToAttrs(attrs)...))
}

func (s *clueSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *clueSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

// kvSliceToClue converts variadic key-value pairs into Clue's log.Fielder
// slice. Non-string keys are skipped.
func kvSliceToClue(keyvals []any) []log.Fielder {
	var fielders []log.Fielder
	for i := 0; i < len(keyvals); i += 2 {
		keyStr, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		var v any
		if i+1 < len(keyvals) {
			v = keyvals[i+1]
		}
		fielders = append(fielders, log.KV{K: keyStr, V: v})
	}
	return fielders
}

// tagsToAttrs converts tag strings (k1, v1, k2, v2, ...) into OTEL
// attributes for metrics dimensions.
func tagsToAttrs(tags []string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(tags); i += 2 {
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		attrs = append(attrs, attribute.String(tags[i], v))
	}
	return attrs
}

// kvSliceToAttrs converts variadic key-value pairs into OTEL attributes for
// span events.
func kvSliceToAttrs(keyvals []any) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(keyvals); i += 2 {
		keyStr, _ := keyvals[i].(string)
		var v any
		if i+1 < len(keyvals) {
			v = keyvals[i+1]
		}
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(keyStr, val))
		case int:
			attrs = append(attrs, attribute.Int(keyStr, val))
		case int64:
			attrs = append(attrs, attribute.Int64(keyStr, val))
		case float64:
			attrs = append(attrs, attribute.Float64(keyStr, val))
		case bool:
			attrs = append(attrs, attribute.Bool(keyStr, val))
		default:
			attrs = append(attrs, attribute.String(keyStr, ""))
		}
	}
	return attrs
}
