package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricRequests        = "tradernet.transport.requests"
	MetricRequestDuration = "tradernet.transport.duration"
	MetricFrames          = "tradernet.stream.frames"
	MetricSessions        = "tradernet.stream.sessions"
)

// TransportMetrics records REST request counts and latency. A nil receiver is a noop.
type TransportMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewTransportMetrics builds instruments from the current global meter provider.
func NewTransportMetrics() *TransportMetrics {
	meter := Meter()
	tm := &TransportMetrics{requests: nil, duration: nil}
	tm.requests, _ = meter.Int64Counter(MetricRequests,
		metric.WithDescription("REST requests issued by the Tradernet client"),
		metric.WithUnit("{request}"))
	tm.duration, _ = meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("REST request latency"),
		metric.WithUnit("ms"))
	return tm
}

// Record adds one request observation.
func (tm *TransportMetrics) Record(ctx context.Context, method, target, result string, status int, elapsed time.Duration) {
	if tm == nil || tm.requests == nil || tm.duration == nil {
		return
	}
	if elapsed < 0 {
		elapsed = 0
	}
	attrs := metric.WithAttributes(RequestAttributes(method, target, result, status)...)
	tm.requests.Add(ensureContext(ctx), 1, attrs)
	tm.duration.Record(ensureContext(ctx), float64(elapsed.Microseconds())/1000, attrs)
}

// StreamMetrics records streaming frames and open sessions. A nil receiver is a noop.
type StreamMetrics struct {
	frames   metric.Int64Counter
	sessions metric.Int64UpDownCounter
}

// NewStreamMetrics builds instruments from the current global meter provider.
func NewStreamMetrics() *StreamMetrics {
	meter := Meter()
	sm := &StreamMetrics{frames: nil, sessions: nil}
	sm.frames, _ = meter.Int64Counter(MetricFrames,
		metric.WithDescription("Inbound streaming frames by tag and outcome"),
		metric.WithUnit("{frame}"))
	sm.sessions, _ = meter.Int64UpDownCounter(MetricSessions,
		metric.WithDescription("Open streaming subscriptions"),
		metric.WithUnit("{session}"))
	return sm
}

// Frame counts one inbound frame.
func (sm *StreamMetrics) Frame(ctx context.Context, channel, tag, result string) {
	if sm == nil || sm.frames == nil {
		return
	}
	sm.frames.Add(ensureContext(ctx), 1, metric.WithAttributes(FrameAttributes(channel, tag, result)...))
}

// Session adjusts the open session gauge by delta.
func (sm *StreamMetrics) Session(ctx context.Context, channel string, delta int64) {
	if sm == nil || sm.sessions == nil || delta == 0 {
		return
	}
	sm.sessions.Add(ensureContext(ctx), delta, metric.WithAttributes(
		AttrEnvironment.String(Environment()),
		attribute.String(string(AttrChannel), channel),
	))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
