package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestDefaultConfigDisabledWithoutFlag(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_RESOURCE_ENVIRONMENT", "")
	t.Setenv("TRADERNET_ENV", "Staging")

	cfg := DefaultConfig()
	if cfg.Enabled {
		t.Fatalf("telemetry must be opt-in")
	}
	if cfg.OTLPEndpoint != "localhost:4318" {
		t.Fatalf("unexpected endpoint %s", cfg.OTLPEndpoint)
	}
	if cfg.Environment != "Staging" {
		t.Fatalf("expected environment from TRADERNET_ENV, got %s", cfg.Environment)
	}
}

func TestNewProviderDisabledIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	cfg.Environment = "DEV"

	p, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if Environment() != "dev" {
		t.Fatalf("expected lowercased environment, got %s", Environment())
	}
}

func TestStripScheme(t *testing.T) {
	cases := map[string]string{
		"http://collector:4318":  "collector:4318",
		"https://collector:4318": "collector:4318",
		"collector:4318":         "collector:4318",
	}
	for in, want := range cases {
		if got := stripScheme(in); got != want {
			t.Fatalf("stripScheme(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var tm *TransportMetrics
	tm.Record(context.Background(), "GET", "/api", ResultOK, 200, time.Millisecond)
	var sm *StreamMetrics
	sm.Frame(context.Background(), "quotes", "q", ResultOK)
	sm.Session(context.Background(), "quotes", 1)
}

func TestInstrumentsRecordThroughGlobalProvider(t *testing.T) {
	prev := otel.GetMeterProvider()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithView(Views()...))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
		_ = mp.Shutdown(context.Background())
	})

	tm := NewTransportMetrics()
	tm.Record(context.Background(), "POST", "getPositionJson", ResultOK, 200, 12*time.Millisecond)
	tm.Record(context.Background(), "POST", "getPositionJson", ResultHTTPError, 500, 3*time.Millisecond)
	sm := NewStreamMetrics()
	sm.Frame(context.Background(), "quotes", "q", ResultOK)
	sm.Session(context.Background(), "quotes", 1)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	seen := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			seen[m.Name] = true
			if m.Name == MetricRequests {
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatalf("unexpected request data %T", m.Data)
				}
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				if total != 2 {
					t.Fatalf("expected 2 requests, got %d", total)
				}
			}
		}
	}
	for _, name := range []string{MetricRequests, MetricRequestDuration, MetricFrames, MetricSessions} {
		if !seen[name] {
			t.Fatalf("metric %s not collected", name)
		}
	}
}
