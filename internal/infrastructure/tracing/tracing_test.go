package tracing

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nerrad567/graydb/internal/database"
	"github.com/nerrad567/graydb/internal/drivers"
	"github.com/nerrad567/graydb/internal/infrastructure/config"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Enabled() {
		t.Error("Enabled() = true, want false")
	}
	if p.Tracer() == nil {
		t.Fatal("Tracer() should not be nil when disabled")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.5, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		got := sampler(tt.rate).Description()
		want := "ParentBased{root:" + tt.want
		if len(got) < len(want) || got[:len(want)] != want {
			t.Errorf("sampler(%v).Description() = %q, want prefix %q", tt.rate, got, want)
		}
	}
}

func TestProvider_RecordsSessionSpans(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()

	p, err := newProvider(ctx, config.TracingConfig{SampleRate: 1}, "test", sdktrace.WithSyncer(exporter))
	if err != nil {
		t.Fatalf("newProvider() error = %v", err)
	}
	defer p.Shutdown(ctx) //nolint:errcheck // Test cleanup

	if !p.Enabled() {
		t.Error("Enabled() = false, want true")
	}

	s, err := database.Open(ctx, drivers.SQLite{}, database.Config{database.KeyFile: ":memory:"},
		database.WithTracer(p.Tracer()))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close() //nolint:errcheck // Test cleanup

	if err := s.Read(ctx, "SELECT 1 AS one", nil); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "database.query" {
		t.Errorf("span name = %q, want database.query", spans[0].Name)
	}

	var statement string
	for _, kv := range spans[0].Attributes {
		if kv.Key == "db.statement" {
			statement = kv.Value.AsString()
		}
	}
	if statement != "SELECT 1 AS one" {
		t.Errorf("db.statement = %q, want SELECT 1 AS one", statement)
	}

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	if service != defaultServiceName {
		t.Errorf("service.name = %q, want %q", service, defaultServiceName)
	}
}
