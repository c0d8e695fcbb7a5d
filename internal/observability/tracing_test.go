package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("TROONS_TRACING_ENABLED", "TRUE")
	t.Setenv("TROONS_TRACING_EXPORTER", "OTLP")
	t.Setenv("TROONS_TRACING_SERVICE_NAME", "")
	t.Setenv("TROONS_TRACING_SAMPLE_RATIO", "1.5")
	t.Setenv("TROONS_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled {
		t.Fatalf("Enabled = false, want true")
	}
	if cfg.Exporter != "otlp" {
		t.Fatalf("Exporter = %q, want otlp", cfg.Exporter)
	}
	if cfg.ServiceName != "troons" {
		t.Fatalf("ServiceName = %q, want default", cfg.ServiceName)
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("SampleRatio = %v, want out-of-range value ignored", cfg.SampleRatio)
	}
	if cfg.Endpoint != "collector:4317" {
		t.Fatalf("Endpoint = %q", cfg.Endpoint)
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	if err == nil {
		t.Fatalf("InitTracing accepted unknown exporter")
	}
}

func TestTracingResourceCarriesRunInfo(t *testing.T) {
	cfg := TracingConfig{
		ServiceName: "troons",
		Run:         RunInfo{RunID: "run-1", Workers: 3},
	}
	set := cfg.Resource().Set()

	if v, ok := set.Value("troons.workers"); !ok || v.AsInt64() != 3 {
		t.Fatalf("troons.workers = %v (present=%v), want 3", v.Emit(), ok)
	}
	if v, ok := set.Value("troons.run_id"); !ok || v.AsString() != "run-1" {
		t.Fatalf("troons.run_id = %v (present=%v)", v.Emit(), ok)
	}
	if _, ok := set.Value("troons.scenario"); ok {
		t.Fatalf("empty scenario should not become an attribute")
	}
	if v, _ := set.Value(attribute.Key("service.name")); v.AsString() != "troons" {
		t.Fatalf("service.name = %q", v.AsString())
	}
}

func TestInitTracingStdoutExportsRunAttributes(t *testing.T) {
	var buf bytes.Buffer
	cfg := TracingConfig{
		Enabled:     true,
		ServiceName: "troons",
		Exporter:    ExporterStdout,
		SampleRatio: 1,
		Run:         RunInfo{Scenario: "loop.txt", Workers: 4},
		SpanWriter:  &buf,
	}
	ctx := context.Background()
	shutdown, err := InitTracing(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}

	_, span := otel.Tracer("tracing-test").Start(ctx, "tick-batch")
	span.End()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"tick-batch", "troons.workers", "loop.txt"} {
		if !strings.Contains(out, want) {
			t.Fatalf("exported spans missing %q:\n%s", want, out)
		}
	}
}
