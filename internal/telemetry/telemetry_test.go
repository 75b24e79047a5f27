package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := Setup(t.Context(), Config{}, "test")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(t.Context()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Error("disabled telemetry replaced the global provider")
	}
}

func TestInstall_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	exp := tracetest.NewInMemoryExporter()
	shutdown, err := Install(t.Context(), Config{ServiceName: "deltime-test"}, "v1.2.3", exp)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	_, span := otel.Tracer("telemetry_test").Start(context.Background(), "remover.Remove")
	span.End()

	if err := shutdown(t.Context()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "remover.Remove" {
		t.Fatalf("spans = %v", spans.Snapshots())
	}
	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	if service != "deltime-test" {
		t.Errorf("service.name = %q", service)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	if err := (Config{SampleRatio: 0.5}).Validate(); err != nil {
		t.Errorf("valid ratio rejected: %v", err)
	}
	if err := (Config{SampleRatio: 2}).Validate(); err == nil {
		t.Error("ratio above 1 accepted")
	}
	if (Config{}).Enabled() || !(Config{Endpoint: "localhost:4318"}).Enabled() {
		t.Error("Enabled does not follow the endpoint")
	}
}
