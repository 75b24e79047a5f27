// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config configures span export.
type Config struct {
	// Endpoint is the OTLP/HTTP collector, as host:port or a full URL.
	// Empty keeps the global no-op provider.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards a host:port endpoint.
	Insecure bool `yaml:"insecure"`

	// ServiceName defaults to "deltime".
	ServiceName string `yaml:"service_name"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// SampleRatio is the fraction of traces kept. Zero keeps every trace.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Enabled reports whether spans are exported.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// Validate checks the sampling ratio.
func (c Config) Validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio must be within [0,1], got %g", c.SampleRatio)
	}
	return nil
}

// ShutdownFunc flushes and stops the provider installed by Setup.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs an OTLP/HTTP exporting tracer provider as the global
// provider. With no endpoint it leaves the global no-op provider in place.
func Setup(ctx context.Context, cfg Config, version string) (ShutdownFunc, error) {
	if !cfg.Enabled() {
		return noopShutdown, nil
	}

	opts := []otlptracehttp.Option{}
	if strings.Contains(cfg.Endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}
	return Install(ctx, cfg, version, exp)
}

// Install registers a tracer provider batching spans to exp as the global
// provider.
func Install(ctx context.Context, cfg Config, version string, exp sdktrace.SpanExporter) (ShutdownFunc, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "deltime"
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("telemetry: build resource: %w", err), exp.Shutdown(ctx))
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown: %w", err)
		}
		return nil
	}, nil
}
