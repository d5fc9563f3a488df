package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/nextlevelbuilder/autoreply/internal/config"
)

const telemetryFlushTimeout = 5 * time.Second

// initTelemetry installs an OTLP span exporter as the global tracer provider.
// With telemetry disabled it is a no-op and pipeline spans go nowhere.
func initTelemetry(ctx context.Context, tc config.TelemetryConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !tc.Enabled {
		return noop, nil
	}
	if tc.Endpoint == "" {
		return noop, fmt.Errorf("telemetry enabled but no endpoint configured")
	}

	var exp sdktrace.SpanExporter
	var err error
	switch tc.Protocol {
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(tc.Endpoint)}
		if tc.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(tc.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(tc.Headers))
		}
		exp, err = otlptracehttp.New(ctx, opts...)
	case "", "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(tc.Endpoint)}
		if tc.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(tc.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(tc.Headers))
		}
		exp, err = otlptracegrpc.New(ctx, opts...)
	default:
		return noop, fmt.Errorf("unknown telemetry protocol %q (want grpc or http)", tc.Protocol)
	}
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	serviceName := tc.ServiceName
	if serviceName == "" {
		serviceName = "autoreply"
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", Version),
		)),
	)
	otel.SetTracerProvider(tp)
	slog.Info("telemetry enabled", "endpoint", tc.Endpoint, "protocol", tc.Protocol, "service", serviceName)
	return tp.Shutdown, nil
}
