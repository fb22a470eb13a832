// Package tracing sets up the global OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/config"
)

const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"

	tracerName = "github.com/yizeng/gab/gin/gorm/marketplace"
)

// Tracer is what the service layer starts its spans from.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Init installs a tracer provider and returns its shutdown func. When tracing
// is disabled the no-op global provider is left in place.
func Init(ctx context.Context, conf *config.TracingConfig, env string) (func(context.Context) error, error) {
	if conf == nil || !conf.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, conf)
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", conf.ServiceName),
		attribute.String("deployment.environment", env),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	zap.L().Info("tracing initialized",
		zap.String("service", conf.ServiceName),
		zap.String("exporter", conf.Exporter),
	)

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, conf *config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch conf.Exporter {
	case ExporterOTLP:
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(conf.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("otlptracehttp.New -> %w", err)
		}
		return exp, nil
	case ExporterStdout, "":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("stdouttrace.New -> %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", conf.Exporter)
	}
}
