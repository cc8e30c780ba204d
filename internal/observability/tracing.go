package observability

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/cozy-creator/brandgen/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.uber.org/zap"
)

const ServiceName = "brandgen"

type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// InitTracing installs the global tracer provider described by cfg. With
// tracing disabled it leaves otel's no-op provider in place. Spans go to
// the OTLP/HTTP endpoint when one is set, else to stderr so stdout stays
// free for command output.
func InitTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ShutdownFunc, error) {
	if !cfg.Tracing.Enabled {
		return noopShutdown, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(ServiceName),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		logger.Warn("otel resource init failed", zap.Error(err))
	}

	exporter, err := newExporter(ctx, cfg.Tracing, os.Stderr)
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.Tracing.SampleRatio)))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing initialized", zap.String("endpoint", cfg.Tracing.Endpoint))
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg config.TracingConfig, fallback io.Writer) (sdktrace.SpanExporter, error) {
	if cfg.Endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}

	return stdouttrace.New(stdouttrace.WithWriter(fallback))
}

func sampleRatio(ratio float64) float64 {
	return min(max(ratio, 0), 1)
}
