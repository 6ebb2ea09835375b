// Package tracing настраивает OpenTelemetry и даёт короткие хелперы для спанов.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName — имя трейсера сервиса.
const TracerName = "github.com/jchangwan/campus-closet-share"

type Config struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string // пустой endpoint — трейсинг без экспорта
	SampleRate     float64
}

// Provider оборачивает sdk-провайдер; provider == nil означает no-op.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// Init регистрирует глобальный TracerProvider. Без OTLPEndpoint возвращает no-op провайдер.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.OTLPEndpoint == "" {
		return &Provider{}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{provider: provider}, nil
}

// Shutdown сбрасывает буфер спанов и останавливает экспортёр.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}

	return p.provider.Shutdown(ctx)
}

// Enabled сообщает, что спаны экспортируются.
func (p *Provider) Enabled() bool {
	return p != nil && p.provider != nil
}

// Start открывает спан глобального трейсера.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError помечает спан ошибочным.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
