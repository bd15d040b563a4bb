// Package tracing 封装 OpenTelemetry
//
// Init 设置全局 TracerProvider 与传播器；未启用时全部 span 为空操作。
// Endpoint 为空时导出到 stdout，便于本地查看报价链路。
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dumeirei/marketplace-pricing/internal/common/config"
)

const scopeName = "github.com/dumeirei/marketplace-pricing"

// Config 追踪配置
type Config struct {
	Enabled     bool
	ServiceName string
	Environment string
	Endpoint    string
	SampleRate  float64
}

// FromConfig 由应用配置构造，Environment 取服务运行模式
func FromConfig(cfg *config.TracingConfig, environment string) *Config {
	return &Config{
		Enabled:     cfg.Enabled,
		ServiceName: cfg.ServiceName,
		Environment: environment,
		Endpoint:    cfg.Endpoint,
		SampleRate:  cfg.SampleRate,
	}
}

// Tracer 持有 provider 以便退出时冲刷
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

var current = &Tracer{tracer: noop.NewTracerProvider().Tracer(scopeName)}

// Init 构建并安装全局追踪器
func Init(cfg *Config) (*Tracer, error) {
	if !cfg.Enabled {
		current = &Tracer{tracer: noop.NewTracerProvider().Tracer(scopeName)}
		return current, nil
	}

	exporter, err := newExporter(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(cfg.SampleRate))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	install(provider)
	return current, nil
}

func install(provider *sdktrace.TracerProvider) {
	current = &Tracer{provider: provider, tracer: provider.Tracer(scopeName)}
}

func newExporter(endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		return exp, nil
	}
	exp, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter %s: %w", endpoint, err)
	}
	return exp, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	if rate <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}

// Shutdown 冲刷未导出的 span
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
