package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Start 以全局追踪器开启 span
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return current.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddEvent 在当前 span 上记录事件
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetError 记录错误并将当前 span 标记为失败
func SetError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// 属性键；券码不进入 span，避免泄露到追踪后端
const (
	keySellerID        = attribute.Key("seller.id")
	keyProductID       = attribute.Key("product.id")
	keyDisplayCurrency = attribute.Key("pricing.display_currency")
	keyMarkupSource    = attribute.Key("pricing.markup_source")
	keyOrderNo         = attribute.Key("order.no")
	keyOperation       = attribute.Key("operation")
)

func WithSellerID(id int64) attribute.KeyValue { return keySellerID.Int64(id) }
func WithProductID(id int64) attribute.KeyValue { return keyProductID.Int64(id) }
func WithDisplayCurrency(code string) attribute.KeyValue { return keyDisplayCurrency.String(code) }
func WithMarkupSource(source string) attribute.KeyValue { return keyMarkupSource.String(source) }
func WithOrderNo(no string) attribute.KeyValue { return keyOrderNo.String(no) }
func WithOperation(op string) attribute.KeyValue { return keyOperation.String(op) }
