package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// 消息语义属性
const (
	AttrMessagingSystem      = "messaging.system"
	AttrMessagingDestination = "messaging.destination.name"
	AttrMessagingOperation   = "messaging.operation"
	AttrMessagingMessageID   = "messaging.message.id"

	MessagingSystemRedis = "redis"

	OperationPublish = "publish"
	OperationProcess = "process"
)

const tracerName = "github.com/ceyewan/hydra"

// HeaderCarrier 把 UMF headers 适配为 TextMapCarrier，只读写字符串值
type HeaderCarrier map[string]any

func (c HeaderCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c HeaderCarrier) Set(key, value string) {
	c[key] = value
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Inject 把 ctx 中的链路信息写入 headers
func Inject(ctx context.Context, headers map[string]any) {
	otel.GetTextMapPropagator().Inject(ctx, HeaderCarrier(headers))
}

// Extract 从 headers 中恢复上游链路信息
func Extract(ctx context.Context, headers map[string]any) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, HeaderCarrier(headers))
}

// StartPublish 启动一个生产者 Span，并返回注入了 traceparent 的 headers 副本。
// 没有有效 Span 时返回的 headers 与输入相同。
func StartPublish(ctx context.Context, channel, mid string, headers map[string]any) (context.Context, oteltrace.Span, map[string]any) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hydra.publish "+channel,
		oteltrace.WithSpanKind(oteltrace.SpanKindProducer),
		oteltrace.WithAttributes(attrs(channel, mid, OperationPublish)...))

	if !span.SpanContext().IsValid() {
		return ctx, span, headers
	}
	out := make(map[string]any, len(headers)+2)
	for k, v := range headers {
		out[k] = v
	}
	Inject(ctx, out)
	return ctx, span, out
}

// StartProcess 启动一个消费者 Span。上游链路以 Span Link 关联而不是作为父节点，
// 因为广播消息会被多个实例同时处理。
func StartProcess(ctx context.Context, channel, mid string, headers map[string]any) (context.Context, oteltrace.Span) {
	opts := []oteltrace.SpanStartOption{
		oteltrace.WithSpanKind(oteltrace.SpanKindConsumer),
		oteltrace.WithAttributes(attrs(channel, mid, OperationProcess)...),
	}
	if remote := oteltrace.SpanContextFromContext(Extract(context.Background(), headers)); remote.IsValid() {
		opts = append(opts, oteltrace.WithLinks(oteltrace.Link{SpanContext: remote}))
	}
	return otel.Tracer(tracerName).Start(ctx, "hydra.process "+channel, opts...)
}

// MarkSpanError err 不为 nil 时记录到 Span 并标记为错误
func MarkSpanError(span oteltrace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func attrs(channel, mid, op string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrMessagingSystem, MessagingSystemRedis),
		attribute.String(AttrMessagingDestination, channel),
		attribute.String(AttrMessagingOperation, op),
		attribute.String(AttrMessagingMessageID, mid),
	}
}
