package clog

import "bytes"

// ContextField 从 Context 取值写入日志的规则
type ContextField struct {
	Key       any
	FieldName string
}

type Option func(*options)

type options struct {
	namespace     []string
	contextFields []ContextField
	traceContext  bool
	buffer        *bytes.Buffer
}

// WithNamespace 追加命名空间层级，输出为 namespace=a.b
//
//	clog.WithNamespace("orders", "api") // namespace=orders.api
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespace = append(o.namespace, parts...)
	}
}

// WithContextField ctx.Value(key) 非 nil 时以 fieldName 输出
//
//	clog.WithContextField(midKey{}, "mid")
func WithContextField(key any, fieldName string) Option {
	return func(o *options) {
		o.contextFields = append(o.contextFields, ContextField{Key: key, FieldName: fieldName})
	}
}

// WithTraceContext ctx 中带有效 Span 时输出 trace_id 与 span_id。
// 消息处理函数收到的 ctx 带有消费者 Span，日志可以直接关联到链路。
func WithTraceContext() Option {
	return func(o *options) {
		o.traceContext = true
	}
}

// WithBuffer Output 为 "buffer" 时的写入目标，测试用
func WithBuffer(buf *bytes.Buffer) Option {
	return func(o *options) {
		o.buffer = buf
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
