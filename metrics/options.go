package metrics

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/ceyewan/hydra/clog"
)

type Option func(*options)

type options struct {
	logger    clog.Logger
	resources []attribute.KeyValue
}

// WithLogger 注入日志记录器，追加 metrics 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("metrics")
		}
	}
}

// WithResource 追加 OTel Resource 属性，例如 host.name。
// service.name 与 service.version 始终取自 Config。
func WithResource(attrs ...attribute.KeyValue) Option {
	return func(o *options) {
		o.resources = append(o.resources, attrs...)
	}
}
