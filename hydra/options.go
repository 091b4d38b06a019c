package hydra

import (
	"github.com/ceyewan/hydra/clog"
	"github.com/ceyewan/hydra/internal/health"
	"github.com/ceyewan/hydra/metrics"
)

// Option 配置 Service
type Option func(*options)

type options struct {
	logger  clog.Logger
	meter   metrics.Meter
	handler Handler
	sampler HealthSampler
}

// WithLogger 设置日志记录器，自动追加 hydra 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("hydra")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithHandler 设置入站消息处理函数，等价于 Init 前调用 SetHandler
func WithHandler(h Handler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// WithHealthSampler 替换默认的 gopsutil 采样
func WithHealthSampler(sampler HealthSampler) Option {
	return func(o *options) {
		o.sampler = sampler
	}
}

func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	if o.sampler == nil {
		o.sampler = health.Sample
	}
}
