// Package testkit 提供 hydra 各包测试共用的依赖构造。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/ceyewan/hydra/clog"
	"github.com/ceyewan/hydra/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回一个包含默认依赖的测试工具包，ctx 在测试结束时取消
func NewKit(t *testing.T) *Kit {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	meter := NewMeter()
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	return &Kit{
		Ctx:    ctx,
		Logger: NewLogger(),
		Meter:  meter,
	}
}

// NewLogger 返回一个用于测试的 logger，只输出 warn 及以上
func NewLogger() clog.Logger {
	cfg := clog.NewDevDefaultConfig("hydra-test")
	cfg.Level = "warn"
	return clog.Must(cfg)
}

// NewMeter 返回一个启用的 meter，可通过 Handler() 抓取断言
func NewMeter() metrics.Meter {
	return metrics.Must(&metrics.Config{Enabled: true, ServiceName: "hydra-test"})
}

// NewContext 返回一个带超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
