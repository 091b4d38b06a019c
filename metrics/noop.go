package metrics

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Discard 返回丢弃所有记录的 Meter，Config.Enabled 为 false 或未注入 Meter 时使用
func Discard() Meter {
	return discardMeter{}
}

type discardMeter struct{}

func (discardMeter) Counter(string, string, ...MetricOption) (Counter, error) {
	return discardInstrument{}, nil
}

func (discardMeter) Gauge(string, string, ...MetricOption) (Gauge, error) {
	return discardInstrument{}, nil
}

func (discardMeter) Histogram(string, string, ...MetricOption) (Histogram, error) {
	return discardInstrument{}, nil
}

func (discardMeter) Provider() metric.MeterProvider { return noop.NewMeterProvider() }

func (discardMeter) Handler() http.Handler { return http.NotFoundHandler() }

func (discardMeter) Shutdown(context.Context) error { return nil }

type discardInstrument struct{}

func (discardInstrument) Inc(context.Context, ...Label)              {}
func (discardInstrument) Dec(context.Context, ...Label)              {}
func (discardInstrument) Add(context.Context, float64, ...Label)     {}
func (discardInstrument) Set(context.Context, float64, ...Label)     {}
func (discardInstrument) Record(context.Context, float64, ...Label) {}
