package metrics

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/hydra/xerrors"
)

// HTTPServerMetrics HTTP 请求计数与耗时
type HTTPServerMetrics struct {
	service  string
	requests Counter
	duration Histogram
}

// NewHTTPServerMetrics 在 m 上创建 http_server_requests_total 与 http_server_request_duration_seconds
func NewHTTPServerMetrics(m Meter, service string) (*HTTPServerMetrics, error) {
	if m == nil {
		return nil, xerrors.New("metrics: meter is nil")
	}
	requests, err := m.Counter("http_server_requests_total", "Total number of HTTP requests.")
	if err != nil {
		return nil, err
	}
	duration, err := m.Histogram("http_server_request_duration_seconds", "HTTP request duration in seconds.",
		WithUnit("s"),
		WithBuckets([]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}),
	)
	if err != nil {
		return nil, err
	}
	return &HTTPServerMetrics{service: service, requests: requests, duration: duration}, nil
}

// GinHTTPMiddleware 记录每个请求的计数与耗时。route 使用路由模板，避免原始路径造成高基数。
func GinHTTPMiddleware(httpMetrics *HTTPServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if httpMetrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = UnknownRoute
		}
		labels := []Label{
			L(LabelService, httpMetrics.service),
			L(LabelMethod, strings.ToUpper(c.Request.Method)),
			L(LabelRoute, route),
			L(LabelStatusClass, HTTPStatusClass(c.Writer.Status())),
		}
		ctx := c.Request.Context()
		httpMetrics.requests.Inc(ctx, labels...)
		httpMetrics.duration.Record(ctx, time.Since(start).Seconds(), labels...)
	}
}
