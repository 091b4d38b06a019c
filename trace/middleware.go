package trace

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// GinMiddleware 为每个 HTTP 请求创建服务端 Span。
// skip 中的路径（如 /metrics）不产生 Span。
func GinMiddleware(serviceName string, skip ...string) gin.HandlerFunc {
	if len(skip) == 0 {
		return otelgin.Middleware(serviceName)
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return otelgin.Middleware(serviceName, otelgin.WithGinFilter(func(c *gin.Context) bool {
		_, ok := skipped[c.FullPath()]
		return !ok
	}))
}
