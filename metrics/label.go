package metrics

import "strconv"

// Label 指标标签。避免高基数取值（如 mid、instanceID）。
type Label struct {
	Key   string
	Value string
}

// L 创建一个 Label
//
//	counter.Inc(ctx, metrics.L(metrics.LabelChannel, "broadcast"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// 常用标签键
const (
	LabelService     = "service"
	LabelChannel     = "channel"
	LabelReason      = "reason"
	LabelKind        = "kind"
	LabelOp          = "op"
	LabelMethod      = "method"
	LabelRoute       = "route"
	LabelStatusClass = "status_class"
)

// UnknownRoute 未命中路由时的 route 标签值
const UnknownRoute = "unknown"

// HTTPStatusClass 返回 1xx/2xx/3xx/4xx/5xx/unknown
func HTTPStatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
