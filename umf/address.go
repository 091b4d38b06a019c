package umf

import (
	"strings"
)

// Address 从 to 字段解析出的路由地址
//
//	orders:[get]/v1/status          -> ServiceName=orders HTTPMethod=get APIRoute=/v1/status
//	7f2a-sub1@orders:/v1/x          -> Instance=7f2a SubID=sub1 ServiceName=orders
type Address struct {
	ServiceName string
	Instance    string
	SubID       string
	HTTPMethod  string
	APIRoute    string
	// Error 地址格式错误时非空
	Error string
}

// Err 地址有误时返回包装了 ErrInvalidAddress 的错误
func (a Address) Err() error {
	if a.Error == "" {
		return nil
	}
	return &addressError{msg: a.Error}
}

type addressError struct{ msg string }

func (e *addressError) Error() string { return "umf: invalid address: " + e.msg }

func (e *addressError) Unwrap() error { return ErrInvalidAddress }

// ParseAddress 解析 <selector>:<[method]path>。
//
// 只在第一个冒号处切分，路由本身允许包含冒号 (如 /v1/items/:id)。
// selector 为裸服务名，或 <instance>-<subID>@<serviceName>。
// 方法名按原样保留，不做大小写转换。
func ParseAddress(to string) Address {
	selector, route, ok := strings.Cut(to, ":")
	if !ok {
		return Address{Error: "route field has invalid number of routable segments"}
	}

	var addr Address
	if target, service, found := strings.Cut(selector, "@"); found {
		addr.Instance, addr.SubID, _ = strings.Cut(target, "-")
		addr.ServiceName = service
	} else {
		addr.ServiceName = selector
	}

	if open := strings.Index(route, "["); open >= 0 {
		if end := strings.Index(route[open:], "]"); end >= 0 {
			closeIdx := open + end
			addr.HTTPMethod = route[open+1 : closeIdx]
			route = route[:open] + route[closeIdx+1:]
		}
	}
	addr.APIRoute = route

	if addr.ServiceName == "" {
		addr.Error = "missing service name"
	}
	return addr
}
