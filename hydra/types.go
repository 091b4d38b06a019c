package hydra

import (
	"context"

	"github.com/ceyewan/hydra/internal/health"
	"github.com/ceyewan/hydra/umf"
)

// ServiceInstance 写入实例索引 hash 的存活记录，每次心跳整体覆盖
type ServiceInstance struct {
	ServiceName        string `json:"serviceName"`
	ServiceDescription string `json:"serviceDescription"`
	Version            string `json:"version"`
	InstanceID         string `json:"instanceID"`
	ProcessID          int    `json:"processID"`
	IP                 string `json:"ip"`
	Port               int    `json:"port"`
	HostName           string `json:"hostName"`
	UpdatedOn          string `json:"updatedOn"`

	// UpdatedOnTS 读取时由 UpdatedOn 推导的 Unix 秒，不写入存储
	UpdatedOnTS int64 `json:"updatedOnTS,omitempty"`
}

// ServiceInfo Init 返回的实例摘要
type ServiceInfo struct {
	ServiceName    string `json:"serviceName"`
	ServiceIP      string `json:"serviceIP"`
	ServicePort    int    `json:"servicePort"`
	InstanceID     string `json:"instanceID"`
	ServiceVersion string `json:"serviceVersion"`
}

// serviceDescriptor {prefix}:{svc}:service 的内容
type serviceDescriptor struct {
	ServiceName  string `json:"serviceName"`
	Type         string `json:"type"`
	RegisteredOn string `json:"registeredOn"`
}

// HealthSnapshot 健康快照，只写不读，供外部观察者使用
type HealthSnapshot = health.Snapshot

// HealthSampler 采集健康快照；serviceName 与 instanceID 由 Service 填写
type HealthSampler func(ctx context.Context) (HealthSnapshot, error)

// Route 一条对外声明的 HTTP 路由
type Route struct {
	Path    string
	Methods []string
}

// Handler 入站消息处理函数。ctx 在 Service.Close 时取消。
//
// Close 会等待所有处理函数返回，处理函数内部需要关闭服务时
// 应另起 goroutine 调用（go svc.Close()），直接调用会死锁。
type Handler func(ctx context.Context, env *umf.Envelope)

// State 服务生命周期状态
type State int32

const (
	StateUnregistered State = iota
	StateRegistering
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// 日志级别，与 hydra-logging-svcs 约定一致
const (
	SeverityTrace = "trace"
	SeverityDebug = "debug"
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
	SeverityFatal = "fatal"
)
