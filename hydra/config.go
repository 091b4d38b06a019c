package hydra

import (
	"time"

	"github.com/ceyewan/hydra/xerrors"
)

// DispatchPolicy 处理函数繁忙（并发数已满）时的入站消息策略
type DispatchPolicy string

const (
	// DispatchBlock 接收循环等待空闲槽位。处理函数各自运行在独立 goroutine 中，
	// 即使只有一个槽位也不保证调用顺序
	DispatchBlock DispatchPolicy = "block"
	// DispatchDrop 直接丢弃并计数
	DispatchDrop DispatchPolicy = "drop"
	// DispatchGrow 不设上限，每条消息一个 goroutine
	DispatchGrow DispatchPolicy = "grow"
)

// Config 服务配置，对应配置文件中的 hydra 段
//
//	hydra:
//	  serviceName: orders
//	  serviceVersion: 1.2.0
//	  servicePort: 5000
//	  presenceInterval: 1s
//	  dispatchPolicy: block
type Config struct {
	ServiceName        string `mapstructure:"serviceName"`        // [必填] 服务名
	ServiceVersion     string `mapstructure:"serviceVersion"`     // 默认 "0.0.0"
	ServiceDescription string `mapstructure:"serviceDescription"` // 描述
	ServiceType        string `mapstructure:"serviceType"`        // 类型，写入服务描述记录
	ServiceIP          string `mapstructure:"serviceIP"`          // 对外 IP，为空时自动探测
	ServiceDNS         string `mapstructure:"serviceDNS"`         // 非空时覆盖 ServiceIP
	ServicePort        int    `mapstructure:"servicePort"`        // 对外端口

	KeyPrefix        string        `mapstructure:"keyPrefix"`        // 默认 "hydra:service"
	PresenceInterval time.Duration `mapstructure:"presenceInterval"` // 心跳周期，默认 1s，presence TTL 为其 3 倍
	HealthEvery      int           `mapstructure:"healthEvery"`      // 每 N 次心跳上报一次健康快照，默认 5

	MaxConcurrentHandlers int            `mapstructure:"maxConcurrentHandlers"` // 默认 64
	DispatchPolicy        DispatchPolicy `mapstructure:"dispatchPolicy"`        // 默认 block
}

const (
	defaultKeyPrefix        = "hydra:service"
	defaultVersion          = "0.0.0"
	defaultPresenceInterval = time.Second
	defaultHealthEvery      = 5
	defaultMaxHandlers      = 64
)

func (c *Config) setDefaults() {
	if c.ServiceVersion == "" {
		c.ServiceVersion = defaultVersion
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = defaultKeyPrefix
	}
	if c.PresenceInterval <= 0 {
		c.PresenceInterval = defaultPresenceInterval
	}
	if c.HealthEvery <= 0 {
		c.HealthEvery = defaultHealthEvery
	}
	if c.MaxConcurrentHandlers <= 0 {
		c.MaxConcurrentHandlers = defaultMaxHandlers
	}
	if c.DispatchPolicy == "" {
		c.DispatchPolicy = DispatchBlock
	}
}

func (c *Config) validate() error {
	if c.ServiceName == "" {
		return xerrors.Wrap(ErrInvalidConfig, "serviceName is required")
	}
	switch c.DispatchPolicy {
	case DispatchBlock, DispatchDrop, DispatchGrow:
	default:
		return xerrors.Wrapf(ErrInvalidConfig, "unknown dispatchPolicy %q", c.DispatchPolicy)
	}
	if c.ServicePort < 0 || c.ServicePort > 65535 {
		return xerrors.Wrapf(ErrInvalidConfig, "servicePort out of range: %d", c.ServicePort)
	}
	return nil
}

// presenceTTL presence 与 health 键的过期时间
func (c *Config) presenceTTL() time.Duration {
	return 3 * c.PresenceInterval
}
