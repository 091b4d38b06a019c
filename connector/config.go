package connector

import (
	"time"

	"github.com/ceyewan/hydra/xerrors"
)

// RedisConfig Redis 连接配置。hydra 的 presence、队列与 pub/sub 共用同一个连接池，
// 订阅会长期占用池中的连接，PoolSize 需要覆盖订阅数加上并发命令数。
type RedisConfig struct {
	Name     string `mapstructure:"name"` // 连接器名称，默认 "default"
	Addr     string `mapstructure:"addr"` // [必填] 如 "127.0.0.1:6379"
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// ClientName 通过 HELLO SETNAME 上报，便于在 CLIENT LIST 中区分实例；为空时不设置
	ClientName string `mapstructure:"client_name"`
	// Protocol RESP 版本，2 或 3，默认 3
	Protocol int `mapstructure:"protocol"`

	MaxRetries   int           `mapstructure:"max_retries"`    // 默认 3，-1 关闭重试
	PoolSize     int           `mapstructure:"pool_size"`      // 默认 10
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 默认 0
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // 默认 5s
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // 默认 3s
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // 默认 3s

	EnableTracing bool `mapstructure:"enable_tracing"` // redisotel 命令 Span
	EnableMetrics bool `mapstructure:"enable_metrics"` // redisotel 连接池与命令耗时
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Protocol == 0 {
		c.Protocol = 3
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	c.MinIdleConns = max(c.MinIdleConns, 0)
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	switch {
	case c.Addr == "":
		return xerrors.Wrap(ErrConfig, "redis addr is required")
	case c.DB < 0:
		return xerrors.Wrapf(ErrConfig, "redis db must be >= 0, got %d", c.DB)
	case c.Protocol != 2 && c.Protocol != 3:
		return xerrors.Wrapf(ErrConfig, "redis protocol must be 2 or 3, got %d", c.Protocol)
	}
	return nil
}
