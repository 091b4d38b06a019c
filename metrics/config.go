package metrics

import "github.com/ceyewan/hydra/xerrors"

// Config 指标系统配置
//
//	metrics:
//	  enabled: true
//	  service_name: "orders"
//	  version: "v1.2.3"
//	  port: 9090
//	  path: "/metrics"
//	  runtime: true
type Config struct {
	// Enabled 为 false 时 New 返回 Discard()
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 写入 OTel Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 写入 OTel Resource 的 service.version
	Version string `mapstructure:"version"`

	// Port 大于 0 时启动独立的 Prometheus HTTP 服务
	Port int `mapstructure:"port"`

	// Path 抓取路径，默认 /metrics
	Path string `mapstructure:"path"`

	// Runtime 是否采集 Go runtime 指标（goroutine、GC、内存）
	Runtime bool `mapstructure:"runtime"`
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "hydra"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return xerrors.Errorf("metrics: invalid port %d", c.Port)
	}
	if c.Path[0] != '/' {
		return xerrors.Errorf("metrics: path must start with '/': %q", c.Path)
	}
	return nil
}
