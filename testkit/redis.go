package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/ceyewan/hydra/connector"
)

// NewMiniRedisConnector 启动进程内 Redis 并返回已连接的连接器。
// TTL 过期需要调用 mr.FastForward 推进时间。
func NewMiniRedisConnector(t *testing.T) (*miniredis.Miniredis, connector.RedisConnector) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, connect(t, &connector.RedisConfig{Name: "miniredis", Addr: mr.Addr()})
}

// NewRedisContainerConnector 使用 testcontainers 启动真实 Redis。
// -short 模式或 Docker 不可用时跳过测试。
func NewRedisContainerConnector(t *testing.T) connector.RedisConnector {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get redis container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("failed to get redis container port: %v", err)
	}

	return connect(t, &connector.RedisConfig{
		Name: "redis-container",
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	})
}

func connect(t *testing.T, cfg *connector.RedisConfig) connector.RedisConnector {
	t.Helper()
	conn, err := connector.NewRedis(cfg, connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create redis connector: %v", err)
	}
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
