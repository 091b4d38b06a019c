package hydra

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/hydra/connector"
	"github.com/ceyewan/hydra/metrics"
	"github.com/ceyewan/hydra/testkit"
	"github.com/ceyewan/hydra/umf"
)

// fixture 一个 miniredis 上的多个服务共享同一个连接器
type fixture struct {
	kit  *testkit.Kit
	mr   *miniredis.Miniredis
	conn connector.RedisConnector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr, conn := testkit.NewMiniRedisConnector(t)
	return &fixture{kit: testkit.NewKit(t), mr: mr, conn: conn}
}

func stubSampler(context.Context) (HealthSnapshot, error) {
	return HealthSnapshot{Platform: "test", RuntimeVersion: "go-test"}, nil
}

// newService 创建未初始化的服务，测试结束时关闭
func (f *fixture) newService(t *testing.T, name string, mutate func(*Config), opts ...Option) *Service {
	t.Helper()
	cfg := &Config{
		ServiceName: name,
		ServiceIP:   "10.0.0.1",
		ServicePort: 8080,
	}
	if mutate != nil {
		mutate(cfg)
	}
	opts = append([]Option{
		WithLogger(f.kit.Logger),
		WithMeter(f.kit.Meter),
		WithHealthSampler(stubSampler),
	}, opts...)

	svc, err := New(f.conn, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

// start 创建并初始化服务
func (f *fixture) start(t *testing.T, name string, opts ...Option) *Service {
	t.Helper()
	svc := f.newService(t, name, nil, opts...)
	_, err := svc.Init(f.kit.Ctx)
	require.NoError(t, err)
	return svc
}

// capture 返回一个把入站消息写入 channel 的处理函数
func capture(size int) (Handler, chan *umf.Envelope) {
	ch := make(chan *umf.Envelope, size)
	return func(_ context.Context, env *umf.Envelope) {
		ch <- env
	}, ch
}

func receiveOne(t *testing.T, ch <-chan *umf.Envelope) *umf.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNoMessage(t *testing.T, ch <-chan *umf.Envelope) {
	t.Helper()
	select {
	case env := <-ch:
		t.Fatalf("unexpected message %s", env.Mid)
	case <-time.After(100 * time.Millisecond):
	}
}

func mustBuild(t *testing.T, fields map[string]any) *umf.Envelope {
	t.Helper()
	env, err := umf.Build(fields)
	require.NoError(t, err)
	return env
}

// scrape 读取 meter 暴露的 Prometheus 文本
func scrape(t *testing.T, m metrics.Meter) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
