// Package hydra 实现基于 Redis 的服务网格基础能力。
//
// 每个进程持有一个 Service：
//   - 心跳：周期性写入带 TTL 的 presence 键与实例索引，每 N 次附带健康快照
//   - 路由表：RegisterRoutes 整体替换服务的路由集合并通知 hydra-router 刷新
//   - 消息：按 UMF 地址直连（随机选取存活实例）、广播或回复
//   - 订阅：服务级与实例级两个 pub/sub 通道，入站消息交给 Handler
//   - 可靠队列：received → in-progress → incomplete 三列表模式，手动确认
//
// 基本使用：
//
//	conn, _ := connector.NewRedis(&cfg.Redis, connector.WithLogger(logger))
//	defer conn.Close()
//	_ = conn.Connect(ctx)
//
//	svc, _ := hydra.New(conn, &cfg.Hydra,
//		hydra.WithLogger(logger),
//		hydra.WithHandler(func(ctx context.Context, env *umf.Envelope) {
//			logger.Info("received", clog.String("mid", env.Mid))
//		}))
//	defer svc.Close()
//
//	info, err := svc.Init(ctx)
//	_ = svc.RegisterRoutes(ctx, []hydra.Route{{Path: "/v1/orders", Methods: []string{"GET"}}})
//
// 设计约束：
//   - 借用模型：Service 借用 Redis 连接器，不负责其生命周期
//   - 没有主动注销：Close 只停止后台任务，presence 键依靠 TTL 自然过期
//   - 尽力而为：地址或校验错误以哨兵错误返回，不写入任何数据
package hydra

import (
	"context"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/hydra/clog"
	"github.com/ceyewan/hydra/connector"
	"github.com/ceyewan/hydra/internal/jsoncodec"
	"github.com/ceyewan/hydra/umf"
	"github.com/ceyewan/hydra/xerrors"
)

// Service 一个服务实例。所有方法并发安全。
type Service struct {
	cfg     *Config
	client  *redis.Client
	keys    keyspace
	logger  clog.Logger
	inst    *instruments
	sampler HealthSampler
	handler atomic.Pointer[Handler]

	instanceID string
	ip         string
	hostName   string
	pid        int

	state      atomic.Int32
	mu         sync.Mutex
	cancel     context.CancelFunc
	subs       []*redis.PubSub
	loops      sync.WaitGroup
	dispatcher *dispatcher

	// ticks 只由心跳 goroutine 访问（Init 中的首次心跳发生在其启动之前）
	ticks int
}

// New 创建 Service，instanceID 在此生成并在其生命周期内保持不变。
// 不会访问 Redis，调用 Init 后实例才可被发现。
func New(conn connector.RedisConnector, cfg *Config, opts ...Option) (*Service, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "redis connector is required")
	}
	if cfg == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "config is required")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	inst, err := newInstruments(opt.meter)
	if err != nil {
		return nil, xerrors.Wrap(err, "hydra: create metrics")
	}

	hostName, _ := os.Hostname()
	s := &Service{
		cfg:        cfg,
		client:     conn.GetClient(),
		keys:       keyspace{prefix: cfg.KeyPrefix},
		inst:       inst,
		sampler:    opt.sampler,
		instanceID: strings.ReplaceAll(uuid.NewString(), "-", ""),
		ip:         resolveIP(cfg),
		hostName:   hostName,
		pid:        os.Getpid(),
	}
	s.logger = opt.logger.With(
		clog.String("service", cfg.ServiceName),
		clog.String("instance_id", s.instanceID),
	)
	s.dispatcher = newDispatcher(cfg.DispatchPolicy, cfg.MaxConcurrentHandlers, s.currentHandler, inst, s.logger)
	if opt.handler != nil {
		s.SetHandler(opt.handler)
	}
	return s, nil
}

// Init 写入服务描述、打开两个订阅、完成首次心跳并启动后台心跳。
// 任一步失败都会回滚已打开的订阅并返回错误，此时可以重试。
func (s *Service) Init(ctx context.Context) (ServiceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.CompareAndSwap(int32(StateUnregistered), int32(StateRegistering)) {
		if s.State() == StateClosed {
			return ServiceInfo{}, ErrClosed
		}
		return ServiceInfo{}, ErrAlreadyInitialized
	}

	runCtx, cancel := context.WithCancel(context.Background())
	fail := func(err error) (ServiceInfo, error) {
		cancel()
		s.closeSubscriptions()
		s.loops.Wait()
		s.state.Store(int32(StateUnregistered))
		s.logger.Error("service init failed", clog.ErrorWithCode(err, xerrors.GetCode(err)))
		return ServiceInfo{}, err
	}

	if err := s.registerService(ctx); err != nil {
		return fail(err)
	}
	if err := s.listen(ctx, runCtx); err != nil {
		return fail(err)
	}
	if err := s.beat(ctx); err != nil {
		return fail(err)
	}

	s.cancel = cancel
	s.loops.Add(1)
	go s.heartbeat(runCtx)

	s.state.Store(int32(StateActive))
	s.logger.Info("service registered",
		clog.String("ip", s.ip),
		clog.Int("port", s.cfg.ServicePort),
		clog.Duration("presence_interval", s.cfg.PresenceInterval))
	return s.ServiceInfo(), nil
}

// Close 停止心跳与订阅并等待进行中的处理函数返回，不可在 Handler 内同步调用。
// 不删除任何键，presence 在 3 倍心跳周期后自然过期。
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if State(s.state.Swap(int32(StateClosed))) == StateClosed {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	err := s.closeSubscriptions()
	s.loops.Wait()
	s.dispatcher.wait()
	s.logger.Info("service closed")
	return err
}

func (s *Service) closeSubscriptions() error {
	var errs []error
	for _, ps := range s.subs {
		errs = append(errs, ps.Close())
	}
	s.subs = nil
	return xerrors.Combine(errs...)
}

func (s *Service) registerService(ctx context.Context) error {
	data, err := jsoncodec.Marshal(serviceDescriptor{
		ServiceName:  s.cfg.ServiceName,
		Type:         s.cfg.ServiceType,
		RegisteredOn: umf.Timestamp(),
	})
	if err != nil {
		return xerrors.Wrap(err, "hydra: encode service descriptor")
	}
	if err := s.client.Set(ctx, s.keys.service(s.cfg.ServiceName), data, 0).Err(); err != nil {
		return storeError(err, "register service")
	}
	return nil
}

// State 返回当前生命周期状态
func (s *Service) State() State {
	return State(s.state.Load())
}

// InstanceID 返回本实例的 ID（32 位十六进制）
func (s *Service) InstanceID() string {
	return s.instanceID
}

// ServiceInfo 返回本实例摘要
func (s *Service) ServiceInfo() ServiceInfo {
	return ServiceInfo{
		ServiceName:    s.cfg.ServiceName,
		ServiceIP:      s.ip,
		ServicePort:    s.cfg.ServicePort,
		InstanceID:     s.instanceID,
		ServiceVersion: s.cfg.ServiceVersion,
	}
}

// SetHandler 设置或替换入站消息处理函数，nil 表示丢弃入站消息
func (s *Service) SetHandler(h Handler) {
	if h == nil {
		s.handler.Store(nil)
		return
	}
	s.handler.Store(&h)
}

func (s *Service) currentHandler() Handler {
	if p := s.handler.Load(); p != nil {
		return *p
	}
	return nil
}

// resolveIP serviceDNS 优先，其次 serviceIP，最后取第一个非回环 IPv4
func resolveIP(cfg *Config) string {
	if cfg.ServiceDNS != "" {
		return cfg.ServiceDNS
	}
	if cfg.ServiceIP != "" {
		return cfg.ServiceIP
	}
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return "127.0.0.1"
}

func since(start time.Time) float64 {
	return time.Since(start).Seconds()
}
