package hydra

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	"github.com/ceyewan/hydra/clog"
	"github.com/ceyewan/hydra/metrics"
	"github.com/ceyewan/hydra/trace"
	"github.com/ceyewan/hydra/umf"
)

// listen 订阅服务广播通道与实例直连通道，订阅确认后才返回
func (s *Service) listen(ctx, runCtx context.Context) error {
	channels := []struct {
		name string
		kind string
	}{
		{s.keys.broadcast(s.cfg.ServiceName), channelBroadcast},
		{s.keys.direct(s.cfg.ServiceName, s.instanceID), channelDirect},
	}

	for _, ch := range channels {
		ps := s.client.Subscribe(ctx, ch.name)
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return storeError(err, "subscribe "+ch.name)
		}
		s.subs = append(s.subs, ps)

		s.loops.Add(1)
		go s.receive(runCtx, ps, ch.kind)
	}
	return nil
}

// receive 读取一个订阅直到 Close，不可解码的消息记录后丢弃
func (s *Service) receive(ctx context.Context, ps *redis.PubSub, kind string) {
	defer s.loops.Done()

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			s.inst.received.Inc(ctx, metrics.L(metrics.LabelChannel, kind))

			env, err := umf.Parse([]byte(msg.Payload))
			if err != nil {
				s.dropped(ctx, dropDecode)
				s.logger.WarnContext(ctx, "drop undecodable message",
					clog.String("channel", msg.Channel), clog.Error(err))
				continue
			}
			s.dispatcher.dispatch(ctx, msg.Channel, env)
		}
	}
}

// dispatcher 把入站消息交给处理函数，并按策略限制并发
type dispatcher struct {
	policy  DispatchPolicy
	sem     *semaphore.Weighted
	handler func() Handler
	inst    *instruments
	logger  clog.Logger
	wg      sync.WaitGroup
}

func newDispatcher(policy DispatchPolicy, limit int, handler func() Handler, inst *instruments, logger clog.Logger) *dispatcher {
	d := &dispatcher{
		policy:  policy,
		handler: handler,
		inst:    inst,
		logger:  logger,
	}
	if policy != DispatchGrow {
		d.sem = semaphore.NewWeighted(int64(limit))
	}
	return d
}

// dispatch 不等待处理完成。block 策略下可能等待空闲槽位，
// 消息按到达顺序取得槽位，但处理函数的实际执行顺序不做保证。
func (d *dispatcher) dispatch(ctx context.Context, channel string, env *umf.Envelope) {
	h := d.handler()
	if h == nil {
		d.drop(ctx, dropNoHandler, env)
		return
	}

	switch d.policy {
	case DispatchBlock:
		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.drop(ctx, dropShutdown, env)
			return
		}
	case DispatchDrop:
		if !d.sem.TryAcquire(1) {
			d.drop(ctx, dropOverload, env)
			return
		}
	}

	d.wg.Add(1)
	go d.run(ctx, channel, h, env)
}

func (d *dispatcher) run(ctx context.Context, channel string, h Handler, env *umf.Envelope) {
	ctx, span := trace.StartProcess(ctx, channel, env.Mid, env.Headers)
	d.inst.inflight.Inc(ctx)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("handler panic: %v", r)
			trace.MarkSpanError(span, err)
			d.logger.ErrorContext(ctx, "handler panic",
				clog.String("mid", env.Mid),
				clog.Error(err))
		}
		span.End()
		d.inst.inflight.Dec(ctx)
		if d.sem != nil {
			d.sem.Release(1)
		}
		d.wg.Done()
	}()
	h(ctx, env)
}

func (d *dispatcher) drop(ctx context.Context, reason string, env *umf.Envelope) {
	d.inst.dropped.Inc(ctx, metrics.L(metrics.LabelReason, reason))
	d.logger.DebugContext(ctx, "inbound message dropped",
		clog.String("reason", reason), clog.String("mid", env.Mid))
}

// wait 等待所有进行中的处理函数返回
func (d *dispatcher) wait() {
	d.wg.Wait()
}
