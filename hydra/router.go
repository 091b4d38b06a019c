package hydra

import (
	"context"

	"github.com/ceyewan/hydra/clog"
	"github.com/ceyewan/hydra/internal/jsoncodec"
	"github.com/ceyewan/hydra/metrics"
	"github.com/ceyewan/hydra/trace"
	"github.com/ceyewan/hydra/umf"
	"github.com/ceyewan/hydra/xerrors"
)

// loggingService 集中日志服务，Log 会向它广播
const loggingService = "hydra-logging-svcs"

// SendMessage 按 to 地址投递：先查询存活实例，为空时静默返回 nil；
// 指定实例时直接发往该实例通道（不校验它是否在存活集合中），否则随机选一个。
func (s *Service) SendMessage(ctx context.Context, env *umf.Envelope) error {
	addr, err := s.resolve(ctx, env)
	if err != nil {
		return err
	}

	live, err := s.GetPresence(ctx, addr.ServiceName)
	if err != nil {
		return err
	}
	if len(live) == 0 {
		s.dropped(ctx, dropNoInstances)
		s.logger.DebugContext(ctx, "no live instances, message discarded",
			clog.String("to", env.To), clog.String("mid", env.Mid))
		return nil
	}
	instance := addr.Instance
	if instance == "" {
		instance = live[0].InstanceID
	}
	return s.publish(ctx, s.keys.direct(addr.ServiceName, instance), channelDirect, env)
}

// SendBroadcastMessage 发往服务的广播通道，所有订阅实例都会收到
func (s *Service) SendBroadcastMessage(ctx context.Context, env *umf.Envelope) error {
	addr, err := s.resolve(ctx, env)
	if err != nil {
		return err
	}
	return s.publish(ctx, s.keys.broadcast(addr.ServiceName), channelBroadcast, env)
}

// SendMessageReply 回复 original：发往其 via（缺失时 from），rmid 指向原 mid
func (s *Service) SendMessageReply(ctx context.Context, original *umf.Envelope, reply map[string]any) error {
	if original == nil {
		return xerrors.Wrap(ErrInvalidMessage, "original message is nil")
	}
	env, err := original.Reply(reply)
	if err != nil {
		return err
	}
	return s.SendMessage(ctx, env)
}

// Log 记录本地日志并广播给 hydra-logging-svcs。
// text 为空时报文不含 message，entry 为 nil 时 bdy 为空对象。
// fatal 级别按 error 记录，不会退出进程。
func (s *Service) Log(ctx context.Context, severity string, entry any, text string) error {
	fields := []clog.Field{clog.String("severity", severity), clog.Any("entry", entry)}
	switch severity {
	case SeverityTrace, SeverityDebug:
		s.logger.DebugContext(ctx, text, fields...)
	case SeverityInfo:
		s.logger.InfoContext(ctx, text, fields...)
	case SeverityWarn:
		s.logger.WarnContext(ctx, text, fields...)
	default:
		s.logger.ErrorContext(ctx, text, fields...)
	}

	if entry == nil {
		entry = map[string]any{}
	}
	body := map[string]any{
		"serviceName": s.cfg.ServiceName,
		"version":     s.cfg.ServiceVersion,
		"instanceID":  s.instanceID,
		"severity":    severity,
		"bdy":         entry,
	}
	if text != "" {
		body["message"] = text
	}
	env, err := umf.Build(map[string]any{
		"to":   loggingService + ":/",
		"from": s.cfg.ServiceName + ":/",
		"body": body,
	})
	if err != nil {
		return err
	}
	return s.SendBroadcastMessage(ctx, env)
}

// resolve 校验信封并解析 to 地址，失败时不发生任何写入
func (s *Service) resolve(ctx context.Context, env *umf.Envelope) (umf.Address, error) {
	if env == nil {
		s.dropped(ctx, dropInvalidAddress)
		return umf.Address{}, invalidMessage(xerrors.Wrap(ErrInvalidMessage, "message is nil"))
	}
	addr := umf.ParseAddress(env.To)
	if err := addr.Err(); err != nil {
		s.dropped(ctx, dropInvalidAddress)
		return addr, invalidAddress(err)
	}
	return addr, nil
}

// publish 发布到通道，当前链路通过 headers 中的 traceparent 传给订阅端
func (s *Service) publish(ctx context.Context, channel, kind string, env *umf.Envelope) (err error) {
	ctx, span, headers := trace.StartPublish(ctx, channel, env.Mid, env.Headers)
	defer func() {
		trace.MarkSpanError(span, err)
		span.End()
	}()
	if span.SpanContext().IsValid() {
		env = env.WithHeaders(headers)
	}

	data, err := jsoncodec.Marshal(env)
	if err != nil {
		return xerrors.Wrap(err, "hydra: encode message")
	}
	if err := s.client.Publish(ctx, channel, data).Err(); err != nil {
		return storeError(err, "publish")
	}
	s.inst.sent.Inc(ctx, metrics.L(metrics.LabelChannel, kind))
	return nil
}

func (s *Service) dropped(ctx context.Context, reason string) {
	s.inst.dropped.Inc(ctx, metrics.L(metrics.LabelReason, reason))
}
