package hydra

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/hydra/clog"
	"github.com/ceyewan/hydra/internal/jsoncodec"
	"github.com/ceyewan/hydra/metrics"
	"github.com/ceyewan/hydra/umf"
	"github.com/ceyewan/hydra/xerrors"
)

// defaultIncompleteReason 未给出原因时写入 body.reason 的值
const defaultIncompleteReason = "reason not specified"

// QueueMessage 将信封放入目标服务的 received 列表。
// 信封无效或地址无法解析时不写入任何数据。
func (s *Service) QueueMessage(ctx context.Context, env *umf.Envelope) error {
	if env == nil {
		return invalidMessage(xerrors.Wrap(ErrInvalidMessage, "message is nil"))
	}
	if err := env.Validate(); err != nil {
		return invalidMessage(err)
	}
	addr := umf.ParseAddress(env.To)
	if err := addr.Err(); err != nil {
		return invalidAddress(err)
	}

	data, err := jsoncodec.Marshal(env)
	if err != nil {
		return xerrors.Wrap(err, "hydra: encode message")
	}
	if err := s.client.LPush(ctx, s.keys.queue(addr.ServiceName, listReceived), data).Err(); err != nil {
		return storeError(err, "queue message")
	}
	s.queueOp(ctx, opEnqueue)
	return nil
}

// GetQueueMessage 原子地把最早的一条消息从 received 移到 in-progress 并返回。
// 队列为空时返回 (nil, nil)。
func (s *Service) GetQueueMessage(ctx context.Context, serviceName string) (*umf.Envelope, error) {
	raw, err := s.client.LMove(ctx,
		s.keys.queue(serviceName, listReceived),
		s.keys.queue(serviceName, listInProgress),
		"RIGHT", "LEFT",
	).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "dequeue message")
	}
	s.queueOp(ctx, opDequeue)

	env, err := umf.Parse([]byte(raw))
	if err != nil {
		// 条目留在 in-progress 中，由外部清理
		s.logger.WarnContext(ctx, "undecodable queue entry left in progress",
			clog.String("service", serviceName), clog.Error(err))
		return nil, err
	}
	return env, nil
}

// MarkQueueMessage 确认一条由 GetQueueMessage 取得的消息：从 in-progress 删除，
// 未完成时在 body.reason 写入原因并放入 incomplete。两步在同一事务中完成。
func (s *Service) MarkQueueMessage(ctx context.Context, env *umf.Envelope, completed bool, reason string) (*umf.Envelope, error) {
	if env == nil {
		return nil, invalidMessage(xerrors.Wrap(ErrInvalidMessage, "message is nil"))
	}
	addr := umf.ParseAddress(env.To)
	if err := addr.Err(); err != nil {
		return nil, invalidAddress(err)
	}

	raw := env.Raw()
	if raw == nil {
		data, err := jsoncodec.Marshal(env)
		if err != nil {
			return nil, xerrors.Wrap(err, "hydra: encode message")
		}
		raw = data
	}

	out := env
	var stamped []byte
	if !completed {
		if reason == "" {
			reason = defaultIncompleteReason
		}
		var err error
		if out, err = env.WithBodyField("reason", reason); err != nil {
			return nil, err
		}
		if stamped, err = jsoncodec.Marshal(out); err != nil {
			return nil, xerrors.Wrap(err, "hydra: encode message")
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, s.keys.queue(addr.ServiceName, listInProgress), 1, raw)
		if !completed {
			pipe.LPush(ctx, s.keys.queue(addr.ServiceName, listIncomplete), stamped)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "mark message")
	}

	if completed {
		s.queueOp(ctx, opComplete)
	} else {
		s.queueOp(ctx, opIncomplete)
	}
	return out, nil
}

func (s *Service) queueOp(ctx context.Context, op string) {
	s.inst.queueOps.Inc(ctx, metrics.L(metrics.LabelOp, op))
}
