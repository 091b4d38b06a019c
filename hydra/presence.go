package hydra

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/hydra/clog"
	"github.com/ceyewan/hydra/internal/jsoncodec"
	"github.com/ceyewan/hydra/metrics"
	"github.com/ceyewan/hydra/umf"
	"github.com/ceyewan/hydra/xerrors"
)

// healthLogTTL health:log 过期标记的保留时间
const healthLogTTL = 7 * 24 * time.Hour

// scanCount SCAN 每批的提示数量
const scanCount = 100

// heartbeat 周期执行 beat，tick 串行执行不会重叠
func (s *Service) heartbeat(ctx context.Context) {
	defer s.loops.Done()

	ticker := time.NewTicker(s.cfg.PresenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// 失败已记录，下一次 tick 自愈
			_ = s.beat(ctx)
		}
	}
}

// beat 一次心跳：presence 总是写入，每 HealthEvery 次附带健康快照
func (s *Service) beat(ctx context.Context) error {
	if err := s.presenceUpdate(ctx); err != nil {
		return err
	}

	s.ticks++
	if s.ticks%s.cfg.HealthEvery != 0 {
		return nil
	}
	s.ticks = 0
	// 健康上报失败不影响存活
	_ = s.healthUpdate(ctx)
	return nil
}

func (s *Service) presenceUpdate(ctx context.Context) error {
	entry := ServiceInstance{
		ServiceName:        s.cfg.ServiceName,
		ServiceDescription: s.cfg.ServiceDescription,
		Version:            s.cfg.ServiceVersion,
		InstanceID:         s.instanceID,
		ProcessID:          s.pid,
		IP:                 s.ip,
		Port:               s.cfg.ServicePort,
		HostName:           s.hostName,
		UpdatedOn:          umf.Timestamp(),
	}
	data, err := jsoncodec.Marshal(entry)
	if err != nil {
		return s.heartbeatFailed(ctx, kindPresence, xerrors.Wrap(err, "hydra: encode presence"))
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.presence(s.cfg.ServiceName, s.instanceID), s.instanceID, s.cfg.presenceTTL())
		pipe.HSet(ctx, s.keys.nodes(), s.instanceID, data)
		return nil
	})
	if err != nil {
		return s.heartbeatFailed(ctx, kindPresence, storeError(err, "presence update"))
	}
	return nil
}

func (s *Service) healthUpdate(ctx context.Context) error {
	snap, err := s.GetHealth(ctx)
	if err != nil {
		// 部分采样失败时仍然上报已有字段
		s.logger.WarnContext(ctx, "health sample incomplete", clog.Error(err))
	}
	data, err := jsoncodec.Marshal(snap)
	if err != nil {
		return s.heartbeatFailed(ctx, kindHealth, xerrors.Wrap(err, "hydra: encode health"))
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.health(s.cfg.ServiceName, s.instanceID), data, s.cfg.presenceTTL())
		pipe.Expire(ctx, s.keys.healthLog(s.cfg.ServiceName, s.instanceID), healthLogTTL)
		return nil
	})
	if err != nil {
		return s.heartbeatFailed(ctx, kindHealth, storeError(err, "health update"))
	}
	return nil
}

func (s *Service) heartbeatFailed(ctx context.Context, kind string, err error) error {
	s.inst.heartbeatFailures.Inc(ctx, metrics.L(metrics.LabelKind, kind))
	s.logger.WarnContext(ctx, "heartbeat write failed",
		clog.String("kind", kind),
		clog.ErrorWithCode(err, xerrors.GetCode(err)))
	return err
}

// GetHealth 采集一次本实例的健康快照。采样出错时仍返回已采集的部分。
func (s *Service) GetHealth(ctx context.Context) (HealthSnapshot, error) {
	snap, err := s.sampler(ctx)
	snap.ServiceName = s.cfg.ServiceName
	snap.InstanceID = s.instanceID
	if snap.HostName == "" {
		snap.HostName = s.hostName
	}
	if snap.ProcessID == 0 {
		snap.ProcessID = s.pid
	}
	if snap.SampledOn == "" {
		snap.SampledOn = umf.Timestamp()
	}
	return snap, err
}

// GetPresence 返回服务当前存活的实例，顺序随机。
// presence 已过期或索引中缺少记录的实例被忽略。
func (s *Service) GetPresence(ctx context.Context, serviceName string) ([]ServiceInstance, error) {
	start := time.Now()
	defer func() {
		s.inst.presenceLookup.Record(ctx, since(start), metrics.L(metrics.LabelService, serviceName))
	}()

	seen := make(map[string]struct{})
	var ids []string
	iter := s.client.Scan(ctx, 0, s.keys.presencePattern(serviceName), scanCount).Iterator()
	for iter.Next(ctx) {
		id := s.keys.instanceFromPresence(serviceName, iter.Val())
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, storeError(err, "scan presence")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, s.keys.nodes(), ids...).Result()
	if err != nil {
		return nil, storeError(err, "read instance index")
	}

	instances := make([]ServiceInstance, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry ServiceInstance
		if err := jsoncodec.UnmarshalString(raw, &entry); err != nil {
			s.logger.WarnContext(ctx, "skip malformed instance record",
				clog.String("instance_id", ids[i]), clog.Error(err))
			continue
		}
		if ts, err := umf.ParseTimestamp(entry.UpdatedOn); err == nil {
			entry.UpdatedOnTS = ts.Unix()
		}
		instances = append(instances, entry)
	}

	rand.Shuffle(len(instances), func(i, j int) {
		instances[i], instances[j] = instances[j], instances[i]
	})
	return instances, nil
}
