package hydra

import (
	"github.com/ceyewan/hydra/metrics"
)

const (
	metricSent              = "hydra_messages_sent_total"
	metricReceived          = "hydra_messages_received_total"
	metricDropped           = "hydra_messages_dropped_total"
	metricHeartbeatFailures = "hydra_heartbeat_failures_total"
	metricQueueOps          = "hydra_queue_operations_total"
	metricInflight          = "hydra_handlers_inflight"
	metricPresenceLookup    = "hydra_presence_lookup_seconds"
)

// 标签取值
const (
	channelDirect    = "direct"
	channelBroadcast = "broadcast"

	dropInvalidAddress = "invalid_address"
	dropNoInstances    = "no_instances"
	dropDecode         = "decode"
	dropNoHandler      = "no_handler"
	dropOverload       = "overload"
	dropShutdown       = "shutdown"

	kindPresence = "presence"
	kindHealth   = "health"

	opEnqueue    = "enqueue"
	opDequeue    = "dequeue"
	opComplete   = "complete"
	opIncomplete = "incomplete"
)

type instruments struct {
	sent              metrics.Counter
	received          metrics.Counter
	dropped           metrics.Counter
	heartbeatFailures metrics.Counter
	queueOps          metrics.Counter
	inflight          metrics.Gauge
	presenceLookup    metrics.Histogram
}

func newInstruments(m metrics.Meter) (*instruments, error) {
	var (
		inst instruments
		err  error
	)
	counters := []struct {
		dst  *metrics.Counter
		name string
		desc string
	}{
		{&inst.sent, metricSent, "Messages published, by channel kind."},
		{&inst.received, metricReceived, "Messages received from subscriptions, by channel kind."},
		{&inst.dropped, metricDropped, "Messages not delivered, by reason."},
		{&inst.heartbeatFailures, metricHeartbeatFailures, "Failed heartbeat writes, by kind."},
		{&inst.queueOps, metricQueueOps, "Reliable queue operations, by op."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Counter(c.name, c.desc); err != nil {
			return nil, err
		}
	}

	if inst.inflight, err = m.Gauge(metricInflight, "Handler invocations currently running."); err != nil {
		return nil, err
	}
	if inst.presenceLookup, err = m.Histogram(metricPresenceLookup, "Latency of presence lookups.",
		metrics.WithUnit("s")); err != nil {
		return nil, err
	}
	return &inst, nil
}
