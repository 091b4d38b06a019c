package hydra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/hydra/umf"
)

// subscribe 直接订阅一个通道，返回解码后的消息流
func (f *fixture) subscribe(t *testing.T, channel string) <-chan *umf.Envelope {
	t.Helper()
	ps := f.conn.GetClient().Subscribe(f.kit.Ctx, channel)
	_, err := ps.Receive(f.kit.Ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	out := make(chan *umf.Envelope, 16)
	go func() {
		for msg := range ps.Channel() {
			env, err := umf.Parse([]byte(msg.Payload))
			if err != nil {
				continue
			}
			out <- env
		}
	}()
	return out
}

func TestSendMessage_DirectToLiveInstance(t *testing.T) {
	f := newFixture(t)
	h, inbox := capture(4)
	f.start(t, "orders", WithHandler(h))
	sender := f.start(t, "gateway")

	env := mustBuild(t, map[string]any{
		"to":  "orders:[post]/v1/orders",
		"frm": "gateway:/",
		"bdy": map[string]any{"sku": "A-1"},
		"hdr": map[string]any{"trace": "t1"},
		"tmo": 30,
	})
	require.NoError(t, sender.SendMessage(f.kit.Ctx, env))

	got := receiveOne(t, inbox)
	assert.Equal(t, env.Mid, got.Mid)
	assert.Equal(t, "gateway:/", got.From)
	assert.Equal(t, "t1", got.Headers["trace"])
	timeout, ok := got.TimeoutSeconds()
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, timeout)

	var body map[string]string
	require.NoError(t, got.DecodeBody(&body))
	assert.Equal(t, "A-1", body["sku"])
}

func TestSendMessage_ExplicitInstanceIsNotVerified(t *testing.T) {
	f := newFixture(t)
	f.start(t, "ghost")
	sender := f.start(t, "gateway")
	raw := f.subscribe(t, "hydra:service:mc:ghost:abc123")

	env := mustBuild(t, map[string]any{
		"to":   "abc123-7@ghost:/v1/ping",
		"from": "gateway:/",
		"body": map[string]any{},
	})
	require.NoError(t, sender.SendMessage(f.kit.Ctx, env))
	assert.Equal(t, env.Mid, receiveOne(t, raw).Mid)
}

func TestSendMessage_ExplicitInstanceWithoutLiveServiceIsNoop(t *testing.T) {
	f := newFixture(t)
	sender := f.start(t, "gateway")
	raw := f.subscribe(t, "hydra:service:mc:ghost:abc123")

	env := mustBuild(t, map[string]any{"to": "abc123@ghost:/v1/ping", "from": "gateway:/", "body": 1})
	require.NoError(t, sender.SendMessage(f.kit.Ctx, env))
	assertNoMessage(t, raw)
	assert.Contains(t, scrape(t, f.kit.Meter), `reason="no_instances"`)
}

func TestSendMessage_NoLiveInstancesIsNoop(t *testing.T) {
	f := newFixture(t)
	sender := f.start(t, "gateway")

	env := mustBuild(t, map[string]any{"to": "nobody:/", "from": "gateway:/", "body": "x"})
	assert.NoError(t, sender.SendMessage(f.kit.Ctx, env))
	assert.Contains(t, scrape(t, f.kit.Meter), `reason="no_instances"`)
}

func TestSendMessage_InvalidAddress(t *testing.T) {
	f := newFixture(t)
	sender := f.start(t, "gateway")
	raw := f.subscribe(t, "hydra:service:mc:badaddress")

	for _, to := range []string{"badaddress", "", ":/v1"} {
		env := mustBuild(t, map[string]any{"to": to, "from": "gateway:/", "body": "x"})
		assert.ErrorIs(t, sender.SendMessage(f.kit.Ctx, env), ErrInvalidAddress, to)
		assert.ErrorIs(t, sender.SendBroadcastMessage(f.kit.Ctx, env), ErrInvalidAddress, to)
	}
	assert.ErrorIs(t, sender.SendMessage(f.kit.Ctx, nil), ErrInvalidMessage)
	assertNoMessage(t, raw)
}

func TestSendBroadcastMessage_ReachesEveryInstance(t *testing.T) {
	f := newFixture(t)
	h1, inbox1 := capture(4)
	h2, inbox2 := capture(4)
	f.start(t, "orders", WithHandler(h1))
	f.start(t, "orders", WithHandler(h2))
	sender := f.start(t, "gateway")

	env := mustBuild(t, map[string]any{"to": "orders:/flush", "from": "gateway:/", "body": map[string]any{}})
	require.NoError(t, sender.SendBroadcastMessage(f.kit.Ctx, env))

	assert.Equal(t, env.Mid, receiveOne(t, inbox1).Mid)
	assert.Equal(t, env.Mid, receiveOne(t, inbox2).Mid)
}

func TestSendMessageReply(t *testing.T) {
	f := newFixture(t)
	replies, inbox := capture(4)
	client := f.start(t, "client", WithHandler(replies))

	server := f.start(t, "server")
	server.SetHandler(func(_ context.Context, env *umf.Envelope) {
		_ = server.SendMessageReply(f.kit.Ctx, env, map[string]any{"bdy": map[string]any{"ok": true}})
	})

	req := mustBuild(t, map[string]any{
		"to":   "server:/v1/echo",
		"from": client.InstanceID() + "@client:/",
		"body": map[string]any{"ping": 1},
	})
	require.NoError(t, client.SendMessage(f.kit.Ctx, req))

	got := receiveOne(t, inbox)
	assert.Equal(t, req.Mid, got.Rmid)
	assert.Equal(t, "server:/v1/echo", got.From)
	assert.JSONEq(t, `{"ok":true}`, string(got.Body))

	assert.ErrorIs(t, server.SendMessageReply(f.kit.Ctx, nil, nil), ErrInvalidMessage)
}

func TestSendMessageReply_PrefersVia(t *testing.T) {
	f := newFixture(t)
	svc := f.start(t, "server")
	f.start(t, "proxy")
	raw := f.subscribe(t, "hydra:service:mc:proxy:p1")

	original := mustBuild(t, map[string]any{
		"to":   "server:/",
		"from": "client:/",
		"via":  "p1@proxy:/",
		"body": "hello",
	})
	require.NoError(t, svc.SendMessageReply(f.kit.Ctx, original, map[string]any{"body": "world"}))

	got := receiveOne(t, raw)
	assert.Equal(t, "p1@proxy:/", got.To)
	assert.Equal(t, original.Mid, got.Rmid)
}

func TestLog_BroadcastsToLoggingService(t *testing.T) {
	f := newFixture(t)
	svc := f.start(t, "orders")
	raw := f.subscribe(t, "hydra:service:mc:hydra-logging-svcs")

	require.NoError(t, svc.Log(f.kit.Ctx, SeverityError, map[string]any{"order": 7}, "payment failed"))

	got := receiveOne(t, raw)
	assert.Equal(t, "orders:/", got.From)
	assert.Equal(t, "hydra-logging-svcs:/", got.To)

	var body struct {
		ServiceName string         `json:"serviceName"`
		InstanceID  string         `json:"instanceID"`
		Severity    string         `json:"severity"`
		Message     string         `json:"message"`
		Entry       map[string]int `json:"bdy"`
	}
	require.NoError(t, got.DecodeBody(&body))
	assert.Equal(t, "orders", body.ServiceName)
	assert.Equal(t, svc.InstanceID(), body.InstanceID)
	assert.Equal(t, SeverityError, body.Severity)
	assert.Equal(t, "payment failed", body.Message)
	assert.Equal(t, 7, body.Entry["order"])
}

func TestLog_OmitsEmptyMessageAndDefaultsEntry(t *testing.T) {
	f := newFixture(t)
	svc := f.start(t, "orders")
	raw := f.subscribe(t, "hydra:service:mc:hydra-logging-svcs")

	require.NoError(t, svc.Log(f.kit.Ctx, SeverityInfo, nil, ""))

	got := receiveOne(t, raw)
	var body map[string]any
	require.NoError(t, got.DecodeBody(&body))
	assert.NotContains(t, body, "message")
	assert.Equal(t, map[string]any{}, body["bdy"])
	assert.Equal(t, SeverityInfo, body["severity"])
}

func TestPublish_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	svc := f.newService(t, "orders", nil)

	f.mr.SetError("ERR store down")
	env := mustBuild(t, map[string]any{"to": "i1@orders:/", "from": "x:/", "body": 1})
	err := svc.SendMessage(f.kit.Ctx, env)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	env = mustBuild(t, map[string]any{"to": "orders:/", "from": "x:/", "body": 1})
	assert.ErrorIs(t, svc.SendMessage(f.kit.Ctx, env), ErrStoreUnavailable, "presence lookup fails")
}

func TestSendMessage_PropagatesTraceContext(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	f := newFixture(t)
	h, inbox := capture(4)
	f.start(t, "orders", WithHandler(h))
	sender := f.start(t, "gateway")

	env := mustBuild(t, map[string]any{"to": "orders:/", "from": "gateway:/", "body": 1})
	require.NoError(t, sender.SendMessage(f.kit.Ctx, env))

	got := receiveOne(t, inbox)
	assert.NotEmpty(t, got.Headers["traceparent"])
	assert.Nil(t, env.Headers, "caller's envelope is not modified")

	assert.Eventually(t, func() bool {
		for _, span := range recorder.Ended() {
			if span.SpanKind() == oteltrace.SpanKindConsumer && len(span.Links()) == 1 {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}
