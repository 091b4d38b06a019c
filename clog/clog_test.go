package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type ctxKey string

func newBufferLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger, err := New(&Config{Level: level, Format: "json", Output: "buffer"}, append(opts, WithBuffer(buf))...)
	require.NoError(t, err)
	return logger, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

// TestNew 测试 Logger 创建
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "valid config", config: &Config{Level: "info", Format: "console", Output: "stdout"}},
		{name: "nil config", config: nil},
		{name: "invalid level", config: &Config{Level: "verbose"}, wantErr: true},
		{name: "invalid format", config: &Config{Level: "info", Format: "xml"}, wantErr: true},
		{name: "buffer without option", config: &Config{Output: "buffer"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestMust(t *testing.T) {
	assert.NotNil(t, Must(&Config{Level: "debug"}))
	assert.Panics(t, func() { Must(&Config{Level: "verbose"}) })
}

func TestLogger_JSONFields(t *testing.T) {
	logger, buf := newBufferLogger(t, "debug", WithNamespace("hydra"))

	logger.With(String("instance_id", "abc")).
		WithNamespace("listener").
		Info("message dispatched", Int("count", 3), Error(errors.New("boom")))

	out := decodeLine(t, buf)
	assert.Equal(t, "INFO", out["level"])
	assert.Equal(t, "message dispatched", out["msg"])
	assert.Equal(t, "hydra.listener", out[NamespaceKey])
	assert.Equal(t, "abc", out["instance_id"])
	assert.Equal(t, float64(3), out["count"])
	assert.Equal(t, "boom", out["err_msg"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, "warn")

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	require.NoError(t, logger.SetLevel(DebugLevel))
	logger.Debug("visible")
	assert.Equal(t, "DEBUG", decodeLine(t, buf)["level"])
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", WithContextField(ctxKey("mid"), "mid"))

	ctx := context.WithValue(context.Background(), ctxKey("mid"), "m-1")
	logger.InfoContext(ctx, "received")

	assert.Equal(t, "m-1", decodeLine(t, buf)["mid"])
}

func TestLogger_WithDoesNotLeak(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")

	_ = logger.With(String("child", "yes"))
	logger.Info("parent")

	_, ok := decodeLine(t, buf)["child"]
	assert.False(t, ok)
}

func TestErrorWithCode(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")
	logger.Error("failed", ErrorWithCode(errors.New("down"), "STORE_UNAVAILABLE"))

	group, ok := decodeLine(t, buf)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "down", group["msg"])
	assert.Equal(t, "STORE_UNAVAILABLE", group["code"])
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("ERROR")
	require.NoError(t, err)
	assert.Equal(t, ErrorLevel, level)

	_, err = ParseLevel("nope")
	assert.Error(t, err)
	assert.Equal(t, "fatal", FatalLevel.String())
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info("nothing")
	assert.Equal(t, l, l.With(String("a", "b")).WithNamespace("x"))
	assert.NoError(t, l.SetLevel(DebugLevel))
}

func TestLogger_TraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("clog").Start(context.Background(), "hydra.process")
	defer span.End()

	logger, buf := newBufferLogger(t, "info", WithTraceContext())
	logger.InfoContext(ctx, "handled")
	out := decodeLine(t, buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), out[TraceIDKey])
	assert.Equal(t, span.SpanContext().SpanID().String(), out[SpanIDKey])

	buf.Reset()
	logger.InfoContext(context.Background(), "no span")
	assert.NotContains(t, decodeLine(t, buf), TraceIDKey)

	plain, plainBuf := newBufferLogger(t, "info")
	plain.InfoContext(ctx, "handled")
	assert.NotContains(t, decodeLine(t, plainBuf), TraceIDKey)
}
