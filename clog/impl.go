package clog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"
)

type loggerImpl struct {
	handler slog.Handler
	opts    *options
	attrs   []slog.Attr
}

func newLogger(config *Config, opts *options) (Logger, error) {
	handler, err := newHandler(config, opts)
	if err != nil {
		return nil, err
	}
	return &loggerImpl{handler: handler, opts: opts}, nil
}

func (l *loggerImpl) Debug(msg string, fields ...Field) { l.log(context.Background(), DebugLevel, msg, fields) }
func (l *loggerImpl) Info(msg string, fields ...Field)  { l.log(context.Background(), InfoLevel, msg, fields) }
func (l *loggerImpl) Warn(msg string, fields ...Field)  { l.log(context.Background(), WarnLevel, msg, fields) }
func (l *loggerImpl) Error(msg string, fields ...Field) { l.log(context.Background(), ErrorLevel, msg, fields) }
func (l *loggerImpl) Fatal(msg string, fields ...Field) { l.log(context.Background(), FatalLevel, msg, fields) }

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

// FatalContext 写出后以状态码 1 退出进程
func (l *loggerImpl) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, FatalLevel, msg, fields)
}

// WithNamespace 返回子 Logger，命名空间在父级之后追加
func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	opts := *l.opts
	opts.namespace = append(slices.Clone(l.opts.namespace), parts...)
	return &loggerImpl{handler: l.handler, opts: &opts, attrs: l.attrs}
}

func (l *loggerImpl) With(fields ...Field) Logger {
	return &loggerImpl{handler: l.handler, opts: l.opts, attrs: append(slices.Clone(l.attrs), fields...)}
}

func (l *loggerImpl) log(ctx context.Context, level Level, msg string, fields []Field) {
	if !l.handler.Enabled(ctx, level.slogLevel()) {
		return
	}

	// 跳过 runtime.Callers、log 与公开方法本身
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), level.slogLevel(), msg, pcs[0])
	record.AddAttrs(l.attrs...)
	record.AddAttrs(fields...)
	record.AddAttrs(contextAttrs(ctx, l.opts)...)
	if len(l.opts.namespace) > 0 {
		record.AddAttrs(slog.String(NamespaceKey, strings.Join(l.opts.namespace, ".")))
	}

	if err := l.handler.Handle(ctx, record); err != nil {
		return
	}
	if level == FatalLevel {
		os.Exit(1)
	}
}

func (l *loggerImpl) SetLevel(level Level) error {
	if h, ok := l.handler.(interface{ SetLevel(Level) error }); ok {
		return h.SetLevel(level)
	}
	return nil
}

func (l *loggerImpl) Flush() {
	if h, ok := l.handler.(interface{ Flush() }); ok {
		h.Flush()
	}
}
