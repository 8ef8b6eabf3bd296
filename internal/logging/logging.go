// Package logging builds the zap logger and logs lifecycle events published
// on the event bus.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	eventbus "github.com/hanpama/envelope/internal/eventbus"
	events "github.com/hanpama/envelope/internal/events"
	reqid "github.com/hanpama/envelope/internal/reqid"
)

type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	// File, when set, also writes rotated logs to this path.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a logger writing to stderr and, when configured, to a rotated
// file.
func New(cfg Config) (*zap.Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg Config, console io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if cfg.Level == "" {
		level, err = zapcore.InfoLevel, nil
	}
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "", "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.AddSync(console), level)}
	if cfg.File != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// Subscribe logs HTTP, GraphQL and plugin hook events from the global bus.
// The returned function removes the subscriptions.
func Subscribe(log *zap.Logger) (unsubscribe func()) {
	with := func(ctx context.Context) *zap.Logger {
		if rid, ok := reqid.FromContext(ctx); ok {
			return log.With(zap.String("request_id", rid))
		}
		return log
	}

	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			with(ctx).Info("http request",
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			l := with(ctx)
			fields := []zap.Field{
				zap.String("operation", e.OperationName),
				zap.String("type", e.OperationType),
				zap.Int("errors", len(e.Errors)),
				zap.Duration("duration", e.Duration),
			}
			if len(e.Errors) > 0 {
				l.Warn("graphql operation", append(fields, zap.Errors("error_list", e.Errors))...)
				return
			}
			l.Debug("graphql operation", fields...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.ContextBuildingFinish) {
			l := with(ctx)
			if e.Err != nil {
				l.Error("context building failed", zap.Error(e.Err), zap.Duration("duration", e.Duration))
				return
			}
			l.Debug("context built", zap.Int("keys", e.Keys), zap.Duration("duration", e.Duration))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.HookFinish) {
			if e.Err == nil {
				return
			}
			with(ctx).Warn("plugin hook failed",
				zap.String("plugin", e.Plugin),
				zap.String("phase", e.Phase),
				zap.Error(e.Err))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
