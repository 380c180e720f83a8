package log

import (
	"context"
	"sync"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, msg string, fields ...interface{})
	Error(ctx context.Context, msg string, fields ...interface{})
}

type logger struct {
	zap *otelzap.Logger
}

var (
	instance *otelzap.Logger
	once     sync.Once
)

func SetupLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Init wires the process-wide logger. Only the first call to Init, Setup or
// GetLogger has an effect.
func Init(l *zap.Logger) {
	once.Do(func() {
		instance = otelzap.New(l, otelzap.WithMinLevel(zapcore.InfoLevel))
	})
}

func GetLogger() Logger {
	return &logger{zap: Setup()}
}

// Setup returns the otelzap logger used by handlers and middleware.
func Setup() *otelzap.Logger {
	once.Do(func() {
		instance = otelzap.New(SetupLogger(), otelzap.WithMinLevel(zapcore.InfoLevel))
	})
	return instance
}

func (l *logger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.zap.Ctx(ctx).Info(msg, toFields(fields)...)
}

func (l *logger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.zap.Ctx(ctx).Warn(msg, toFields(fields)...)
}

func (l *logger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.zap.Ctx(ctx).Error(msg, toFields(fields)...)
}

func toFields(fields []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.(type) {
		case zap.Field:
			out = append(out, v)
		case error:
			out = append(out, zap.Error(v))
		default:
			out = append(out, zap.Any("detail", v))
		}
	}
	return out
}
