package logger

import (
	"github.com/ideamans/go-l10n"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/user/frame2prompt/pkg/ports"
)

// StructuredLogger writes JSON log lines through zap.
// Messages are translated like the console logger; the component becomes the logger name.
type StructuredLogger struct {
	base *zap.Logger
}

// NewStructured creates a JSON logger on stderr at the given level.
func NewStructured(level ports.LogLevel) (*StructuredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &StructuredLogger{base: base}, nil
}

// NewStructuredFromZap wraps an existing zap logger.
func NewStructuredFromZap(base *zap.Logger) *StructuredLogger {
	return &StructuredLogger{base: base}
}

func (l *StructuredLogger) Debug(msg string, args ...interface{}) {
	l.base.Debug(l10n.F(msg, args...), zap.String("key", msg))
}

func (l *StructuredLogger) Info(msg string, args ...interface{}) {
	l.base.Info(l10n.F(msg, args...), zap.String("key", msg))
}

func (l *StructuredLogger) Warn(msg string, args ...interface{}) {
	l.base.Warn(l10n.F(msg, args...), zap.String("key", msg))
}

func (l *StructuredLogger) Error(msg string, args ...interface{}) {
	l.base.Error(l10n.F(msg, args...), zap.String("key", msg))
}

// WithComponent returns a logger named after the component.
func (l *StructuredLogger) WithComponent(component string) ports.Logger {
	return &StructuredLogger{base: l.base.Named(component)}
}

// Sync flushes buffered log entries.
func (l *StructuredLogger) Sync() error {
	return l.base.Sync()
}

func zapLevel(level ports.LogLevel) zapcore.Level {
	switch level {
	case ports.LevelDebug:
		return zapcore.DebugLevel
	case ports.LevelWarn:
		return zapcore.WarnLevel
	case ports.LevelError:
		return zapcore.ErrorLevel
	case ports.LevelQuiet:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

var _ ports.Logger = (*StructuredLogger)(nil)
