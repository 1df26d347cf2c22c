// Package log implements an interface behind which a third-party,
// levelled logger sits, so the rest of dupenet depends on a small
// interface rather than on zap directly.
//
// Core packages (C1-C11) never call this package directly; they emit
// values (error-channel sends, transport LogLine frames) which the CLI
// driver and remote server adapt into log calls.
package log

import "go.uber.org/zap"

// Logger is the interface behind which a levelled logger can sit.
type Logger interface {
	// Sync flushes buffered log entries.
	Sync() error
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// ZapLogger is a Logger backed by zap.
type ZapLogger struct {
	inner *zap.SugaredLogger
}

// New builds a ZapLogger at the given level ("debug", "info", "warn",
// "error"). An unrecognized level falls back to "info".
func New(level string) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.DisableCaller = true

	var zl zap.AtomicLevel
	switch level {
	case "debug":
		zl = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zl = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zl = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = zl

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{inner: logger.Sugar()}, nil
}

func (z *ZapLogger) Sync() error { return z.inner.Sync() }

func (z *ZapLogger) Debug(format string, args ...any) { z.inner.Debugf(format, args...) }
func (z *ZapLogger) Info(format string, args ...any)  { z.inner.Infof(format, args...) }
func (z *ZapLogger) Warn(format string, args ...any)  { z.inner.Warnf(format, args...) }
func (z *ZapLogger) Error(format string, args ...any) { z.inner.Errorf(format, args...) }

// Nop is a Logger that discards everything, used in tests that don't
// care about log output.
type Nop struct{}

func (Nop) Sync() error               { return nil }
func (Nop) Debug(string, ...any)      {}
func (Nop) Info(string, ...any)       {}
func (Nop) Warn(string, ...any)       {}
func (Nop) Error(string, ...any)      {}
