package bapp

import (
	"github.com/advdv/bserve"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding, BS_LOG_LEVEL controls the level (debug, info, warn, error).
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogHandlerPanic(err error) {
	l.Logger.Error("recovered handler panic", zap.Error(err))
}

func (l zapLogger) LogProtocolError(err error) {
	l.Logger.Info("protocol error", zap.Error(err))
}

func (l zapLogger) LogConnError(err error) {
	l.Logger.Warn("connection error", zap.Error(err))
}

func newZapServeLogger(l *zap.Logger) bserve.Logger {
	return zapLogger{l.Named("bserve").Named("bapp")}
}
