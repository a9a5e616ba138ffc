// Package zapadapter provides a logger that writes to a go.uber.org/zap.Logger.
package zapadapter

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	pljava "github.com/tada/pljava-sub010"
)

type Logger struct {
	logger *zap.Logger
}

func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (pl *Logger) Log(ctx context.Context, level pljava.LogLevel, msg string, data map[string]interface{}) {
	fields := make([]zapcore.Field, len(data))
	i := 0
	for k, v := range data {
		fields[i] = zap.Any(k, v)
		i++
	}

	switch level {
	case pljava.LogLevelTrace:
		pl.logger.Debug(msg, append(fields, zap.Stringer("PLJAVA_LOG_LEVEL", level))...)
	case pljava.LogLevelDebug:
		pl.logger.Debug(msg, fields...)
	case pljava.LogLevelInfo:
		pl.logger.Info(msg, fields...)
	case pljava.LogLevelWarn:
		pl.logger.Warn(msg, fields...)
	case pljava.LogLevelError:
		pl.logger.Error(msg, fields...)
	default:
		pl.logger.Error(msg, append(fields, zap.Stringer("INVALID_PLJAVA_LOG_LEVEL", level))...)
	}
}
