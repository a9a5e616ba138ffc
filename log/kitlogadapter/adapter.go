package kitlogadapter

import (
	"context"

	"github.com/go-kit/log"
	kitlevel "github.com/go-kit/log/level"

	pljava "github.com/tada/pljava-sub010"
)

type Logger struct {
	l log.Logger
}

func NewLogger(l log.Logger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) Log(ctx context.Context, level pljava.LogLevel, msg string, data map[string]interface{}) {
	logger := l.l
	for k, v := range data {
		logger = log.With(logger, k, v)
	}

	switch level {
	case pljava.LogLevelTrace:
		logger.Log("PLJAVA_LOG_LEVEL", level, "msg", msg)
	case pljava.LogLevelDebug:
		kitlevel.Debug(logger).Log("msg", msg)
	case pljava.LogLevelInfo:
		kitlevel.Info(logger).Log("msg", msg)
	case pljava.LogLevelWarn:
		kitlevel.Warn(logger).Log("msg", msg)
	case pljava.LogLevelError:
		kitlevel.Error(logger).Log("msg", msg)
	default:
		logger.Log("INVALID_PLJAVA_LOG_LEVEL", level, "error", msg)
	}
}
