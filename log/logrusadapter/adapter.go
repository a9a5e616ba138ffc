// Package logrusadapter provides a logger that writes to a github.com/sirupsen/logrus.Logger
// log.
package logrusadapter

import (
	"context"

	"github.com/sirupsen/logrus"

	pljava "github.com/tada/pljava-sub010"
)

type Logger struct {
	l logrus.FieldLogger
}

func NewLogger(l logrus.FieldLogger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) Log(ctx context.Context, level pljava.LogLevel, msg string, data map[string]interface{}) {
	var logger logrus.FieldLogger
	if data != nil {
		logger = l.l.WithFields(data)
	} else {
		logger = l.l
	}

	switch level {
	case pljava.LogLevelTrace:
		logger.WithField("PLJAVA_LOG_LEVEL", level).Debug(msg)
	case pljava.LogLevelDebug:
		logger.Debug(msg)
	case pljava.LogLevelInfo:
		logger.Info(msg)
	case pljava.LogLevelWarn:
		logger.Warn(msg)
	case pljava.LogLevelError:
		logger.Error(msg)
	default:
		logger.WithField("INVALID_PLJAVA_LOG_LEVEL", level).Error(msg)
	}
}
