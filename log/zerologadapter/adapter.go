// Package zerologadapter provides a logger that writes to a github.com/rs/zerolog.
package zerologadapter

import (
	"context"

	"github.com/rs/zerolog"

	pljava "github.com/tada/pljava-sub010"
)

type Logger struct {
	logger zerolog.Logger
}

// NewLogger accepts a zerolog.Logger as input and returns a new custom pljava
// logging fascade as output.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger.With().Str("module", "pljava").Logger(),
	}
}

func (pl *Logger) Log(ctx context.Context, level pljava.LogLevel, msg string, data map[string]interface{}) {
	var zlevel zerolog.Level
	switch level {
	case pljava.LogLevelNone:
		zlevel = zerolog.NoLevel
	case pljava.LogLevelError:
		zlevel = zerolog.ErrorLevel
	case pljava.LogLevelWarn:
		zlevel = zerolog.WarnLevel
	case pljava.LogLevelInfo:
		zlevel = zerolog.InfoLevel
	case pljava.LogLevelDebug:
		zlevel = zerolog.DebugLevel
	default:
		zlevel = zerolog.DebugLevel
	}

	pllog := pl.logger.With().Fields(data).Logger()
	pllog.WithLevel(zlevel).Msg(msg)
}
