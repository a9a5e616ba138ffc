package pljava

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// LogLevel represents the pljava logging level. It was chosen to be similar
// to the PostgreSQL log level names.
type LogLevel int

// The values for log levels are chosen such that the zero value means that
// no log level was specified.
const (
	LogLevelTrace = LogLevel(6)
	LogLevelDebug = LogLevel(5)
	LogLevelInfo  = LogLevel(4)
	LogLevelWarn  = LogLevel(3)
	LogLevelError = LogLevel(2)
	LogLevelNone  = LogLevel(1)
)

func (ll LogLevel) String() string {
	switch ll {
	case LogLevelTrace:
		return "trace"
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelNone:
		return "none"
	default:
		return fmt.Sprintf("invalid level %d", ll)
	}
}

// Logger is the interface used to get logging from pljava internals.
type Logger interface {
	// Log a message at the given level with data key/value pairs. data may
	// be nil.
	Log(ctx context.Context, level LogLevel, msg string, data map[string]interface{})
}

// LoggerFunc is a wrapper around a function to satisfy the Logger interface.
type LoggerFunc func(ctx context.Context, level LogLevel, msg string, data map[string]interface{})

// Log delegates the logging request to the wrapped function.
func (f LoggerFunc) Log(ctx context.Context, level LogLevel, msg string, data map[string]interface{}) {
	f(ctx, level, msg, data)
}

// LogLevelFromString converts log level string to constant
//
// Valid levels:
//	trace
//	debug
//	info
//	warn
//	error
//	none
func LogLevelFromString(s string) (LogLevel, error) {
	switch s {
	case "trace":
		return LogLevelTrace, nil
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warn":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "none":
		return LogLevelNone, nil
	default:
		return 0, errors.New("invalid log level")
	}
}

func (b *Backend) shouldLog(lvl LogLevel) bool {
	return b.logger != nil && b.logLevel >= lvl
}

func (b *Backend) log(ctx context.Context, lvl LogLevel, msg string, data map[string]interface{}) {
	if b.shouldLog(lvl) {
		b.logger.Log(ctx, lvl, msg, data)
	}
}
