// Package log provides a structured logging interface for CReSO machine
// learning operations.
//
// The interface is intentionally small: structured key-value logging with
// level filtering and field chaining, backed by zerolog. Library code logs
// through this interface and never configures output itself; the default
// logger discards everything until the host application installs one.
//
// Progress reporting during training is a separate concern: the trainer
// writes line-oriented progress to its own sink (see the creso package) and
// never routes it through this logger.
package log

import (
	"context"
)

// Logger defines a structured logging interface with level filtering.
//
// The interface supports field chaining through With, allowing creation of
// contextual loggers with pre-populated fields:
//
//	logger := log.GetLogger().With(
//	    log.ModelNameKey, "CReSOClassifier",
//	)
//	logger.Info("training started",
//	    log.OperationKey, "fit",
//	    log.SamplesKey, 1000,
//	)
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If the first field is an error, stack trace information extracted
	// from cockroachdb/errors is attached automatically.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, value-compatible with slog.Level.
type Level int

// Standard logging levels.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
