// Package observability defines shared logging primitives.
package observability

import "sync/atomic"

// Logger captures structured logging behaviours shared across layers.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key/value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

type loggerBox struct{ Logger }

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(loggerBox{noopLogger{}})
}

// SetLogger overrides the global logger used by the client.
func SetLogger(logger Logger) {
	if logger == nil {
		defaultLogger.Store(loggerBox{noopLogger{}})
		return
	}
	defaultLogger.Store(loggerBox{logger})
}

// Log returns the current global logger instance.
func Log() Logger {
	return defaultLogger.Load().(loggerBox).Logger
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Warn(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}
