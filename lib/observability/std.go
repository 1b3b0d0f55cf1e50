package observability

import (
	"fmt"
	"log"
	"strings"
)

// Level orders log severities.
type Level int

const (
	// LevelDebug enables every message.
	LevelDebug Level = iota
	// LevelInfo drops debug messages.
	LevelInfo
	// LevelWarn keeps warnings and errors.
	LevelWarn
	// LevelError keeps errors only.
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel maps a case-insensitive level name to a Level, defaulting to info.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// StdLogger writes key=value lines through a standard library logger.
type StdLogger struct {
	out *log.Logger
	min Level
}

// NewStdLogger wraps out, dropping messages below min.
func NewStdLogger(out *log.Logger, min Level) *StdLogger {
	if out == nil {
		out = log.Default()
	}
	return &StdLogger{out: out, min: min}
}

func (l *StdLogger) Debug(msg string, fields ...Field) { l.write(LevelDebug, msg, fields) }
func (l *StdLogger) Info(msg string, fields ...Field)  { l.write(LevelInfo, msg, fields) }
func (l *StdLogger) Warn(msg string, fields ...Field)  { l.write(LevelWarn, msg, fields) }
func (l *StdLogger) Error(msg string, fields ...Field) { l.write(LevelError, msg, fields) }

func (l *StdLogger) write(level Level, msg string, fields []Field) {
	if level < l.min {
		return
	}
	var b strings.Builder
	b.WriteString(level.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		fmt.Fprintf(&b, "%v", f.Value)
	}
	l.out.Print(b.String())
}
