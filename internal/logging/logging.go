// Package logging generalizes gombadi-dnsseeder/main.go's cascading
// config.debug/config.verbose booleans into the five-level severity this
// repo's log_level option selects from. Every other package keeps calling
// a Printf-shaped method; the gate moves from an inline "if config.debug"
// at the call site into the Logger itself.
package logging

import (
	"fmt"
	"io"
	"log"
)

// Level is a log severity, ordered from most to least verbose.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel parses the log_level config option's recognized values.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log_level %q (must be trace/debug/info/warn/error)", s)
	}
}

// Logger wraps a *log.Logger with a minimum Level. A call below the
// configured Level is dropped, the same as gombadi-dnsseeder's
// "if config.debug { log.Printf(...) }" gate, generalized from a boolean
// to a severity ordering.
type Logger struct {
	out   *log.Logger
	level Level
}

// New builds a Logger writing to w at the given minimum level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags), level: level}
}

// Default returns a Logger wrapping log.Default() at LevelInfo, the
// fallback every constructor in this tree uses when no Logger is passed.
func Default() *Logger {
	return &Logger{out: log.Default(), level: LevelInfo}
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Printf(format, args...)
}

// Tracef logs at LevelTrace: the noisiest per-item diagnostics.
func (l *Logger) Tracef(format string, args ...interface{}) { l.logf(LevelTrace, format, args...) }

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.logf(LevelInfo, format, args...) }

// Warnf logs at LevelWarn: a tolerated but noteworthy condition.
func (l *Logger) Warnf(format string, args ...interface{}) { l.logf(LevelWarn, format, args...) }

// Errorf logs at LevelError, always shown regardless of the configured
// level — genuine process-level failures are never suppressed.
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }
