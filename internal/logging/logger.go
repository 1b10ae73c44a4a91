// Package logging provides a small structured-logging facade over log/slog,
// matching the teacher's component-logger convention: callers obtain a
// named Logger and use printf-style calls rather than slog's key/value
// attribute API directly.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger is the printf-style logging surface used throughout the module.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	With(component string) Logger
}

// componentLogger wraps an *slog.Logger bound to a component name.
type componentLogger struct {
	component string
	base      *slog.Logger
}

var rootHandler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})

// Configure replaces the process-wide slog handler used by every component
// logger created after this call. w defaults to os.Stderr when nil.
func Configure(level slog.Level, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		rootHandler = slog.NewJSONHandler(w, opts)
	} else {
		rootHandler = slog.NewTextHandler(w, opts)
	}
}

// NewComponentLogger returns a Logger that tags every record with component.
func NewComponentLogger(component string) Logger {
	return &componentLogger{
		component: component,
		base:      slog.New(rootHandler).With("component", component),
	}
}

func (l *componentLogger) Debug(format string, args ...any) { l.log(slog.LevelDebug, format, args...) }
func (l *componentLogger) Info(format string, args ...any)  { l.log(slog.LevelInfo, format, args...) }
func (l *componentLogger) Warn(format string, args ...any)  { l.log(slog.LevelWarn, format, args...) }
func (l *componentLogger) Error(format string, args ...any) { l.log(slog.LevelError, format, args...) }

func (l *componentLogger) With(component string) Logger {
	return NewComponentLogger(l.component + "." + component)
}

func (l *componentLogger) log(level slog.Level, format string, args ...any) {
	if !l.base.Enabled(context.Background(), level) {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.base.Log(context.Background(), level, msg)
}

// NoopLogger discards everything; used as a safe default when no logger is
// supplied by a caller.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any)  {}
func (NoopLogger) Info(string, ...any)   {}
func (NoopLogger) Warn(string, ...any)   {}
func (NoopLogger) Error(string, ...any)  {}
func (NoopLogger) With(string) Logger    { return NoopLogger{} }

// IsNil reports whether logger is a nil interface or a typed-nil pointer
// hiding behind the interface (a common footgun when a *componentLogger
// variable is left unset and passed around as Logger).
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	if cl, ok := logger.(*componentLogger); ok {
		return cl == nil
	}
	return false
}

// OrNop returns logger unless it is nil (by IsNil's definition), in which
// case it returns a NoopLogger so callers never need a nil check.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return NoopLogger{}
	}
	return logger
}
