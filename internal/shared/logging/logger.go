// Package logging provides the printf-style logger used across the
// application, backed by the structured logger in observability.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"

	"github.com/vishalahire/banayan-task-tracker/internal/observability"
)

// Logger is the printf-style contract application packages depend on.
// Tests pass Nop or a recording fake.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil, including a typed nil pointer.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	v := reflect.ValueOf(logger)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// OrNop returns logger, or Nop when it is nil.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

var base atomic.Pointer[observability.Logger]

func init() {
	base.Store(observability.NewLogger(observability.LogConfig{Level: "info", Format: "text"}))
}

// Configure sets the structured logger behind NewComponentLogger. Loggers
// created earlier keep writing to the previous one.
func Configure(logger *observability.Logger) {
	if logger != nil {
		base.Store(logger)
	}
}

// NewComponentLogger returns a logger whose records carry component.
func NewComponentLogger(component string) Logger {
	return Wrap(base.Load(), component)
}

// Wrap adapts a structured logger to the printf contract.
func Wrap(logger *observability.Logger, component string) Logger {
	if logger == nil {
		return Nop()
	}
	if component != "" {
		logger = logger.With("component", component)
	}
	return printfLogger{logger: logger}
}

type printfLogger struct {
	logger *observability.Logger
}

func (l printfLogger) emit(level slog.Level, format string, args []any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.logger.Log(context.Background(), level, msg)
}

func (l printfLogger) Debug(format string, args ...any) { l.emit(slog.LevelDebug, format, args) }
func (l printfLogger) Info(format string, args ...any)  { l.emit(slog.LevelInfo, format, args) }
func (l printfLogger) Warn(format string, args ...any)  { l.emit(slog.LevelWarn, format, args) }
func (l printfLogger) Error(format string, args ...any) { l.emit(slog.LevelError, format, args) }
