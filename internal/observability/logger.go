package observability

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

// Logger is the structured logger every component logger writes through.
// Records logged with a context pick up the run, correlation and trigger ids
// carried by it.
type Logger struct {
	slog *slog.Logger
}

// LogConfig configures NewLogger.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
	// Service is attached to every record when set.
	Service string
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func NewLogger(config LogConfig) *Logger {
	output := config.Output
	if output == nil {
		output = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(config.Level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(config.Format), "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	handler = contextHandler{Handler: handler}

	logger := slog.New(handler)
	if config.Service != "" {
		logger = logger.With("service", config.Service)
	}
	return &Logger{slog: logger}
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// Log emits msg at level.
func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	l.slog.Log(ctx, level, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.Log(context.Background(), slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.Log(context.Background(), slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.Log(context.Background(), slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.Log(context.Background(), slog.LevelError, msg, args...) }

// Slog exposes the underlying logger for libraries that accept one.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// contextHandler copies request and run ids from the context onto records.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	ids := id.IDsFromContext(ctx)
	if ids.RunID != "" {
		r.AddAttrs(slog.String("run_id", ids.RunID))
	}
	if ids.CorrelationID != "" {
		r.AddAttrs(slog.String("correlation_id", ids.CorrelationID))
	}
	if ids.Trigger != "" {
		r.AddAttrs(slog.String("trigger", ids.Trigger))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

// RedactConnectionString masks the password in a DSN or broker URL.
// Strings that do not parse as URLs with credentials are returned unchanged.
func RedactConnectionString(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return dsn
	}
	return u.Scheme + "://" + u.User.Username() + ":***@" + u.Host + u.EscapedPath() + querySuffix(u)
}

func querySuffix(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	return "?" + u.RawQuery
}
