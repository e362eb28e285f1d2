package logging

import (
	"context"
	"strings"

	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

// FromContext returns a logger tagged with the correlation and run ids found
// in ctx, if any.
func FromContext(ctx context.Context, logger Logger) Logger {
	ids := id.IDsFromContext(ctx)
	var parts []string
	if ids.CorrelationID != "" {
		parts = append(parts, "cid="+ids.CorrelationID)
	}
	if ids.RunID != "" {
		parts = append(parts, "run="+ids.RunID)
	}
	if len(parts) == 0 {
		return OrNop(logger)
	}
	return &prefixLogger{logger: OrNop(logger), prefix: strings.Join(parts, " ") + " "}
}

type prefixLogger struct {
	logger Logger
	prefix string
}

func (l *prefixLogger) Debug(format string, args ...any) {
	l.logger.Debug(l.prefix+format, args...)
}

func (l *prefixLogger) Info(format string, args ...any) {
	l.logger.Info(l.prefix+format, args...)
}

func (l *prefixLogger) Warn(format string, args ...any) {
	l.logger.Warn(l.prefix+format, args...)
}

func (l *prefixLogger) Error(format string, args ...any) {
	l.logger.Error(l.prefix+format, args...)
}
