package scheduler

import (
	"context"
	"fmt"
	"time"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
)

// Report describes one completed scheduler run.
type Report struct {
	RunID     string
	Trigger   string
	StartedAt time.Time
	Duration  time.Duration
	Result    domain.BatchResult
	Err       error
	// Transient marks failures a later run may get past, such as a dropped
	// database connection.
	Transient bool
}

// Summary renders a one-line description of the run.
func (r Report) Summary() string {
	if r.Err != nil && r.Transient {
		return fmt.Sprintf("Reminder run %s failed, retrying next run: %v", r.RunID, r.Err)
	}
	if r.Err != nil {
		return fmt.Sprintf("Reminder run %s failed: %v", r.RunID, r.Err)
	}
	return fmt.Sprintf("Reminder run %s: %d pending, %d processed, %d successful, %d failed, %d skipped",
		r.RunID, r.Result.TotalPending, r.Result.ProcessedCount, r.Result.SuccessfulCount,
		r.Result.FailedCount, r.Result.SkippedCount)
}

// Notifier receives run reports.
type Notifier interface {
	NotifyBatch(ctx context.Context, report Report) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, report Report) error

func (f NotifierFunc) NotifyBatch(ctx context.Context, report Report) error {
	return f(ctx, report)
}

// NopNotifier discards reports.
type NopNotifier struct{}

// NotifyBatch is a no-op.
func (NopNotifier) NotifyBatch(context.Context, Report) error {
	return nil
}
