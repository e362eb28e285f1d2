// Package scheduler drives reminder processing periodically, either as a
// fixed-delay loop or on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

// TriggerName tags scheduler-initiated runs in logs, metrics and spans.
const TriggerName = "scheduler"

const (
	DefaultInterval = 5 * time.Minute
	DefaultWindow   = 24 * time.Hour
)

// Config holds runner configuration.
type Config struct {
	// Interval is the delay between the end of one run and the start of the next.
	Interval time.Duration
	// Window is passed to every batch.
	Window time.Duration
	// Schedule, when set, is a cron expression that replaces the delay loop.
	Schedule string
	// RunOnStart runs a batch immediately instead of waiting first.
	RunOnStart bool
	// RunTimeout bounds a single batch. Zero means no limit.
	RunTimeout time.Duration
}

// DefaultConfig returns the loop configuration used by the worker.
func DefaultConfig() Config {
	return Config{
		Interval:   DefaultInterval,
		Window:     DefaultWindow,
		RunOnStart: true,
	}
}

// Processor is the subset of the reminder service the runner needs.
type Processor interface {
	ProcessPendingReminders(ctx context.Context, window time.Duration) (domain.BatchResult, error)
}

// Runner repeatedly invokes a Processor until its context is canceled.
type Runner struct {
	config    Config
	processor Processor
	notifier  Notifier
	logger    logging.Logger

	runs     atomic.Int64
	done     chan struct{}
	doneOnce sync.Once

	// after is time.After; tests replace it to drive ticks.
	after func(time.Duration) <-chan time.Time
}

// New creates a Runner. notifier may be nil.
func New(cfg Config, processor Processor, notifier Notifier, logger logging.Logger) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Runner{
		config:    cfg,
		processor: processor,
		notifier:  notifier,
		logger:    logging.OrNop(logger),
		done:      make(chan struct{}),
		after:     time.After,
	}
}

// Run blocks until ctx is canceled. An in-flight batch is allowed to finish
// its current task before Run returns. The only error is an invalid schedule.
func (r *Runner) Run(ctx context.Context) error {
	defer r.doneOnce.Do(func() { close(r.done) })

	if strings.TrimSpace(r.config.Schedule) != "" {
		return r.runCron(ctx)
	}
	r.runLoop(ctx)
	return nil
}

func (r *Runner) runLoop(ctx context.Context) {
	r.logger.Info("ReminderRunner: started (interval=%s window=%s)", r.config.Interval, r.config.Window)
	wait := !r.config.RunOnStart
	for {
		if wait {
			select {
			case <-ctx.Done():
				r.logger.Info("ReminderRunner: stopped")
				return
			case <-r.after(r.config.Interval):
			}
		}
		wait = true
		if ctx.Err() != nil {
			r.logger.Info("ReminderRunner: stopped")
			return
		}
		r.runOnce(ctx)
	}
}

func (r *Runner) runCron(ctx context.Context) error {
	c := newCron(r.logger)
	if _, err := c.AddFunc(r.config.Schedule, func() { r.runOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", r.config.Schedule, err)
	}
	if r.config.RunOnStart {
		r.runOnce(ctx)
	}

	c.Start()
	r.logger.Info("ReminderRunner: cron started (schedule=%s window=%s)", r.config.Schedule, r.config.Window)
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	r.logger.Info("ReminderRunner: cron stopped")
	return nil
}

func newCron(logger logging.Logger) *cron.Cron {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronLog := cronLogger{logger: logger}
	return cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
}

// runOnce executes one batch. Errors and panics are logged, never propagated.
func (r *Runner) runOnce(ctx context.Context) {
	runID := id.NewRunID()
	ctx = id.WithRunID(ctx, runID)
	ctx = id.WithTrigger(ctx, TriggerName)
	logger := logging.FromContext(ctx, r.logger)

	runCtx := ctx
	if r.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.config.RunTimeout)
		defer cancel()
	}

	started := time.Now()
	report := Report{RunID: runID, Trigger: TriggerName, StartedAt: started}
	defer func() {
		if rec := recover(); rec != nil {
			report.Err = fmt.Errorf("panic: %v", rec)
		}
		report.Duration = time.Since(started)
		r.runs.Add(1)
		report.Transient = alexerrors.IsTransient(report.Err)
		switch {
		case report.Transient:
			logger.Warn("ReminderRunner: run failed, retrying next run: %v", report.Err)
		case report.Err != nil:
			logger.Error("ReminderRunner: run failed: %v", report.Err)
		default:
			logger.Info("ReminderRunner: run done in %s (processed=%d successful=%d failed=%d skipped=%d)",
				report.Duration.Round(time.Millisecond), report.Result.ProcessedCount,
				report.Result.SuccessfulCount, report.Result.FailedCount, report.Result.SkippedCount)
		}
		if err := r.notifier.NotifyBatch(context.WithoutCancel(ctx), report); err != nil {
			logger.Warn("ReminderRunner: notify failed: %v", err)
		}
	}()

	report.Result, report.Err = r.processor.ProcessPendingReminders(runCtx, r.config.Window)
}

// Runs reports how many batches have completed, successfully or not.
func (r *Runner) Runs() int64 {
	return r.runs.Load()
}

// Done is closed once Run has returned.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: %s: %v %v", msg, err, keysAndValues)
}
