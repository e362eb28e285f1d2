// Package reminder orchestrates reminder determination and delivery: it finds
// tasks due soon, classifies them, delivers at most one reminder per key and
// records every attempt.
package reminder

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	"github.com/vishalahire/banayan-task-tracker/internal/observability"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

// DefaultWindow is how far ahead pending reminders are looked up.
const DefaultWindow = 24 * time.Hour

// Service is the reminder orchestrator shared by the scheduler and the HTTP API.
type Service struct {
	tasks     domain.TaskLookup
	store     domain.Store
	deliverer Deliverer
	audit     domain.AuditRecorder

	now         func() time.Time
	logger      logging.Logger
	metrics     *observability.ReminderMetrics
	tracer      *observability.TracerProvider
	window      time.Duration
	concurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrNop(logger)
	}
}

func WithMetrics(metrics *observability.ReminderMetrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

func WithTracer(tracer *observability.TracerProvider) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithWindow sets the window used when callers pass a non-positive one.
func WithWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithConcurrency bounds how many eligible reminders are processed at once.
// The default of 1 processes them sequentially.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService wires the orchestrator. audit may be nil.
func NewService(tasks domain.TaskLookup, store domain.Store, deliverer Deliverer, audit domain.AuditRecorder, opts ...Option) *Service {
	s := &Service{
		tasks:       tasks,
		store:       store,
		deliverer:   deliverer,
		audit:       audit,
		now:         time.Now,
		logger:      logging.NewComponentLogger("ReminderService"),
		tracer:      observability.NoopTracerProvider(),
		window:      DefaultWindow,
		concurrency: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) resolveWindow(window time.Duration) time.Duration {
	if window <= 0 {
		return s.window
	}
	return window
}

// TasksDueForReminder returns non-terminal tasks due within window, with owner
// fallbacks applied.
func (s *Service) TasksDueForReminder(ctx context.Context, window time.Duration) ([]domain.Task, error) {
	tasks, err := s.tasks.TasksDueInWindow(ctx, s.now(), s.resolveWindow(window))
	if err != nil {
		return nil, fmt.Errorf("query tasks due in window: %w", err)
	}
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status.IsTerminal() || !task.HasDueDate() {
			continue
		}
		out = append(out, task.WithOwnerFallbacks())
	}
	return out, nil
}

// GetPendingReminders lists every task inside window with its reminder type
// and whether that reminder was already sent, ordered by due date.
func (s *Service) GetPendingReminders(ctx context.Context, window time.Duration) ([]domain.PendingReminder, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanReminderPending)
	defer span.End()

	now := s.now()
	tasks, err := s.tasks.TasksDueInWindow(ctx, now, s.resolveWindow(window))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query tasks due in window: %w", err)
	}

	pending := make([]domain.PendingReminder, 0, len(tasks))
	for _, task := range tasks {
		if task.Status.IsTerminal() || !task.HasDueDate() {
			continue
		}
		task = task.WithOwnerFallbacks()
		untilDue := task.DueDate.Sub(now)
		reminderType := domain.Classify(untilDue)

		sent, err := s.store.HasBeenSent(ctx, domain.NewKey(task.ID, reminderType, task.DueDate))
		if err != nil {
			span.RecordError(err)
			return nil, alexerrors.NewStoreError("has_been_sent", err)
		}

		pending = append(pending, domain.PendingReminder{
			TaskID:           task.ID,
			TaskTitle:        task.Title,
			DueDate:          task.DueDate,
			OwnerID:          task.OwnerID,
			OwnerEmail:       task.OwnerEmail,
			OwnerDisplayName: task.OwnerDisplayName,
			Type:             reminderType,
			AlreadySent:      sent,
			TimeUntilDue:     untilDue,
		})
	}

	slices.SortStableFunc(pending, func(a, b domain.PendingReminder) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return cmp.Compare(a.TaskID, b.TaskID)
	})
	return pending, nil
}

// HasReminderBeenSent reports whether a reminder exists for the key.
func (s *Service) HasReminderBeenSent(ctx context.Context, taskID string, reminderType domain.Type, dueDate time.Time) (bool, error) {
	sent, err := s.store.HasBeenSent(ctx, domain.NewKey(taskID, reminderType, dueDate))
	if err != nil {
		return false, alexerrors.NewStoreError("has_been_sent", err)
	}
	return sent, nil
}

// taskOutcome is the per-task result merged into a BatchResult.
type taskOutcome struct {
	attempted bool
	processed bool
	succeeded bool
	errMsg    string
}

// ProcessPendingReminders delivers every pending reminder that was not sent
// yet and records the attempts. Per-task failures end up in the result; only
// a failure to build the pending list is returned as an error.
func (s *Service) ProcessPendingReminders(ctx context.Context, window time.Duration) (domain.BatchResult, error) {
	if id.RunIDFromContext(ctx) == "" {
		ctx = id.WithRunID(ctx, id.NewRunID())
	}
	trigger := id.TriggerFromContext(ctx)
	logger := logging.FromContext(ctx, s.logger)
	started := s.now()

	ctx, span := s.tracer.StartSpan(ctx, observability.SpanReminderBatch)
	defer span.End()

	pending, err := s.GetPendingReminders(ctx, window)
	if err != nil {
		logger.Error("Failed to load pending reminders: %v", err)
		s.metrics.ObserveBatch(trigger, "error", 0, s.now().Sub(started))
		span.RecordError(err)
		return domain.NewBatchResult(0), err
	}

	result := domain.NewBatchResult(len(pending))
	logger.Info("Processing %d pending reminders", len(pending))

	outcomes := make([]taskOutcome, len(pending))
	var group errgroup.Group
	group.SetLimit(s.concurrency)
	for i, p := range pending {
		if p.AlreadySent {
			s.metrics.ObserveSkipped(string(p.Type))
			continue
		}
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			outcomes[i] = s.processOne(ctx, p)
			return nil
		})
	}
	_ = group.Wait()

	for i, out := range outcomes {
		if !out.attempted {
			continue
		}
		if out.processed {
			result.ProcessedCount++
			result.ProcessedTaskIDs = append(result.ProcessedTaskIDs, pending[i].TaskID)
		}
		if out.succeeded {
			result.SuccessfulCount++
		} else {
			result.FailedCount++
		}
		if out.errMsg != "" {
			result.Errors = append(result.Errors, out.errMsg)
		}
	}
	result.SkippedCount = result.TotalPending - result.ProcessedCount

	status := "ok"
	if ctx.Err() != nil {
		status = "canceled"
		logger.Warn("Reminder batch interrupted: %v", ctx.Err())
	}
	s.metrics.ObserveBatch(trigger, status, result.TotalPending, s.now().Sub(started))
	logger.Info("Reminder batch done: pending=%d processed=%d successful=%d failed=%d skipped=%d",
		result.TotalPending, result.ProcessedCount, result.SuccessfulCount, result.FailedCount, result.SkippedCount)
	return result, nil
}

func (s *Service) processOne(ctx context.Context, p domain.PendingReminder) (out taskOutcome) {
	if ctx.Err() != nil {
		return taskOutcome{}
	}
	logger := logging.FromContext(ctx, s.logger)

	ctx, span := s.tracer.StartSpan(ctx, observability.SpanReminderTask, observability.ReminderAttrs(p.TaskID, string(p.Type))...)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic processing reminder for task %s: %v", p.TaskID, r)
			s.metrics.ObserveAttempt(string(p.Type), observability.OutcomeError)
			out = taskOutcome{
				attempted: true,
				errMsg:    fmt.Sprintf("Error processing reminder for task '%s': %v", p.TaskTitle, r),
			}
		}
	}()

	unexpected := func(err error) taskOutcome {
		logger.Error("Error processing reminder for task %s (%s): %v", p.TaskID, alexerrors.GetErrorType(err), err)
		span.RecordError(err)
		outcome := observability.OutcomeError
		if alexerrors.IsStoreFailure(err) {
			outcome = observability.OutcomeStoreFailed
		}
		s.metrics.ObserveAttempt(string(p.Type), outcome)
		return taskOutcome{
			attempted: true,
			errMsg:    fmt.Sprintf("Error processing reminder for task '%s': %v", p.TaskTitle, err),
		}
	}
	// A task that vanished or closed since the window query cannot be logged.
	vanished := func(err error) taskOutcome {
		logger.Warn("Failed to log reminder for task %s: %v", p.TaskID, err)
		s.metrics.ObserveAttempt(string(p.Type), observability.OutcomeError)
		return taskOutcome{
			attempted: true,
			errMsg:    fmt.Sprintf("Failed to log reminder for task '%s'", p.TaskTitle),
		}
	}

	task, err := s.tasks.TaskByID(ctx, p.TaskID)
	if alexerrors.IsNotFound(err) {
		return vanished(err)
	}
	if err != nil {
		return unexpected(err)
	}
	if task.Status.IsTerminal() {
		return vanished(alexerrors.NewNotFoundError("open task", p.TaskID))
	}
	task = task.WithOwnerFallbacks()
	// The due date the reminder was classified for is the one the key uses.
	task.DueDate = p.DueDate

	deliverErr := s.deliverer.Deliver(ctx, newNotification(p, s.now()))
	if deliverErr != nil && ctx.Err() != nil && (errors.Is(deliverErr, context.Canceled) || errors.Is(deliverErr, context.DeadlineExceeded)) {
		return unexpected(deliverErr)
	}
	delivered := deliverErr == nil
	switch {
	case delivered:
	case alexerrors.IsDeliveryFailure(deliverErr):
		logger.Warn("Delivery failed for task %s (%s): %v", p.TaskID, p.Type, deliverErr)
	default:
		// Anything else from a deliverer still counts as a failed attempt.
		logger.Error("Deliverer error for task %s (%s): %v", p.TaskID, p.Type, deliverErr)
	}

	// Once delivery was attempted the record must be written even if the
	// batch is canceled meanwhile.
	if _, err := s.logAttempt(context.WithoutCancel(ctx), task, p.Type, delivered, ""); err != nil {
		logger.Error("Failed to log reminder for task %s: %v", p.TaskID, err)
		span.RecordError(err)
		s.metrics.ObserveAttempt(string(p.Type), observability.OutcomeStoreFailed)
		return taskOutcome{
			attempted: true,
			errMsg:    fmt.Sprintf("Failed to log reminder for task '%s'", p.TaskTitle),
		}
	}

	if !delivered {
		s.metrics.ObserveAttempt(string(p.Type), observability.OutcomeDeliveryFailed)
		return taskOutcome{
			attempted: true,
			processed: true,
			errMsg:    fmt.Sprintf("Failed to deliver reminder for task '%s'", p.TaskTitle),
		}
	}

	logger.Debug("Reminder %s delivered for task %s", p.Type, p.TaskID)
	s.metrics.ObserveAttempt(string(p.Type), observability.OutcomeDelivered)
	return taskOutcome{attempted: true, processed: true, succeeded: true}
}

// LogReminderSent records a reminder delivered outside the batch. It returns
// false when the task has no due date, true when the reminder is recorded
// (now or earlier). A missing task yields a NotFoundError.
func (s *Service) LogReminderSent(ctx context.Context, taskID string, reminderType domain.Type, delivered bool, details string) (bool, error) {
	logger := logging.FromContext(ctx, s.logger)

	task, err := s.tasks.TaskByID(ctx, taskID)
	if err != nil {
		logger.Warn("Cannot log reminder for task %s: %v", taskID, err)
		return false, err
	}
	if !task.HasDueDate() {
		logger.Warn("Cannot log reminder for task %s: no due date", taskID)
		return false, nil
	}

	sent, err := s.HasReminderBeenSent(ctx, task.ID, reminderType, task.DueDate)
	if err != nil {
		return false, err
	}
	if sent {
		logger.Info("Reminder %s already logged for task %s", reminderType, taskID)
		return true, nil
	}

	if _, err := s.logAttempt(ctx, task.WithOwnerFallbacks(), reminderType, delivered, details); err != nil {
		return false, err
	}
	return true, nil
}

// logAttempt get-or-creates the record for one attempt and audits first-time
// successful deliveries. Both the batch and LogReminderSent go through here.
func (s *Service) logAttempt(ctx context.Context, task domain.Task, reminderType domain.Type, delivered bool, details string) (string, error) {
	if details == "" {
		details = domain.DetailsFailed
		if delivered {
			details = domain.DetailsDelivered
		}
	}
	now := s.now().UTC()
	rec := domain.Record{
		ID:                 id.NewRecordID(),
		TaskID:             task.ID,
		UserID:             task.OwnerID,
		DueDateAtSend:      domain.NormalizeDueDate(task.DueDate),
		Type:               reminderType,
		SentAt:             now,
		DeliverySuccessful: delivered,
		DeliveryDetails:    domain.TruncateDetails(details),
		CreatedAt:          now,
	}

	recordID, err := s.store.Record(ctx, rec)
	if alexerrors.IsConflict(err) {
		// The key was claimed but the winning row was not readable yet.
		recordID, err = s.store.Record(ctx, rec)
	}
	if err != nil {
		return "", alexerrors.NewStoreError("record", err)
	}
	if recordID != rec.ID {
		logging.FromContext(ctx, s.logger).Info("Reminder %s for task %s was already recorded as %s", reminderType, task.ID, recordID)
		return recordID, nil
	}
	if delivered {
		s.recordAudit(ctx, task)
	}
	return recordID, nil
}

func (s *Service) recordAudit(ctx context.Context, task domain.Task) {
	if s.audit == nil {
		return
	}
	event := domain.AuditEvent{
		Action:     domain.AuditReminderSent,
		UserID:     task.OwnerID,
		EntityID:   task.ID,
		EntityType: domain.AuditEntityTask,
		Details:    "Sent reminder for task: " + task.Title,
		OccurredAt: s.now().UTC(),
	}
	if err := s.audit.RecordAudit(ctx, event); err != nil {
		logging.FromContext(ctx, s.logger).Warn("Failed to audit reminder for task %s: %v", task.ID, err)
	}
}
