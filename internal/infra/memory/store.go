// Package memory provides process-local implementations of the reminder
// ports. They back the CLI's demo mode and the tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
)

// TaskRepository holds tasks keyed by id.
type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
}

func NewTaskRepository(tasks ...domain.Task) *TaskRepository {
	repo := &TaskRepository{tasks: make(map[string]domain.Task, len(tasks))}
	for _, task := range tasks {
		repo.tasks[task.ID] = task
	}
	return repo
}

// Put inserts or replaces a task.
func (r *TaskRepository) Put(task domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
}

func (r *TaskRepository) Delete(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, taskID)
}

// TasksDueInWindow implements domain.TaskLookup.
func (r *TaskRepository) TasksDueInWindow(ctx context.Context, from time.Time, window time.Duration) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	until := from.Add(window)

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		if !task.HasDueDate() || task.Status.IsTerminal() {
			continue
		}
		if task.DueDate.Before(from) || task.DueDate.After(until) {
			continue
		}
		out = append(out, task)
	}
	slices.SortFunc(out, func(a, b domain.Task) int { return a.DueDate.Compare(b.DueDate) })
	return out, nil
}

// TaskByID implements domain.TaskLookup.
func (r *TaskRepository) TaskByID(ctx context.Context, taskID string) (domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return domain.Task{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return domain.Task{}, alexerrors.NewNotFoundError("task", taskID)
	}
	return task, nil
}

// ReminderStore is a mutex-guarded idempotency store.
type ReminderStore struct {
	mu      sync.Mutex
	records map[string]domain.Record
}

func NewReminderStore() *ReminderStore {
	return &ReminderStore{records: make(map[string]domain.Record)}
}

// HasBeenSent implements domain.Store.
func (s *ReminderStore) HasBeenSent(ctx context.Context, key domain.Key) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// Record implements domain.Store with get-or-create semantics.
func (s *ReminderStore) Record(ctx context.Context, rec domain.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := rec.Key()
	rec.DueDateAtSend = key.DueDate

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[key.String()]; ok {
		return existing.ID, nil
	}
	s.records[key.String()] = rec
	return rec.ID, nil
}

// Get implements domain.RecordReader.
func (s *ReminderStore) Get(ctx context.Context, key domain.Key) (domain.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, false, err
	}
	key = domain.NewKey(key.TaskID, key.Type, key.DueDate)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key.String()]
	return rec, ok, nil
}

// ListByTask implements domain.RecordReader. Records come back oldest first.
func (s *ReminderStore) ListByTask(ctx context.Context, taskID string) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]domain.Record, 0)
	for _, rec := range s.records {
		if rec.TaskID == taskID {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b domain.Record) int { return a.SentAt.Compare(b.SentAt) })
	return out, nil
}

// Len returns the number of stored records.
func (s *ReminderStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// AuditLog keeps audit events in insertion order.
type AuditLog struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// RecordAudit implements domain.AuditRecorder.
func (l *AuditLog) RecordAudit(ctx context.Context, event domain.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (l *AuditLog) Events() []domain.AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}
