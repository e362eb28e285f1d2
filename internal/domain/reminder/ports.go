package reminder

import (
	"context"
	"time"
)

// TaskLookup is the read-only view onto the task service.
type TaskLookup interface {
	// TasksDueInWindow returns tasks with from <= due date <= from+window whose
	// status is not terminal.
	TasksDueInWindow(ctx context.Context, from time.Time, window time.Duration) ([]Task, error)
	// TaskByID returns a NotFoundError when the task does not exist.
	TaskByID(ctx context.Context, taskID string) (Task, error)
}

// Store persists reminder records and enforces one record per Key.
type Store interface {
	// HasBeenSent reports whether a record exists for key.
	HasBeenSent(ctx context.Context, key Key) (bool, error)
	// Record inserts rec unless a record with the same key exists, in which
	// case the existing id is returned. A lost insert race is not an error.
	Record(ctx context.Context, rec Record) (string, error)
}

// RecordReader exposes stored records for inspection.
type RecordReader interface {
	Get(ctx context.Context, key Key) (Record, bool, error)
	ListByTask(ctx context.Context, taskID string) ([]Record, error)
}

// AuditAction names an audited operation.
type AuditAction string

const AuditReminderSent AuditAction = "ReminderSent"

// AuditEntityTask is the entity type used for task audit events.
const AuditEntityTask = "Task"

// AuditEvent is one audit trail entry.
type AuditEvent struct {
	Action     AuditAction `json:"action"`
	UserID     string      `json:"user_id"`
	EntityID   string      `json:"entity_id"`
	EntityType string      `json:"entity_type"`
	Details    string      `json:"details"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// AuditRecorder appends audit events.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, event AuditEvent) error
}
