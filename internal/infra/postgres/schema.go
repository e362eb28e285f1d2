package postgres

import (
	"context"
	"errors"
	"fmt"
)

const (
	reminderLogsTable = "reminder_logs"
	auditEventsTable  = "audit_events"
	tasksTable        = "tasks"
	usersTable        = "users"
)

// The tasks and users tables belong to the task service; they are created
// here only so a standalone deployment and the integration tests have them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ` + usersTable + ` (
    id           TEXT PRIMARY KEY,
    email        TEXT NOT NULL DEFAULT '',
    display_name TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS ` + tasksTable + ` (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    due_date   TIMESTAMPTZ,
    status     INTEGER NOT NULL DEFAULT 0,
    owner_id   TEXT NOT NULL REFERENCES ` + usersTable + `(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS ix_tasks_due_date
    ON ` + tasksTable + ` (due_date) WHERE due_date IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS ` + reminderLogsTable + ` (
    id                  TEXT PRIMARY KEY,
    task_id             TEXT NOT NULL,
    user_id             TEXT NOT NULL,
    reminder_sent_at    TIMESTAMPTZ NOT NULL,
    task_due_date       TIMESTAMPTZ NOT NULL,
    reminder_type       VARCHAR(50) NOT NULL,
    delivery_successful BOOLEAN NOT NULL,
    delivery_details    VARCHAR(500) NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ix_reminder_logs_unique_reminder
    ON ` + reminderLogsTable + ` (task_id, reminder_type, task_due_date)`,
	`CREATE INDEX IF NOT EXISTS ix_reminder_logs_task_id ON ` + reminderLogsTable + ` (task_id)`,
	`CREATE INDEX IF NOT EXISTS ix_reminder_logs_user_id ON ` + reminderLogsTable + ` (user_id)`,
	`CREATE INDEX IF NOT EXISTS ix_reminder_logs_sent_at ON ` + reminderLogsTable + ` (reminder_sent_at)`,
	`CREATE TABLE IF NOT EXISTS ` + auditEventsTable + ` (
    id          TEXT PRIMARY KEY,
    action      VARCHAR(50) NOT NULL,
    user_id     TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    entity_type VARCHAR(50) NOT NULL,
    details     TEXT NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ix_audit_events_entity ON ` + auditEventsTable + ` (entity_type, entity_id)`,
}

// EnsureSchema creates the tables and indexes used by this package.
func EnsureSchema(ctx context.Context, p pool) error {
	if p == nil {
		return errors.New("postgres pool not initialized")
	}
	for _, stmt := range schemaStatements {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure reminder schema: %w", err)
		}
	}
	return nil
}
