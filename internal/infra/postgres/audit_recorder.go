package postgres

import (
	"context"
	"errors"
	"time"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

// AuditRecorder appends audit events to audit_events.
type AuditRecorder struct {
	pool pool
}

var _ domain.AuditRecorder = (*AuditRecorder)(nil)

func NewAuditRecorder(p pool) (*AuditRecorder, error) {
	if p == nil {
		return nil, errors.New("audit recorder requires pool")
	}
	return &AuditRecorder{pool: p}, nil
}

// RecordAudit implements domain.AuditRecorder.
func (a *AuditRecorder) RecordAudit(ctx context.Context, event domain.AuditEvent) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	_, err := a.pool.Exec(ctx,
		`INSERT INTO `+auditEventsTable+` (id, action, user_id, entity_id, entity_type, details, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id.NewRecordID(), string(event.Action), event.UserID, event.EntityID, event.EntityType, event.Details, occurredAt.UTC(),
	)
	return alexerrors.NewStoreError("record_audit", err)
}
