package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
)

const uniqueViolation = "23505"

const recordColumns = `id, task_id, user_id, task_due_date, reminder_type, reminder_sent_at, delivery_successful, delivery_details, created_at`

// ReminderStore is the Postgres idempotency store. Uniqueness is enforced by
// ix_reminder_logs_unique_reminder.
type ReminderStore struct {
	pool   pool
	logger logging.Logger
}

var (
	_ domain.Store        = (*ReminderStore)(nil)
	_ domain.RecordReader = (*ReminderStore)(nil)
)

func NewReminderStore(p pool) (*ReminderStore, error) {
	if p == nil {
		return nil, errors.New("reminder store requires pool")
	}
	return &ReminderStore{pool: p, logger: logging.NewComponentLogger("ReminderLogStore")}, nil
}

// HasBeenSent implements domain.Store.
func (s *ReminderStore) HasBeenSent(ctx context.Context, key domain.Key) (bool, error) {
	key = domain.NewKey(key.TaskID, key.Type, key.DueDate)
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+reminderLogsTable+`
		 WHERE task_id = $1 AND reminder_type = $2 AND task_due_date = $3)`,
		key.TaskID, string(key.Type), key.DueDate,
	).Scan(&exists)
	if err != nil {
		return false, alexerrors.NewStoreError("has_been_sent", err)
	}
	return exists, nil
}

// Record implements domain.Store. It inserts rec unless the key already has a
// row, and returns the id of whichever row holds the key afterwards.
func (s *ReminderStore) Record(ctx context.Context, rec domain.Record) (string, error) {
	key := rec.Key()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var insertedID string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+reminderLogsTable+` (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (task_id, reminder_type, task_due_date) DO NOTHING
		 RETURNING id`,
		rec.ID, rec.TaskID, rec.UserID, key.DueDate, string(rec.Type), rec.SentAt.UTC(),
		rec.DeliverySuccessful, domain.TruncateDetails(rec.DeliveryDetails), createdAt.UTC(),
	).Scan(&insertedID)
	switch {
	case err == nil:
		return insertedID, nil
	case errors.Is(err, pgx.ErrNoRows), isUniqueViolation(err):
		existing, ok, getErr := s.Get(ctx, key)
		if getErr != nil {
			return "", getErr
		}
		if !ok {
			return "", alexerrors.NewStoreError("record", alexerrors.NewConflictError(key.String(), err))
		}
		s.logger.Debug("reminder %s already recorded as %s", key, existing.ID)
		return existing.ID, nil
	default:
		return "", alexerrors.NewStoreError("record", err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Get implements domain.RecordReader.
func (s *ReminderStore) Get(ctx context.Context, key domain.Key) (domain.Record, bool, error) {
	key = domain.NewKey(key.TaskID, key.Type, key.DueDate)
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM `+reminderLogsTable+`
		 WHERE task_id = $1 AND reminder_type = $2 AND task_due_date = $3`,
		key.TaskID, string(key.Type), key.DueDate,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, alexerrors.NewStoreError("get", err)
	}
	return rec, true, nil
}

// ListByTask implements domain.RecordReader.
func (s *ReminderStore) ListByTask(ctx context.Context, taskID string) ([]domain.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM `+reminderLogsTable+`
		 WHERE task_id = $1 ORDER BY reminder_sent_at, id`,
		taskID,
	)
	if err != nil {
		return nil, alexerrors.NewStoreError("list_by_task", err)
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, alexerrors.NewStoreError("list_by_task", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, alexerrors.NewStoreError("list_by_task", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (domain.Record, error) {
	var (
		rec          domain.Record
		reminderType string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.TaskID,
		&rec.UserID,
		&rec.DueDateAtSend,
		&reminderType,
		&rec.SentAt,
		&rec.DeliverySuccessful,
		&rec.DeliveryDetails,
		&rec.CreatedAt,
	); err != nil {
		return domain.Record{}, err
	}
	parsed, err := domain.ParseReminderType(reminderType)
	if err != nil {
		return domain.Record{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	rec.Type = parsed
	rec.DueDateAtSend = rec.DueDateAtSend.UTC()
	rec.SentAt = rec.SentAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
