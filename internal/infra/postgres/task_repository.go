package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
)

const taskSelect = `SELECT t.id, t.title, t.due_date, t.status, t.owner_id,
       COALESCE(u.email, ''), COALESCE(u.display_name, '')
  FROM ` + tasksTable + ` t
  LEFT JOIN ` + usersTable + ` u ON u.id = t.owner_id`

// TaskRepository reads tasks and their owners from the task service tables.
type TaskRepository struct {
	pool pool
}

var _ domain.TaskLookup = (*TaskRepository)(nil)

func NewTaskRepository(p pool) (*TaskRepository, error) {
	if p == nil {
		return nil, errors.New("task repository requires pool")
	}
	return &TaskRepository{pool: p}, nil
}

// TasksDueInWindow implements domain.TaskLookup.
func (r *TaskRepository) TasksDueInWindow(ctx context.Context, from time.Time, window time.Duration) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx,
		taskSelect+`
 WHERE t.due_date IS NOT NULL
   AND t.due_date >= $1 AND t.due_date <= $2
   AND t.status NOT IN ($3, $4)
 ORDER BY t.due_date, t.id`,
		from.UTC(), from.Add(window).UTC(), int(domain.TaskCompleted), int(domain.TaskArchived),
	)
	if err != nil {
		return nil, alexerrors.NewStoreError("tasks_due_in_window", err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, alexerrors.NewStoreError("tasks_due_in_window", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, alexerrors.NewStoreError("tasks_due_in_window", err)
	}
	return tasks, nil
}

// TaskByID implements domain.TaskLookup.
func (r *TaskRepository) TaskByID(ctx context.Context, taskID string) (domain.Task, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, taskSelect+` WHERE t.id = $1`, taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, alexerrors.NewNotFoundError("task", taskID)
	}
	if err != nil {
		return domain.Task{}, alexerrors.NewStoreError("task_by_id", err)
	}
	return task, nil
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var (
		task    domain.Task
		dueDate *time.Time
		status  int
	)
	if err := row.Scan(&task.ID, &task.Title, &dueDate, &status, &task.OwnerID, &task.OwnerEmail, &task.OwnerDisplayName); err != nil {
		return domain.Task{}, err
	}
	if dueDate != nil {
		task.DueDate = dueDate.UTC()
	}
	task.Status = domain.TaskStatus(status)
	return task, nil
}
