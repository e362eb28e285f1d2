package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	"github.com/vishalahire/banayan-task-tracker/internal/testutil"
	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

func TestIntegrationConcurrentRecordConverges(t *testing.T) {
	pool := testutil.PostgresPool(t)
	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, pool))
	require.NoError(t, EnsureSchema(ctx, pool), "schema creation must be repeatable")

	now := time.Now().UTC().Truncate(time.Second)
	due := now.Add(40 * time.Minute)
	_, err := pool.Exec(ctx, `INSERT INTO users (id, email, display_name) VALUES ('user-1', 'ana@example.com', 'Ana')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO tasks (id, title, due_date, status, owner_id) VALUES
		('task-1', 'Pay invoice', $1, 0, 'user-1'),
		('task-2', 'Archived', $1, 3, 'user-1'),
		('task-3', 'Next week', $2, 0, 'user-1')`, due, now.Add(7*24*time.Hour))
	require.NoError(t, err)

	tasks, err := mustTaskRepository(t, pool).TasksDueInWindow(ctx, now, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-1", tasks[0].ID)
	assert.Equal(t, "Ana", tasks[0].OwnerDisplayName)

	store, err := NewReminderStore(pool)
	require.NoError(t, err)

	const writers = 8
	ids := make([]string, writers)
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := domain.Record{
				ID:                 id.NewRecordID(),
				TaskID:             "task-1",
				UserID:             "user-1",
				DueDateAtSend:      due,
				Type:               domain.TypeOneHour,
				SentAt:             now,
				DeliverySuccessful: true,
				DeliveryDetails:    domain.DetailsDelivered,
				CreatedAt:          now,
			}
			got, err := store.Record(ctx, rec)
			assert.NoError(t, err)
			ids[i] = got
		}(i)
	}
	wg.Wait()

	for _, got := range ids[1:] {
		assert.Equal(t, ids[0], got)
	}
	sent, err := store.HasBeenSent(ctx, domain.NewKey("task-1", domain.TypeOneHour, due))
	require.NoError(t, err)
	assert.True(t, sent)

	records, err := store.ListByTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func mustTaskRepository(t *testing.T, p pool) *TaskRepository {
	t.Helper()
	repo, err := NewTaskRepository(p)
	require.NoError(t, err)
	return repo
}
