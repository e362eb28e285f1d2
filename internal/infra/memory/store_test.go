package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
)

func TestTaskRepositoryWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	repo := NewTaskRepository(
		domain.Task{ID: "soon", DueDate: now.Add(30 * time.Minute)},
		domain.Task{ID: "edge", DueDate: now.Add(24 * time.Hour)},
		domain.Task{ID: "later", DueDate: now.Add(25 * time.Hour)},
		domain.Task{ID: "past", DueDate: now.Add(-time.Minute)},
		domain.Task{ID: "done", DueDate: now.Add(time.Hour), Status: domain.TaskCompleted},
		domain.Task{ID: "archived", DueDate: now.Add(time.Hour), Status: domain.TaskArchived},
		domain.Task{ID: "undated"},
	)

	tasks, err := repo.TasksDueInWindow(context.Background(), now, 24*time.Hour)
	require.NoError(t, err)

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"soon", "edge"}, ids)
}

func TestTaskRepositoryByID(t *testing.T) {
	repo := NewTaskRepository(domain.Task{ID: "t-1", Title: "Write report"})

	task, err := repo.TaskByID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Write report", task.Title)

	repo.Delete("t-1")
	_, err = repo.TaskByID(context.Background(), "t-1")
	assert.True(t, alexerrors.IsNotFound(err))
}

func TestReminderStoreGetOrCreate(t *testing.T) {
	store := NewReminderStore()
	ctx := context.Background()
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	first, err := store.Record(ctx, domain.Record{ID: "r-1", TaskID: "t-1", Type: domain.TypeOneHour, DueDateAtSend: due})
	require.NoError(t, err)
	second, err := store.Record(ctx, domain.Record{ID: "r-2", TaskID: "t-1", Type: domain.TypeOneHour, DueDateAtSend: due.In(time.FixedZone("X", 3600))})
	require.NoError(t, err)

	assert.Equal(t, "r-1", first)
	assert.Equal(t, "r-1", second)
	assert.Equal(t, 1, store.Len())

	sent, err := store.HasBeenSent(ctx, domain.NewKey("t-1", domain.TypeOneHour, due))
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = store.HasBeenSent(ctx, domain.NewKey("t-1", domain.TypeOneHour, due.Add(time.Hour)))
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestReminderStoreConcurrentRecordConverges(t *testing.T) {
	store := NewReminderStore()
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	const writers = 16
	ids := make([]string, writers)
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recordID, err := store.Record(context.Background(), domain.Record{
				ID:            string(rune('a' + i)),
				TaskID:        "t-1",
				Type:          domain.TypeFourHours,
				DueDateAtSend: due,
			})
			assert.NoError(t, err)
			ids[i] = recordID
		}()
	}
	wg.Wait()

	for _, recordID := range ids {
		assert.Equal(t, ids[0], recordID)
	}
	assert.Equal(t, 1, store.Len())
}

func TestReminderStoreListByTask(t *testing.T) {
	store := NewReminderStore()
	ctx := context.Background()
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	base := due.Add(-24 * time.Hour)

	_, _ = store.Record(ctx, domain.Record{ID: "b", TaskID: "t-1", Type: domain.TypeOneHour, DueDateAtSend: due, SentAt: base.Add(2 * time.Hour)})
	_, _ = store.Record(ctx, domain.Record{ID: "a", TaskID: "t-1", Type: domain.TypeTwentyFourHours, DueDateAtSend: due, SentAt: base})
	_, _ = store.Record(ctx, domain.Record{ID: "c", TaskID: "t-2", Type: domain.TypeOneHour, DueDateAtSend: due, SentAt: base})

	records, err := store.ListByTask(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)

	empty, err := store.ListByTask(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAuditLogCopiesEvents(t *testing.T) {
	log := NewAuditLog()
	require.NoError(t, log.RecordAudit(context.Background(), domain.AuditEvent{Action: domain.AuditReminderSent, EntityID: "t-1"}))

	events := log.Events()
	require.Len(t, events, 1)
	events[0].EntityID = "changed"
	assert.Equal(t, "t-1", log.Events()[0].EntityID)
}

func TestCanceledContextIsRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReminderStore().Record(ctx, domain.Record{ID: "r"})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = NewTaskRepository().TasksDueInWindow(ctx, time.Now(), time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
