package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalahire/banayan-task-tracker/internal/app/reminder"
	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	"github.com/vishalahire/banayan-task-tracker/internal/infra/memory"
	"github.com/vishalahire/banayan-task-tracker/internal/observability"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	router *gin.Engine
	store  *memory.ReminderStore
	tasks  *memory.TaskRepository
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	tasks := memory.NewTaskRepository(
		domain.Task{ID: "t1", Title: "Pay invoice", DueDate: now.Add(30 * time.Minute), OwnerID: "u1", OwnerEmail: "ana@example.com", OwnerDisplayName: "Ana"},
		domain.Task{ID: "t2", Title: "Renew domain", DueDate: now.Add(3 * time.Hour), OwnerID: "u2"},
		domain.Task{ID: "t3", Title: "Someday"},
	)
	store := memory.NewReminderStore()
	deliverer := &reminder.Simulator{Outcome: reminder.AlwaysSucceed()}
	metrics := observability.MustNewReminderMetrics(prometheus.NewRegistry())
	service := reminder.NewService(tasks, store, deliverer, memory.NewAuditLog(),
		reminder.WithClock(func() time.Time { return now }),
		reminder.WithLogger(logging.Nop()),
		reminder.WithMetrics(metrics),
	)

	router := NewRouter(RouterDeps{
		Reminders: service,
		Records:   store,
		Metrics:   metrics.Handler(),
		Logger:    logging.Nop(),
	}, RouterConfig{})
	return testEnv{router: router, store: store, tasks: tasks}
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetPendingReturnsHoursUntilDue(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.router, http.MethodGet, "/api/reminders/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "t1", body[0]["task_id"])
	assert.Equal(t, "1Hour", body[0]["reminder_type"])
	assert.Equal(t, 0.5, body[0]["hours_until_due"])
	assert.Equal(t, false, body[0]["has_reminder_been_sent"])
	assert.Equal(t, "4Hours", body[1]["reminder_type"])
	assert.Equal(t, "unknown@example.com", body[1]["owner_email"])
	assert.NotContains(t, body[0], "TimeUntilDue")
}

func TestGetPendingEmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	env.tasks.Delete("t1")
	env.tasks.Delete("t2")

	rec := serve(env.router, http.MethodGet, "/api/reminders/pending?window_hours=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetPendingRejectsBadWindow(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{"abc", "0", "-3"} {
		rec := serve(env.router, http.MethodGet, "/api/reminders/pending?window_hours="+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestProcessThenPendingShowsSent(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.router, http.MethodPost, "/api/reminders/process", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.TotalPending)
	assert.Equal(t, 2, result.SuccessfulCount)
	assert.Equal(t, []string{"t1", "t2"}, result.ProcessedTaskIDs)
	assert.Equal(t, 2, env.store.Len())

	rec = serve(env.router, http.MethodPost, "/api/reminders/process", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors":[]`)
	assert.Contains(t, rec.Body.String(), `"skipped_count":2`)

	rec = serve(env.router, http.MethodGet, "/api/reminders/tasks/t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []domain.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, domain.TypeOneHour, records[0].Type)
}

func TestLogReminderSent(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.router, http.MethodPost, "/api/reminders/log", `{"task_id":"t2","reminder_type":"4Hours"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"logged":true}`, rec.Body.String())
	assert.Equal(t, 1, env.store.Len())

	rec = serve(env.router, http.MethodPost, "/api/reminders/log", `{"task_id":"t3","reminder_type":"1Hour"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"logged":false}`, rec.Body.String())

	rec = serve(env.router, http.MethodPost, "/api/reminders/log", `{"task_id":"missing","reminder_type":"1Hour"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(env.router, http.MethodPost, "/api/reminders/log", `{"task_id":"t1","reminder_type":"2Hours"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(env.router, http.MethodPost, "/api/reminders/log", `{"reminder_type":"1Hour"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingService struct {
	err     error
	trigger string
}

func (f *failingService) GetPendingReminders(context.Context, time.Duration) ([]domain.PendingReminder, error) {
	return nil, f.err
}

func (f *failingService) ProcessPendingReminders(ctx context.Context, _ time.Duration) (domain.BatchResult, error) {
	f.trigger = id.TriggerFromContext(ctx)
	return domain.NewBatchResult(0), f.err
}

func (f *failingService) LogReminderSent(context.Context, string, domain.Type, bool, string) (bool, error) {
	return false, f.err
}

func TestLookupFailureReturns500(t *testing.T) {
	svc := &failingService{err: alexerrors.NewStoreError("tasks_due_in_window", errors.New("password authentication failed"))}
	router := NewRouter(RouterDeps{Reminders: svc, Logger: logging.Nop()}, RouterConfig{})

	rec := serve(router, http.MethodGet, "/api/reminders/pending", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"An error occurred while fetching pending reminders"}`, rec.Body.String())

	rec = serve(router, http.MethodPost, "/api/reminders/process", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, TriggerName, svc.trigger)

	rec = serve(router, http.MethodGet, "/api/reminders/tasks/t1", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestCorrelationIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(correlationHeader, "cid-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cid-123", rec.Header().Get(correlationHeader))

	rec = serve(env.router, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get(correlationHeader))
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	serve(env.router, http.MethodPost, "/api/reminders/process", "")

	rec := serve(env.router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tasktracker_")

	router := NewRouter(RouterDeps{
		Reminders: &failingService{},
		Health:    func(context.Context) error { return errors.New("db unreachable") },
		Logger:    logging.Nop(),
	}, RouterConfig{})
	rec = serve(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
