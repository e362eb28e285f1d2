// Package redisstore keeps reminder records in Redis. The idempotency key is
// claimed with SETNX so concurrent writers converge on the first record.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
)

const DefaultPrefix = "reminder"

// cmdable is the subset of redis.Cmdable the store issues.
type cmdable interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

// Store implements domain.Store and domain.RecordReader on Redis.
type Store struct {
	rdb    cmdable
	prefix string
	logger logging.Logger
}

var (
	_ domain.Store        = (*Store)(nil)
	_ domain.RecordReader = (*Store)(nil)
)

// New wraps a Redis client. An empty prefix uses DefaultPrefix.
func New(rdb cmdable, prefix string) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("redis reminder store requires client")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix, logger: logging.NewComponentLogger("RedisReminderStore")}, nil
}

func (s *Store) recordKey(k domain.Key) string {
	k = domain.NewKey(k.TaskID, k.Type, k.DueDate)
	return fmt.Sprintf("%s:%s:%s:%d", s.prefix, k.TaskID, k.Type, k.DueDate.UnixNano())
}

func (s *Store) taskIndexKey(taskID string) string {
	return fmt.Sprintf("%s:task:%s", s.prefix, taskID)
}

// HasBeenSent implements domain.Store.
func (s *Store) HasBeenSent(ctx context.Context, key domain.Key) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.recordKey(key)).Result()
	if err != nil {
		return false, alexerrors.NewStoreError("has_been_sent", err)
	}
	return n > 0, nil
}

// Record implements domain.Store. The first writer for a key wins; later
// writers get the winner's id back.
func (s *Store) Record(ctx context.Context, rec domain.Record) (string, error) {
	rec.DueDateAtSend = domain.NormalizeDueDate(rec.DueDateAtSend)
	rec.SentAt = rec.SentAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()

	payload, err := json.Marshal(rec)
	if err != nil {
		return "", alexerrors.NewStoreError("record", err)
	}

	key := s.recordKey(rec.Key())
	created, err := s.rdb.SetNX(ctx, key, payload, 0).Result()
	if err != nil {
		return "", alexerrors.NewStoreError("record", err)
	}
	if err := s.rdb.SAdd(ctx, s.taskIndexKey(rec.TaskID), key).Err(); err != nil {
		s.logger.Warn("task index update failed for %s: %v", key, err)
	}
	if created {
		return rec.ID, nil
	}

	existing, ok, err := s.Get(ctx, rec.Key())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", alexerrors.NewStoreError("record", alexerrors.NewConflictError(rec.Key().String(), nil))
	}
	s.logger.Debug("key %s already claimed by %s", key, existing.ID)
	return existing.ID, nil
}

// Get implements domain.RecordReader.
func (s *Store) Get(ctx context.Context, key domain.Key) (domain.Record, bool, error) {
	raw, err := s.rdb.Get(ctx, s.recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, alexerrors.NewStoreError("get", err)
	}
	var rec domain.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Record{}, false, alexerrors.NewStoreError("get", fmt.Errorf("decode record: %w", err))
	}
	return rec, true, nil
}

// ListByTask implements domain.RecordReader.
func (s *Store) ListByTask(ctx context.Context, taskID string) ([]domain.Record, error) {
	keys, err := s.rdb.SMembers(ctx, s.taskIndexKey(taskID)).Result()
	if err != nil {
		return nil, alexerrors.NewStoreError("list_by_task", err)
	}

	records := make([]domain.Record, 0, len(keys))
	for _, key := range keys {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, alexerrors.NewStoreError("list_by_task", err)
		}
		var rec domain.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, alexerrors.NewStoreError("list_by_task", fmt.Errorf("decode %s: %w", key, err))
		}
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b domain.Record) int {
		if c := a.SentAt.Compare(b.SentAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return records, nil
}
