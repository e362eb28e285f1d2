// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vishalahire/banayan-task-tracker/internal/shared/config"
)

// TestDatabaseEnv names the variable that enables Postgres integration tests.
const TestDatabaseEnv = "TASKTRACKER_TEST_DATABASE_URL"

// PostgresPool connects to the database named by TestDatabaseEnv and pins the
// pool's search_path to a throwaway schema that is dropped when t finishes.
// The test is skipped when the variable is unset.
func PostgresPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw, _ := config.DefaultEnvLookup(TestDatabaseEnv)
	dsn := strings.TrimSpace(raw)
	if dsn == "" {
		t.Skipf("%s not set", TestDatabaseEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	if err := admin.Ping(ctx); err != nil {
		admin.Close()
		t.Fatalf("ping postgres: %v", err)
	}

	schema := fmt.Sprintf("reminder_test_%d", time.Now().UnixNano())
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		admin.Close()
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		admin.Close()
		t.Fatalf("connect schema pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = admin.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})
	return pool
}
