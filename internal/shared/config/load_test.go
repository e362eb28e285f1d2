package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeFS(files map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return []byte(data), nil
	}
}

func envMap(values map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, meta, err := Load(WithEnv(envMap(nil)), WithFileReader(fakeFS(nil)))
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, DelivererSimulator, cfg.Deliverer)
	assert.Equal(t, 5*time.Minute, cfg.Reminder.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Reminder.Window)
	assert.Equal(t, 1, cfg.Reminder.Concurrency)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, SourceDefault, meta.Source("reminder.interval"))
	assert.Empty(t, meta.Path())
	assert.False(t, meta.LoadedAt().IsZero())
	assert.False(t, Validate(cfg).HasErrors())
}

func TestLoadPrecedence(t *testing.T) {
	files := map[string]string{
		"tasktracker.yaml": `
store: postgres
http_addr: ":9000"
database:
  connection_string: postgres://file/db
  auto_migrate: true
reminder:
  interval: 10m
  window: 12h
  concurrency: 4
observability:
  logging:
    level: debug
`,
		".env": "REMINDER_WINDOW_HOURS=6\nTASKTRACKER_REDIS_ADDR=dotenv:6379\n",
	}
	env := envMap(map[string]string{
		"TASKTRACKER_CONNECTION_STRING": "postgres://env/db",
		"REMINDER_WINDOW_HOURS":         "",
	})
	addr := ":7000"

	cfg, meta, err := Load(
		WithEnv(env),
		WithFileReader(fakeFS(files)),
		WithOverrides(Overrides{HTTPAddr: &addr}),
	)
	require.NoError(t, err)

	assert.Equal(t, "tasktracker.yaml", meta.Path())
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, SourceFile, meta.Source("store"))
	assert.Equal(t, "postgres://env/db", cfg.Database.ConnectionString)
	assert.Equal(t, SourceEnv, meta.Source("database.connection_string"))
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 10*time.Minute, cfg.Reminder.Interval)
	assert.Equal(t, 6*time.Hour, cfg.Reminder.Window)
	assert.Equal(t, SourceDotEnv, meta.Source("reminder.window"))
	assert.Equal(t, "dotenv:6379", cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.Reminder.Concurrency)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, SourceOverride, meta.Source("http_addr"))
}

func TestLoadLegacyConnectionStringAlias(t *testing.T) {
	env := envMap(map[string]string{"ConnectionStrings__DefaultConnection": "postgres://legacy/db"})
	cfg, meta, err := Load(WithEnv(env), WithFileReader(fakeFS(nil)))
	require.NoError(t, err)
	assert.Equal(t, "postgres://legacy/db", cfg.Database.ConnectionString)
	assert.Equal(t, SourceEnv, meta.Source("database.connection_string"))
}

func TestLoadExplicitConfigPathMustExist(t *testing.T) {
	_, _, err := Load(WithEnv(envMap(nil)), WithFileReader(fakeFS(nil)), WithConfigPath("/etc/tasktracker.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	env := envMap(map[string]string{"TASKTRACKER_CONFIG": "/srv/custom.yaml"})
	cfg, meta, err := Load(WithEnv(env), WithFileReader(fakeFS(map[string]string{"/srv/custom.yaml": "deliverer: amqp\n"})))
	require.NoError(t, err)
	assert.Equal(t, DelivererAMQP, cfg.Deliverer)
	assert.Equal(t, "/srv/custom.yaml", meta.Path())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	_, _, err := Load(WithEnv(envMap(map[string]string{"REMINDER_INTERVAL_MINUTES": "soon"})), WithFileReader(fakeFS(nil)))
	assert.ErrorContains(t, err, "REMINDER_INTERVAL_MINUTES")

	files := map[string]string{"tasktracker.yaml": "reminder:\n  window: forever\n"}
	_, _, err = Load(WithEnv(envMap(nil)), WithFileReader(fakeFS(files)))
	assert.ErrorContains(t, err, "reminder.window")

	files = map[string]string{"tasktracker.yaml": "store: [unclosed"}
	_, _, err = Load(WithEnv(envMap(nil)), WithFileReader(fakeFS(files)))
	assert.ErrorContains(t, err, "parse config file")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store = StorePostgres
	cfg.Deliverer = DelivererAMQP
	cfg.Reminder.Concurrency = 0
	cfg.Reminder.SuccessRate = 1.5

	report := Validate(cfg)
	require.True(t, report.HasErrors())
	ids := make([]string, 0, len(report.Errors))
	for _, issue := range report.Errors {
		ids = append(ids, issue.ID)
	}
	assert.ElementsMatch(t, []string{"database-dsn", "amqp-url", "reminder-concurrency", "success-rate"}, ids)
	assert.ErrorContains(t, report.Err(), "postgres store requires a connection string")

	cfg = Default()
	cfg.Store = "mongo"
	assert.ErrorContains(t, Validate(cfg).Err(), `unknown store "mongo"`)

	assert.NoError(t, Validate(Default()).Err())
	assert.NotEmpty(t, Validate(Default()).Warnings)
}
