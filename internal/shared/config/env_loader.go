package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envSource resolves variables from the process environment first and the
// .env file second, reporting which one answered.
type envSource struct {
	env    EnvLookup
	dotenv map[string]string
}

func (s envSource) get(key string) (string, ValueSource, bool) {
	if value, ok := s.env(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), SourceEnv, true
	}
	dotenvLookup := AliasEnvLookup(func(k string) (string, bool) {
		v, ok := s.dotenv[k]
		return v, ok
	}, DefaultEnvAliases())
	if value, ok := dotenvLookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), SourceDotEnv, true
	}
	return "", "", false
}

func dotEnvLookup(opts loadOptions) (envSource, error) {
	base := opts.envLookup
	if base == nil {
		base = DefaultEnvLookup
	}
	src := envSource{env: AliasEnvLookup(base, DefaultEnvAliases()), dotenv: map[string]string{}}

	path := strings.TrimSpace(opts.dotEnvPath)
	if path == "" {
		return src, nil
	}
	data, err := opts.readFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return src, nil
		}
		return envSource{}, fmt.Errorf("read %s: %w", path, err)
	}
	values, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return envSource{}, fmt.Errorf("parse %s: %w", path, err)
	}
	src.dotenv = values
	return src, nil
}

func applyEnv(cfg *Config, meta *Metadata, src envSource) error {
	str := func(key, field string, dst *string) {
		if value, source, ok := src.get(key); ok {
			*dst = value
			meta.sources[field] = source
		}
	}

	str("TASKTRACKER_ENV", "environment", &cfg.Environment)
	str("TASKTRACKER_HTTP_ADDR", "http_addr", &cfg.HTTPAddr)
	str("TASKTRACKER_CONNECTION_STRING", "database.connection_string", &cfg.Database.ConnectionString)
	str("TASKTRACKER_REDIS_ADDR", "redis.addr", &cfg.Redis.Addr)
	str("TASKTRACKER_REDIS_PASSWORD", "redis.password", &cfg.Redis.Password)
	str("TASKTRACKER_AMQP_URL", "amqp.url", &cfg.AMQP.URL)
	str("TASKTRACKER_AMQP_EXCHANGE", "amqp.exchange", &cfg.AMQP.Exchange)
	str("TASKTRACKER_AMQP_ROUTING_KEY", "amqp.routing_key", &cfg.AMQP.RoutingKey)
	str("REMINDER_SCHEDULE", "reminder.schedule", &cfg.Reminder.Schedule)
	str("TASKTRACKER_LOG_LEVEL", "logging.level", &cfg.Observability.Logging.Level)
	str("TASKTRACKER_LOG_FORMAT", "logging.format", &cfg.Observability.Logging.Format)
	str("TASKTRACKER_OTLP_ENDPOINT", "tracing.otlp_endpoint", &cfg.Observability.Tracing.OTLPEndpoint)

	if value, source, ok := src.get("TASKTRACKER_STORE"); ok {
		cfg.Store = StoreKind(strings.ToLower(value))
		meta.sources["store"] = source
	}
	if value, source, ok := src.get("TASKTRACKER_DELIVERER"); ok {
		cfg.Deliverer = DelivererKind(strings.ToLower(value))
		meta.sources["deliverer"] = source
	}
	if value, source, ok := src.get("TASKTRACKER_CORS_ORIGINS"); ok {
		cfg.CORSAllowedOrigins = splitList(value)
		meta.sources["cors_allowed_origins"] = source
	}

	if value, source, ok := src.get("TASKTRACKER_DB_MAX_CONNS"); ok {
		parsed, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return fmt.Errorf("parse TASKTRACKER_DB_MAX_CONNS: %w", err)
		}
		cfg.Database.MaxConns = int32(parsed)
		meta.sources["database.max_conns"] = source
	}
	if value, source, ok := src.get("TASKTRACKER_AUTO_MIGRATE"); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parse TASKTRACKER_AUTO_MIGRATE: %w", err)
		}
		cfg.Database.AutoMigrate = parsed
		meta.sources["database.auto_migrate"] = source
	}
	if value, source, ok := src.get("TASKTRACKER_REDIS_DB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse TASKTRACKER_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = parsed
		meta.sources["redis.db"] = source
	}

	// Interval and window keep the unit-suffixed names operators already use.
	if value, source, ok := src.get("REMINDER_INTERVAL_MINUTES"); ok {
		minutes, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse REMINDER_INTERVAL_MINUTES: %w", err)
		}
		cfg.Reminder.Interval = time.Duration(minutes) * time.Minute
		meta.sources["reminder.interval"] = source
	}
	if value, source, ok := src.get("REMINDER_WINDOW_HOURS"); ok {
		hours, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse REMINDER_WINDOW_HOURS: %w", err)
		}
		cfg.Reminder.Window = time.Duration(hours) * time.Hour
		meta.sources["reminder.window"] = source
	}
	if value, source, ok := src.get("REMINDER_RUN_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parse REMINDER_RUN_TIMEOUT: %w", err)
		}
		cfg.Reminder.RunTimeout = parsed
		meta.sources["reminder.run_timeout"] = source
	}
	if value, source, ok := src.get("REMINDER_CONCURRENCY"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse REMINDER_CONCURRENCY: %w", err)
		}
		cfg.Reminder.Concurrency = parsed
		meta.sources["reminder.concurrency"] = source
	}
	if value, source, ok := src.get("REMINDER_SUCCESS_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("parse REMINDER_SUCCESS_RATE: %w", err)
		}
		cfg.Reminder.SuccessRate = parsed
		meta.sources["reminder.success_rate"] = source
	}
	if value, source, ok := src.get("TASKTRACKER_TRACING_ENABLED"); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parse TASKTRACKER_TRACING_ENABLED: %w", err)
		}
		cfg.Observability.Tracing.Enabled = parsed
		meta.sources["tracing.enabled"] = source
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
