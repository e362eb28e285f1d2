package config

import (
	"os"
	"strings"
	"time"
)

// EnvLookup resolves the value for an environment variable.
type EnvLookup func(string) (string, bool)

// Option customises the loader behaviour.
type Option func(*loadOptions)

type loadOptions struct {
	envLookup  EnvLookup
	readFile   func(string) ([]byte, error)
	overrides  Overrides
	configPath string
	dotEnvPath string
}

// WithEnv supplies a custom environment lookup implementation.
func WithEnv(lookup EnvLookup) Option {
	return func(o *loadOptions) {
		o.envLookup = lookup
	}
}

// WithOverrides applies caller overrides that take highest precedence.
func WithOverrides(overrides Overrides) Option {
	return func(o *loadOptions) {
		o.overrides = overrides
	}
}

// WithConfigPath forces the loader to read configuration from a specific file.
func WithConfigPath(path string) Option {
	return func(o *loadOptions) {
		o.configPath = path
	}
}

// WithDotEnvPath changes which .env file is consulted.
func WithDotEnvPath(path string) Option {
	return func(o *loadOptions) {
		o.dotEnvPath = path
	}
}

// WithFileReader injects a custom reader, used primarily for tests.
func WithFileReader(reader func(string) ([]byte, error)) Option {
	return func(o *loadOptions) {
		o.readFile = reader
	}
}

// DefaultEnvLookup delegates to os.LookupEnv.
func DefaultEnvLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// DefaultEnvAliases maps canonical variable names to the legacy names still
// accepted for them.
func DefaultEnvAliases() map[string][]string {
	return map[string][]string{
		"TASKTRACKER_CONNECTION_STRING": {"ConnectionStrings__DefaultConnection", "DATABASE_URL"},
		"TASKTRACKER_REDIS_ADDR":        {"REDIS_ADDR"},
		"TASKTRACKER_AMQP_URL":          {"AMQP_URL", "RABBITMQ_URL"},
		"TASKTRACKER_ENV":               {"ASPNETCORE_ENVIRONMENT", "ENVIRONMENT"},
	}
}

// AliasEnvLookup wraps an EnvLookup with additional alias keys.
func AliasEnvLookup(base EnvLookup, aliases map[string][]string) EnvLookup {
	if base == nil {
		base = DefaultEnvLookup
	}
	return func(key string) (string, bool) {
		if value, ok := base(key); ok && value != "" {
			return value, true
		}
		for _, alias := range aliases[key] {
			if value, ok := base(alias); ok && value != "" {
				return value, true
			}
		}
		return "", false
	}
}

// Load constructs the configuration by merging defaults, file, .env, env and overrides.
func Load(opts ...Option) (Config, Metadata, error) {
	options := loadOptions{
		envLookup:  DefaultEnvLookup,
		readFile:   os.ReadFile,
		dotEnvPath: DefaultDotEnvFile,
	}
	for _, opt := range opts {
		opt(&options)
	}

	meta := Metadata{sources: map[string]ValueSource{}, loadedAt: time.Now()}
	cfg := Default()

	if err := applyFile(&cfg, &meta, options); err != nil {
		return Config{}, Metadata{}, err
	}

	lookup, err := dotEnvLookup(options)
	if err != nil {
		return Config{}, Metadata{}, err
	}
	if err := applyEnv(&cfg, &meta, lookup); err != nil {
		return Config{}, Metadata{}, err
	}

	applyOverrides(&cfg, &meta, options.overrides)
	return cfg, meta, nil
}

func applyOverrides(cfg *Config, meta *Metadata, o Overrides) {
	set := func(field string) { meta.sources[field] = SourceOverride }

	if o.HTTPAddr != nil && strings.TrimSpace(*o.HTTPAddr) != "" {
		cfg.HTTPAddr = *o.HTTPAddr
		set("http_addr")
	}
	if o.Store != nil && *o.Store != "" {
		cfg.Store = *o.Store
		set("store")
	}
	if o.Deliverer != nil && *o.Deliverer != "" {
		cfg.Deliverer = *o.Deliverer
		set("deliverer")
	}
	if o.ConnectionString != nil && *o.ConnectionString != "" {
		cfg.Database.ConnectionString = *o.ConnectionString
		set("database.connection_string")
	}
	if o.AutoMigrate != nil {
		cfg.Database.AutoMigrate = *o.AutoMigrate
		set("database.auto_migrate")
	}
	if o.RedisAddr != nil && *o.RedisAddr != "" {
		cfg.Redis.Addr = *o.RedisAddr
		set("redis.addr")
	}
	if o.AMQPURL != nil && *o.AMQPURL != "" {
		cfg.AMQP.URL = *o.AMQPURL
		set("amqp.url")
	}
	if o.ReminderInterval != nil && *o.ReminderInterval > 0 {
		cfg.Reminder.Interval = *o.ReminderInterval
		set("reminder.interval")
	}
	if o.ReminderWindow != nil && *o.ReminderWindow > 0 {
		cfg.Reminder.Window = *o.ReminderWindow
		set("reminder.window")
	}
	if o.ReminderSchedule != nil {
		cfg.Reminder.Schedule = strings.TrimSpace(*o.ReminderSchedule)
		set("reminder.schedule")
	}
	if o.ReminderConcurrency != nil && *o.ReminderConcurrency > 0 {
		cfg.Reminder.Concurrency = *o.ReminderConcurrency
		set("reminder.concurrency")
	}
	if o.SuccessRate != nil {
		cfg.Reminder.SuccessRate = *o.SuccessRate
		set("reminder.success_rate")
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		cfg.Observability.Logging.Level = *o.LogLevel
		set("logging.level")
	}
	if o.LogFormat != nil && *o.LogFormat != "" {
		cfg.Observability.Logging.Format = *o.LogFormat
		set("logging.format")
	}
}
