// Package config loads the task tracker runtime configuration from defaults,
// a YAML file, a .env file, the process environment and caller overrides.
package config

import (
	"time"

	"github.com/vishalahire/banayan-task-tracker/internal/observability"
)

// ValueSource describes where a configuration value originated from.
type ValueSource string

const (
	SourceDefault  ValueSource = "default"
	SourceFile     ValueSource = "file"
	SourceDotEnv   ValueSource = "dotenv"
	SourceEnv      ValueSource = "environment"
	SourceOverride ValueSource = "override"
)

// StoreKind selects the idempotency store and task lookup backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
	StoreRedis    StoreKind = "redis"
)

// DelivererKind selects how reminders leave the process.
type DelivererKind string

const (
	DelivererSimulator DelivererKind = "simulator"
	DelivererAMQP      DelivererKind = "amqp"
)

const (
	DefaultHTTPAddr         = ":8080"
	DefaultReminderInterval = 5 * time.Minute
	DefaultReminderWindow   = 24 * time.Hour
	DefaultSuccessRate      = 0.95
	DefaultSimulatedDelay   = 100 * time.Millisecond
	DefaultAMQPExchange     = "reminders"
	DefaultAMQPRoutingKey   = "reminder.due"
	DefaultRedisKeyPrefix   = "reminder"
	DefaultConfigFile       = "tasktracker.yaml"
	DefaultDotEnvFile       = ".env"
)

// Config captures every setting shared by the serve, worker and one-shot commands.
type Config struct {
	Environment        string
	HTTPAddr           string
	CORSAllowedOrigins []string
	Store              StoreKind
	Deliverer          DelivererKind
	Database           DatabaseConfig
	Redis              RedisConfig
	AMQP               AMQPConfig
	Reminder           ReminderConfig
	Observability      observability.Config
}

// DatabaseConfig configures the Postgres pool.
type DatabaseConfig struct {
	ConnectionString string
	MaxConns         int32
	AutoMigrate      bool
}

// RedisConfig configures the Redis idempotency store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// AMQPConfig configures the broker deliverer.
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// ReminderConfig tunes the scheduled runner and the orchestrator.
type ReminderConfig struct {
	Interval       time.Duration
	Window         time.Duration
	Schedule       string
	RunTimeout     time.Duration
	Concurrency    int
	SuccessRate    float64
	SimulatedDelay time.Duration
}

// Metadata contains provenance details for loaded configuration.
type Metadata struct {
	sources  map[string]ValueSource
	loadedAt time.Time
	path     string
}

// Source returns the origin for the given configuration field.
func (m Metadata) Source(field string) ValueSource {
	if m.sources == nil {
		return SourceDefault
	}
	if src, ok := m.sources[field]; ok {
		return src
	}
	return SourceDefault
}

// LoadedAt returns the timestamp when the configuration was constructed.
func (m Metadata) LoadedAt() time.Time {
	return m.loadedAt
}

// Path is the config file that was read, or empty when none was found.
func (m Metadata) Path() string {
	return m.path
}

// Overrides conveys caller-specified values that win over every other source.
type Overrides struct {
	HTTPAddr            *string
	Store               *StoreKind
	Deliverer           *DelivererKind
	ConnectionString    *string
	AutoMigrate         *bool
	RedisAddr           *string
	AMQPURL             *string
	ReminderInterval    *time.Duration
	ReminderWindow      *time.Duration
	ReminderSchedule    *string
	ReminderConcurrency *int
	SuccessRate         *float64
	LogLevel            *string
	LogFormat           *string
}

// Default returns the configuration used before any source is applied.
func Default() Config {
	return Config{
		Environment: "development",
		HTTPAddr:    DefaultHTTPAddr,
		Store:       StoreMemory,
		Deliverer:   DelivererSimulator,
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Redis: RedisConfig{
			KeyPrefix: DefaultRedisKeyPrefix,
		},
		AMQP: AMQPConfig{
			Exchange:   DefaultAMQPExchange,
			RoutingKey: DefaultAMQPRoutingKey,
		},
		Reminder: ReminderConfig{
			Interval:       DefaultReminderInterval,
			Window:         DefaultReminderWindow,
			Concurrency:    1,
			SuccessRate:    DefaultSuccessRate,
			SimulatedDelay: DefaultSimulatedDelay,
		},
		Observability: observability.DefaultConfig(),
	}
}
