package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vishalahire/banayan-task-tracker/internal/app/reminder"
	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	"github.com/vishalahire/banayan-task-tracker/internal/infra/amqp"
	"github.com/vishalahire/banayan-task-tracker/internal/infra/memory"
	"github.com/vishalahire/banayan-task-tracker/internal/infra/postgres"
	"github.com/vishalahire/banayan-task-tracker/internal/infra/redisstore"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/config"
)

// Container holds the wired reminder service and the backends behind it.
type Container struct {
	Service   *reminder.Service
	Tasks     domain.TaskLookup
	Store     domain.Store
	Records   domain.RecordReader
	Audit     domain.AuditRecorder
	Deliverer reminder.Deliverer

	// MemoryTasks is set when tasks live in process memory.
	MemoryTasks *memory.TaskRepository

	pool     *pgxpool.Pool
	checks   []func(ctx context.Context) error
	cleanups []func()
}

// ContainerOptions customise BuildContainer.
type ContainerOptions struct {
	// SeedTasks populate the in-memory task repository.
	SeedTasks []domain.Task
	// Deliverer replaces the configured deliverer.
	Deliverer reminder.Deliverer
}

// BuildContainer connects the configured backends and builds the service.
func BuildContainer(ctx context.Context, f *Foundation, opts ContainerOptions) (*Container, error) {
	cfg := f.Config
	c := &Container{}

	stages := []Stage{
		{Name: "postgres", Required: true, Init: func(ctx context.Context) error { return c.initPostgres(ctx, cfg) }},
		{Name: "store", Required: true, Init: func(ctx context.Context) error { return c.initStore(ctx, cfg, opts.SeedTasks) }},
		{Name: "deliverer", Required: true, Init: func(context.Context) error { return c.initDeliverer(cfg, opts.Deliverer) }},
	}
	if err := RunStages(ctx, stages, f.Degraded, f.Logger); err != nil {
		c.Close()
		return nil, err
	}

	c.Service = reminder.NewService(c.Tasks, c.Store, c.Deliverer, c.Audit,
		reminder.WithMetrics(f.Metrics),
		reminder.WithTracer(f.Tracer),
		reminder.WithWindow(cfg.Reminder.Window),
		reminder.WithConcurrency(cfg.Reminder.Concurrency),
	)
	return c, nil
}

func (c *Container) initPostgres(ctx context.Context, cfg config.Config) error {
	if cfg.Store == config.StoreMemory {
		return nil
	}
	pool, err := postgres.NewPool(ctx, cfg.Database.ConnectionString, postgres.PoolConfig{MaxConns: cfg.Database.MaxConns})
	if err != nil {
		return err
	}
	c.pool = pool
	c.cleanups = append(c.cleanups, pool.Close)
	c.checks = append(c.checks, pool.Ping)

	if cfg.Database.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return err
		}
	}
	tasks, err := postgres.NewTaskRepository(pool)
	if err != nil {
		return err
	}
	audit, err := postgres.NewAuditRecorder(pool)
	if err != nil {
		return err
	}
	c.Tasks, c.Audit = tasks, audit
	return nil
}

func (c *Container) initStore(ctx context.Context, cfg config.Config, seed []domain.Task) error {
	switch cfg.Store {
	case config.StoreMemory:
		tasks := memory.NewTaskRepository(seed...)
		store := memory.NewReminderStore()
		c.MemoryTasks = tasks
		c.Tasks, c.Store, c.Records, c.Audit = tasks, store, store, memory.NewAuditLog()
		return nil

	case config.StorePostgres:
		store, err := postgres.NewReminderStore(c.pool)
		if err != nil {
			return err
		}
		c.Store, c.Records = store, store
		return nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.cleanups = append(c.cleanups, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
		}
		store, err := redisstore.New(client, cfg.Redis.KeyPrefix)
		if err != nil {
			return err
		}
		c.Store, c.Records = store, store
		c.checks = append(c.checks, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		return nil

	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func (c *Container) initDeliverer(cfg config.Config, override reminder.Deliverer) error {
	if override != nil {
		c.Deliverer = override
		return nil
	}
	switch cfg.Deliverer {
	case config.DelivererSimulator:
		sim := reminder.NewSimulator(reminder.RandomOutcome(cfg.Reminder.SuccessRate, nil))
		sim.Delay = cfg.Reminder.SimulatedDelay
		c.Deliverer = sim
		return nil

	case config.DelivererAMQP:
		session, err := amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			return err
		}
		c.cleanups = append(c.cleanups, func() { _ = session.Close() })
		deliverer, err := amqp.NewDeliverer(session.Channel(), amqp.Config{
			Exchange:   cfg.AMQP.Exchange,
			RoutingKey: cfg.AMQP.RoutingKey,
		})
		if err != nil {
			return err
		}
		c.Deliverer = deliverer
		return nil

	default:
		return fmt.Errorf("unknown deliverer %q", cfg.Deliverer)
	}
}

// Pool returns the Postgres pool, or nil when no database is configured.
func (c *Container) Pool() *pgxpool.Pool {
	return c.pool
}

// Health pings every backend that supports it.
func (c *Container) Health(ctx context.Context) error {
	var errs []error
	for _, check := range c.checks {
		errs = append(errs, check(ctx))
	}
	return errors.Join(errs...)
}

// Close releases backends in reverse order.
func (c *Container) Close() {
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		c.cleanups[i]()
	}
	c.cleanups = nil
}
