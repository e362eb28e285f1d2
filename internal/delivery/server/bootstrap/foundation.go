package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vishalahire/banayan-task-tracker/internal/observability"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/config"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
)

// Foundation holds what every command needs before backends are wired:
// configuration, logging, metrics and tracing. Create it with
// BootstrapFoundation and defer Cleanup.
type Foundation struct {
	Config   config.Config
	Meta     config.Metadata
	Logger   logging.Logger
	Metrics  *observability.ReminderMetrics
	Tracer   *observability.TracerProvider
	Degraded *DegradedComponents

	cleanups []func()
}

// FoundationOptions customise BootstrapFoundation.
type FoundationOptions struct {
	ConfigOptions []config.Option
	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

// BootstrapFoundation loads and validates configuration, then initialises
// logging, metrics and tracing.
func BootstrapFoundation(ctx context.Context, opts FoundationOptions) (*Foundation, error) {
	cfg, meta, err := config.Load(opts.ConfigOptions...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	report := config.Validate(cfg)
	if err := report.Err(); err != nil {
		return nil, err
	}

	obsLogger := observability.NewLogger(observability.LogConfig{
		Level:   cfg.Observability.Logging.Level,
		Format:  cfg.Observability.Logging.Format,
		Output:  opts.LogOutput,
		Service: cfg.Observability.Tracing.ServiceName,
	})
	logging.Configure(obsLogger)
	logger := logging.NewComponentLogger("Main")

	f := &Foundation{
		Config:   cfg,
		Meta:     meta,
		Logger:   logger,
		Degraded: NewDegradedComponents(),
		Tracer:   observability.NoopTracerProvider(),
	}
	for _, issue := range report.Warnings {
		logger.Warn("config: %s", issue.Message)
	}
	logConfiguration(logger, cfg, meta)

	stages := []Stage{
		{
			Name: "metrics", Required: false,
			Init: func(context.Context) error {
				if cfg.Observability.Metrics.Enabled {
					f.Metrics = observability.DefaultReminderMetrics()
				}
				return nil
			},
		},
		{
			Name: "tracing", Required: false,
			Init: func(ctx context.Context) error {
				tracing := cfg.Observability.Tracing
				tracing.Environment = cfg.Environment
				tp, err := observability.NewTracerProvider(ctx, tracing)
				if err != nil {
					return err
				}
				f.Tracer = tp
				f.addCleanup(func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := tp.Shutdown(shutdownCtx); err != nil {
						logger.Warn("tracer shutdown: %v", err)
					}
				})
				return nil
			},
		},
	}
	if err := RunStages(ctx, stages, f.Degraded, logger); err != nil {
		f.Cleanup()
		return nil, err
	}
	return f, nil
}

func (f *Foundation) addCleanup(fn func()) {
	f.cleanups = append(f.cleanups, fn)
}

// Cleanup releases resources in reverse order of acquisition.
func (f *Foundation) Cleanup() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
	f.cleanups = nil
}

func logConfiguration(logger logging.Logger, cfg config.Config, meta config.Metadata) {
	logger.Info("=== Task tracker configuration ===")
	if path := meta.Path(); path != "" {
		logger.Info("Config file: %s", path)
	}
	logger.Info("Environment: %s", cfg.Environment)
	logger.Info("Store: %s (%s)", cfg.Store, meta.Source("store"))
	logger.Info("Deliverer: %s (%s)", cfg.Deliverer, meta.Source("deliverer"))
	if cfg.Database.ConnectionString != "" {
		logger.Info("Database: %s", observability.RedactConnectionString(cfg.Database.ConnectionString))
	}
	if cfg.Store == config.StoreRedis {
		logger.Info("Redis: %s", cfg.Redis.Addr)
	}
	logger.Info("Reminder interval: %s (%s), window: %s (%s)",
		cfg.Reminder.Interval, meta.Source("reminder.interval"),
		cfg.Reminder.Window, meta.Source("reminder.window"))
	if cfg.Reminder.Schedule != "" {
		logger.Info("Reminder schedule: %s", cfg.Reminder.Schedule)
	}
	logger.Info("==================================")
}
