package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vishalahire/banayan-task-tracker/internal/app/scheduler"
	serverhttp "github.com/vishalahire/banayan-task-tracker/internal/delivery/server/http"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/async"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
)

const shutdownTimeout = 10 * time.Second

// ServerOptions customise RunServer.
type ServerOptions struct {
	// DisableScheduler serves the API without the background runner.
	DisableScheduler bool
}

// NewRunner builds the scheduled runner from the reminder configuration.
func NewRunner(f *Foundation, c *Container) *scheduler.Runner {
	cfg := f.Config.Reminder
	return scheduler.New(scheduler.Config{
		Interval:   cfg.Interval,
		Window:     cfg.Window,
		Schedule:   cfg.Schedule,
		RunOnStart: true,
		RunTimeout: cfg.RunTimeout,
	}, c.Service, LoggingNotifier(f.Logger), logging.NewComponentLogger("ReminderRunner"))
}

// LoggingNotifier writes each run report to logger.
func LoggingNotifier(logger logging.Logger) scheduler.Notifier {
	logger = logging.OrNop(logger)
	return scheduler.NotifierFunc(func(_ context.Context, report scheduler.Report) error {
		if report.Err != nil {
			logger.Warn("%s", report.Summary())
			return nil
		}
		logger.Info("%s", report.Summary())
		return nil
	})
}

// NewHTTPServer builds the API server for the container.
func NewHTTPServer(f *Foundation, c *Container) *http.Server {
	deps := serverhttp.RouterDeps{
		Reminders: c.Service,
		Records:   c.Records,
		Health:    c.Health,
		Logger:    logging.NewComponentLogger("HTTP"),
	}
	if f.Metrics != nil {
		deps.Metrics = f.Metrics.Handler()
	}
	router := serverhttp.NewRouter(deps, serverhttp.RouterConfig{
		Environment:        f.Config.Environment,
		CORSAllowedOrigins: f.Config.CORSAllowedOrigins,
		MetricsPath:        f.Config.Observability.Metrics.Path,
	})
	return serverhttp.NewServer(f.Config.HTTPAddr, router)
}

// RunServer serves the API and, unless disabled, runs the scheduler
// alongside it. It returns once ctx is canceled and both have stopped.
func RunServer(ctx context.Context, f *Foundation, c *Container, opts ServerOptions) error {
	server := NewHTTPServer(f, c)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serveUntilDone(gctx, server, f.Logger)
	})
	if !opts.DisableScheduler {
		runner := NewRunner(f, c)
		g.Go(func() error {
			return runner.Run(gctx)
		})
	} else {
		f.Logger.Info("Scheduler disabled; reminders are processed only via the API")
	}
	return g.Wait()
}

// RunWorker runs only the scheduler until ctx is canceled.
func RunWorker(ctx context.Context, f *Foundation, c *Container) error {
	return NewRunner(f, c).Run(ctx)
}

func serveUntilDone(ctx context.Context, server *http.Server, logger logging.Logger) error {
	logger = logging.OrNop(logger)

	errCh := async.Run(logger, "server.listen", func() error {
		logger.Info("Server listening on %s", server.Addr)
		return server.ListenAndServe()
	})

	select {
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		shutdownErr := server.Shutdown(shutdownCtx)

		serveErr := <-errCh
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
		if shutdownErr != nil {
			return fmt.Errorf("shutdown: %w", shutdownErr)
		}
		if serveErr != nil {
			return fmt.Errorf("server error: %w", serveErr)
		}
		logger.Info("Server stopped")
		return nil
	}
}
