package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vishalahire/banayan-task-tracker/internal/delivery/server/bootstrap"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/config"
)

// Flag keys shared between pflag and viper.
const (
	flagConfig      = "config"
	flagEnvFile     = "env-file"
	flagStore       = "store"
	flagDeliverer   = "deliverer"
	flagDSN         = "dsn"
	flagRedisAddr   = "redis-addr"
	flagAMQPURL     = "amqp-url"
	flagHTTPAddr    = "http-addr"
	flagAutoMigrate = "auto-migrate"
	flagInterval    = "interval"
	flagWindow      = "window"
	flagSchedule    = "schedule"
	flagConcurrency = "concurrency"
	flagSuccessRate = "success-rate"
	flagLogLevel    = "log-level"
	flagLogFormat   = "log-format"
	flagSeedDemo    = "seed-demo"
)

// CLI holds state shared by every subcommand.
type CLI struct {
	v   *viper.Viper
	out io.Writer
	// logOutput receives structured logs, kept apart from command output.
	logOutput io.Writer
}

// NewRootCommand creates the root cobra command with all subcommands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr)
}

func newRootCommand(out, logOutput io.Writer) *cobra.Command {
	cli := &CLI{v: viper.New(), out: out, logOutput: logOutput}

	root := &cobra.Command{
		Use:   "tasktracker",
		Short: "Task reminder service",
		Long: fmt.Sprintf(`%s

Determines which tasks are due for a reminder, delivers each reminder at most
once per task, reminder type and due date, and records the outcome.

%s
  tasktracker serve                      # API plus scheduled worker
  tasktracker worker --interval 1m       # scheduled worker only
  tasktracker pending --window 4h        # show what would be sent
  tasktracker process                    # run one batch now
  tasktracker migrate --dsn postgres://  # create reminder tables`,
			bold("tasktracker"), bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := cli.registerFlags(root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(
		cli.newServeCommand(),
		cli.newWorkerCommand(),
		cli.newPendingCommand(),
		cli.newProcessCommand(),
		cli.newMigrateCommand(),
	)
	return root
}

// registerFlags declares the global flags and binds them to viper.
func (cli *CLI) registerFlags(flags *pflag.FlagSet) error {
	flags.String(flagConfig, "", "Path to a YAML config file (default tasktracker.yaml)")
	flags.String(flagEnvFile, config.DefaultDotEnvFile, "Path to a .env file")
	flags.String(flagStore, "", "Reminder store: memory, postgres or redis")
	flags.String(flagDeliverer, "", "Deliverer: simulator or amqp")
	flags.String(flagDSN, "", "Postgres connection string")
	flags.String(flagRedisAddr, "", "Redis address for the redis store")
	flags.String(flagAMQPURL, "", "AMQP broker URL for the amqp deliverer")
	flags.String(flagHTTPAddr, "", "HTTP listen address")
	flags.Bool(flagAutoMigrate, false, "Create tables on startup")
	flags.Duration(flagInterval, 0, "Delay between scheduled runs")
	flags.Duration(flagWindow, 0, "Look-ahead window for due tasks")
	flags.String(flagSchedule, "", "Cron expression replacing the interval loop")
	flags.Int(flagConcurrency, 0, "Reminders processed in parallel per batch")
	flags.Float64(flagSuccessRate, 0, "Simulated delivery success rate in [0,1]")
	flags.String(flagLogLevel, "", "Log level: debug, info, warn, error")
	flags.String(flagLogFormat, "", "Log format: json or text")
	flags.Bool(flagSeedDemo, false, "Seed demo tasks when using the memory store")
	return cli.v.BindPFlags(flags)
}

// overrides collects flags the user set explicitly.
func (cli *CLI) overrides() config.Overrides {
	v := cli.v
	var o config.Overrides
	if v.IsSet(flagHTTPAddr) {
		o.HTTPAddr = ptr(v.GetString(flagHTTPAddr))
	}
	if v.IsSet(flagStore) {
		o.Store = ptr(config.StoreKind(v.GetString(flagStore)))
	}
	if v.IsSet(flagDeliverer) {
		o.Deliverer = ptr(config.DelivererKind(v.GetString(flagDeliverer)))
	}
	if v.IsSet(flagDSN) {
		o.ConnectionString = ptr(v.GetString(flagDSN))
	}
	if v.IsSet(flagAutoMigrate) {
		o.AutoMigrate = ptr(v.GetBool(flagAutoMigrate))
	}
	if v.IsSet(flagRedisAddr) {
		o.RedisAddr = ptr(v.GetString(flagRedisAddr))
	}
	if v.IsSet(flagAMQPURL) {
		o.AMQPURL = ptr(v.GetString(flagAMQPURL))
	}
	if v.IsSet(flagInterval) {
		o.ReminderInterval = ptr(v.GetDuration(flagInterval))
	}
	if v.IsSet(flagWindow) {
		o.ReminderWindow = ptr(v.GetDuration(flagWindow))
	}
	if v.IsSet(flagSchedule) {
		o.ReminderSchedule = ptr(v.GetString(flagSchedule))
	}
	if v.IsSet(flagConcurrency) {
		o.ReminderConcurrency = ptr(v.GetInt(flagConcurrency))
	}
	if v.IsSet(flagSuccessRate) {
		o.SuccessRate = ptr(v.GetFloat64(flagSuccessRate))
	}
	if v.IsSet(flagLogLevel) {
		o.LogLevel = ptr(v.GetString(flagLogLevel))
	}
	if v.IsSet(flagLogFormat) {
		o.LogFormat = ptr(v.GetString(flagLogFormat))
	}
	return o
}

func (cli *CLI) configOptions() []config.Option {
	opts := []config.Option{
		config.WithOverrides(cli.overrides()),
		config.WithDotEnvPath(cli.v.GetString(flagEnvFile)),
	}
	if path := cli.v.GetString(flagConfig); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	return opts
}

func (cli *CLI) foundation(ctx context.Context) (*bootstrap.Foundation, error) {
	return bootstrap.BootstrapFoundation(ctx, bootstrap.FoundationOptions{
		ConfigOptions: cli.configOptions(),
		LogOutput:     cli.logOutput,
	})
}

// withContainer bootstraps everything, runs fn, then releases resources.
func (cli *CLI) withContainer(ctx context.Context, fn func(*bootstrap.Foundation, *bootstrap.Container) error) error {
	seed := cli.v.GetBool(flagSeedDemo)
	// An explicit --store is checked before config validation can reject it
	// for unrelated reasons.
	if seed {
		if store := cli.overrides().Store; store != nil && *store != config.StoreMemory {
			return errSeedDemoStore()
		}
	}

	f, err := cli.foundation(ctx)
	if err != nil {
		return err
	}
	defer f.Cleanup()

	var opts bootstrap.ContainerOptions
	if seed {
		if f.Config.Store != config.StoreMemory {
			return errSeedDemoStore()
		}
		opts.SeedTasks = demoTasks(time.Now())
	}
	c, err := bootstrap.BuildContainer(ctx, f, opts)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(f, c)
}

func errSeedDemoStore() error {
	return fmt.Errorf("--%s requires the memory store", flagSeedDemo)
}

func ptr[T any](v T) *T {
	return &v
}
