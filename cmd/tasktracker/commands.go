package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vishalahire/banayan-task-tracker/internal/delivery/server/bootstrap"
	"github.com/vishalahire/banayan-task-tracker/internal/infra/postgres"
	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

// cliTrigger tags batches started from the command line.
const cliTrigger = "cli"

func (cli *CLI) newServeCommand() *cobra.Command {
	var noScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reminder API and run the scheduled worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.withContainer(cmd.Context(), func(f *bootstrap.Foundation, c *bootstrap.Container) error {
				return bootstrap.RunServer(cmd.Context(), f, c, bootstrap.ServerOptions{DisableScheduler: noScheduler})
			})
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Serve the API without the background worker")
	return cmd
}

func (cli *CLI) newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the scheduled reminder worker without the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.withContainer(cmd.Context(), func(f *bootstrap.Foundation, c *bootstrap.Container) error {
				return bootstrap.RunWorker(cmd.Context(), f, c)
			})
		},
	}
}

func (cli *CLI) newPendingCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List reminders that are due within the window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.withContainer(cmd.Context(), func(f *bootstrap.Foundation, c *bootstrap.Container) error {
				pending, err := c.Service.GetPendingReminders(cmd.Context(), f.Config.Reminder.Window)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cli.out, pending)
				}
				renderPending(cli.out, pending, useColor())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func (cli *CLI) newProcessCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process pending reminders once and print the batch result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.withContainer(cmd.Context(), func(f *bootstrap.Foundation, c *bootstrap.Container) error {
				ctx := id.WithRunID(cmd.Context(), id.NewRunID())
				ctx = id.WithTrigger(ctx, cliTrigger)
				result, err := c.Service.ProcessPendingReminders(ctx, f.Config.Reminder.Window)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cli.out, result)
				}
				renderBatch(cli.out, result, useColor())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a summary")
	return cmd
}

func (cli *CLI) newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the reminder tables in Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := cli.foundation(cmd.Context())
			if err != nil {
				return err
			}
			defer f.Cleanup()
			return migrate(cmd.Context(), f)
		},
	}
}

func migrate(ctx context.Context, f *bootstrap.Foundation) error {
	dsn := f.Config.Database.ConnectionString
	if dsn == "" {
		return fmt.Errorf("migrate: no connection string configured")
	}
	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{MaxConns: 1})
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	f.Logger.Info("Schema is up to date")
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
