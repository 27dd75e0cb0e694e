package main

import (
	"fmt"

	"fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RunMigrations(a.cfg.SQLiteDBPath); err != nil {
				return err
			}
			a.logger.Info("Migrations applied", "path", a.cfg.SQLiteDBPath)
			return printVersion(cmd, a.cfg.SQLiteDBPath)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("steps must be at least 1, got %d", steps)
			}
			if err := storage.RollbackMigrations(a.cfg.SQLiteDBPath, steps); err != nil {
				return err
			}
			a.logger.Info("Migrations rolled back", "steps", steps, log.FieldOperation, "migrate_down")
			return printVersion(cmd, a.cfg.SQLiteDBPath)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to revert")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd, a.cfg.SQLiteDBPath)
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(cmd *cobra.Command, dbPath string) error {
	v, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", v)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
	return nil
}
