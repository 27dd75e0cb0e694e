package main

import (
	"errors"
	"fmt"

	"fintrack/internal/cli"
	"fintrack/internal/storage"

	"github.com/spf13/cobra"
)

var errDemoDisabled = errors.New("demo seeding is disabled: set ENABLE_DEMO_USER=true")

func newSeedDemoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Create the demo user with sample data",
		Long:  `seed-demo registers ` + cli.DemoEmail + ` with sample transactions, a loan, a bill, a goal and a holding. It is a no-op when the user already exists.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.EnableDemoUser {
				return errDemoDisabled
			}
			repo, err := storage.NewSQLiteRepository(a.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			svc, _, err := cli.NewServices(a.cfg, repo, nil)
			if err != nil {
				return err
			}
			u, err := cli.SeedDemo(cmd.Context(), svc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "demo user %s (password %s)\n", u.Email, cli.DemoPassword)
			return nil
		},
	}
}
