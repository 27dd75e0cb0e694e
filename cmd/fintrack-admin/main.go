// Command fintrack-admin runs maintenance tasks against the fintrack
// database and previews the calculators from the command line.
package main

import (
	"fmt"
	"os"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"

	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "fintrack-admin",
		Short:         "Administrative tasks for fintrack",
		Long:          `fintrack-admin applies schema migrations, seeds demo data and previews loan schedules and categorization.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			a.cfg = config.Load()
			a.logger = cli.SetupLogger(log.ComponentAdmin, a.cfg.LogLevel)
			if path, _ := cmd.Flags().GetString("db"); path != "" {
				a.cfg.SQLiteDBPath = path
			}
			return nil
		},
	}
	root.PersistentFlags().String("db", "", "SQLite database path (default: $SQLITE_DB_PATH)")

	root.AddCommand(
		newMigrateCmd(a),
		newSeedDemoCmd(a),
		newScheduleCmd(),
		newCategorizeCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
