package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Info("Running database migrations")
			applied, err := app.Database.RunMigrations(app.Ctx)
			for _, filename := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "  applied %s\n", filename)
			}
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Database is up to date")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Applied %d migration(s)\n", len(applied))
			return nil
		},
	}
}
