package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/oncall-rota/pkg/core/services"
)

// ListSchedulesCmd creates the listSchedules command
func ListSchedulesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listSchedules",
		Short: "List saved schedules, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schedules, err := services.ListSchedules(app.Ctx, app.Database, app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(schedules) == 0 {
				fmt.Fprintln(out, "No schedules found - run generateSchedule to create one.")
				return nil
			}

			fmt.Fprintf(out, "\nFound %d schedules:\n\n", len(schedules))
			for _, s := range schedules {
				fmt.Fprintf(out, "- %s  %04d-%02d  %-13s seed %-20d created %s\n",
					s.ID, s.Year, s.Month, s.Scenario, s.Seed, s.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(out)

			return nil
		},
	}
}
