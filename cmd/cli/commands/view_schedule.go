package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/pkg/core/services"
)

// ViewScheduleCmd creates the viewSchedule command
func ViewScheduleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "viewSchedule [schedule_id]",
		Short: "View a saved schedule with recomputed stats (defaults to latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) > 0 {
				id = args[0]
			}

			app.Logger.Debug("viewSchedule command", zap.String("schedule_id", id))

			view, err := services.ViewSchedule(app.Ctx, app.Database, app.Logger, id)
			if err != nil {
				return err
			}

			printScheduleView(cmd, view)
			return nil
		},
	}
}

func printScheduleView(cmd *cobra.Command, view *services.ScheduleView) {
	out := cmd.OutOrStdout()
	s := view.Schedule
	month := time.Month(s.Month)

	fmt.Fprintf(out, "\nSchedule %s - %s %d\n", s.ID, month, s.Year)
	fmt.Fprintf(out, "Scenario: %s\n", view.Plan.Scenario.Label())
	fmt.Fprintf(out, "Seed: %d (attempts used: %d)\n", s.Seed, s.Attempts)
	if !s.UpdatedAt.Equal(s.CreatedAt) {
		fmt.Fprintf(out, "Edited: %s\n", s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(out)

	printCalendar(out, s.Year, month, view.Calendar, view.FlapDays, view.HolidayDays)
	fmt.Fprintln(out)
	printStats(out, view.Stats, view.Plan.Quotas)
	fmt.Fprintln(out)
	printFairness(out, view.Fairness)
	fmt.Fprintln(out)
	printValidation(out, view.ValidationErrors)
	fmt.Fprintln(out)
}
