package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
	"github.com/jakechorley/oncall-rota/pkg/core/services"
)

// EditDayCmd creates the editDay command
func EditDayCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editDay <schedule_id> <day>",
		Short: "Manually replace the assignment of one day",
		Long: `Manually replace the assignment of one day of a saved schedule.
Both lines are replaced; omit --line1 for a single-coverage day.
Stats and validation are recomputed and printed afterwards.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("day must be a number: %w", err)
			}

			line1, _ := cmd.Flags().GetString("line1")
			line2, _ := cmd.Flags().GetString("line2")
			coverage, _ := cmd.Flags().GetString("coverage")

			app.Logger.Debug("editDay command",
				zap.String("schedule_id", args[0]),
				zap.Int("day", day),
				zap.String("line1", line1),
				zap.String("line2", line2),
				zap.String("coverage", coverage))

			view, err := services.EditScheduleDay(app.Ctx, app.Database, app.Logger, args[0], services.DayEdit{
				Day:      day,
				Line1:    line1,
				Line2:    line2,
				Coverage: allocator.Coverage(coverage),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Day %d updated\n", day)
			printScheduleView(cmd, view)
			return nil
		},
	}

	cmd.Flags().String("line1", "", "Resident on line-1 (junior line)")
	cmd.Flags().String("line2", "", "Resident on line-2 (senior line)")
	cmd.Flags().String("coverage", "", "single or double (inferred from the lines when omitted)")

	return cmd
}
