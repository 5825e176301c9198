package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/pkg/core/model"
	"github.com/jakechorley/oncall-rota/pkg/core/services"
)

// GenerateScheduleCmd creates the generateSchedule command
func GenerateScheduleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generateSchedule <request_file>",
		Short: "Generate a month's on-call schedule from a request document",
		Long: `Generate a month's on-call schedule from a YAML or JSON request document.
The schedule is saved to the database unless --dry-run is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			attempts, _ := cmd.Flags().GetInt("attempts")
			workers, _ := cmd.Flags().GetInt("workers")
			output, _ := cmd.Flags().GetString("output")

			opts := services.GenerateOptions{
				MaxAttempts: attempts,
				Workers:     workers,
				DryRun:      dryRun,
			}
			if cmd.Flags().Changed("seed") {
				seed, _ := cmd.Flags().GetInt64("seed")
				opts.Seed = &seed
			}

			app.Logger.Debug("generateSchedule command",
				zap.String("request_file", args[0]),
				zap.Bool("dry_run", dryRun),
				zap.Int("attempts", attempts),
				zap.Int("workers", workers))

			req, err := model.LoadRequest(args[0])
			if err != nil {
				return err
			}

			result, err := services.GenerateSchedule(app.Ctx, app.Database, app.Cfg, app.Logger, app.Recorder, req, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			outcome := result.Outcome

			fmt.Fprintf(out, "\n✓ Schedule generated for %s %d\n\n", result.Request.Month, result.Request.Year)
			fmt.Fprintf(out, "Scenario: %s\n", outcome.Plan.Scenario.Label())
			fmt.Fprintf(out, "Double days: %d of %d\n", len(outcome.Calendar)-outcome.Calendar.SingleDays(), len(outcome.Calendar))
			fmt.Fprintf(out, "Seed: %d (attempts used: %d)\n\n", outcome.Seed, outcome.Attempts)

			printCalendar(out, result.Request.Year, result.Request.Month, outcome.Calendar, result.Request.FlapDays, result.Request.HolidayDays)
			fmt.Fprintln(out)
			printStats(out, outcome.Stats, outcome.Plan.Quotas)
			fmt.Fprintln(out)
			printFairness(out, outcome.Fairness)
			fmt.Fprintln(out)
			printValidation(out, outcome.ValidationErrors)

			if output != "" {
				data, err := json.MarshalIndent(outcome.Calendar, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode calendar: %w", err)
				}
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("failed to write calendar file: %w", err)
				}
				fmt.Fprintf(out, "\nCalendar written to %s\n", output)
			}

			if result.Saved {
				fmt.Fprintf(out, "\n✓ Saved as schedule %s\n\n", result.ScheduleID)
			} else {
				fmt.Fprintf(out, "\nDRY RUN - schedule not saved\n\n")
			}

			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "Seed for random decisions (overrides the request document)")
	cmd.Flags().Int("attempts", 0, "Maximum allocation attempts (defaults to config maxAttempts)")
	cmd.Flags().Int("workers", 0, "Attempts to run concurrently (defaults to config workers)")
	cmd.Flags().Bool("dry-run", false, "Run without saving to database")
	cmd.Flags().StringP("output", "o", "", "Also write the calendar as JSON to this file")

	return cmd
}
