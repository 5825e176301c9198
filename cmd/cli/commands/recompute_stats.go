package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/pkg/core/model"
	"github.com/jakechorley/oncall-rota/pkg/core/services"
)

// RecomputeStatsCmd creates the recomputeStats command
func RecomputeStatsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:         "recomputeStats <request_file> <calendar_file>",
		Short:       "Recompute stats and validation for an edited calendar JSON file",
		Args:        cobra.ExactArgs(2),
		Annotations: noDatabase(),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("recomputeStats command",
				zap.String("request_file", args[0]),
				zap.String("calendar_file", args[1]))

			req, err := model.LoadRequest(args[0])
			if err != nil {
				return err
			}

			cal, err := model.LoadCalendar(args[1])
			if err != nil {
				return err
			}

			result, err := services.RecomputeStats(req, cal, app.Cfg.HolidayRRules())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nStats for %s %d\n\n", time.Month(req.Month), req.Year)
			printStats(out, result.Stats, nil)
			fmt.Fprintln(out)
			printFairness(out, result.Fairness)
			fmt.Fprintln(out)
			printValidation(out, result.ValidationErrors)
			fmt.Fprintln(out)

			return nil
		},
	}
}
