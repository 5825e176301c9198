package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
)

// printCalendar writes one row per day with coverage, both lines and day tags
func printCalendar(w io.Writer, year int, month time.Month, cal allocator.Calendar, flapDays, holidayDays []int) {
	flap := make(map[int]bool, len(flapDays))
	for _, d := range flapDays {
		flap[d] = true
	}
	holiday := make(map[int]bool, len(holidayDays))
	for _, d := range holidayDays {
		holiday[d] = true
	}

	nameWidth := 10
	for _, plan := range cal {
		nameWidth = max(nameWidth, len(plan.Line1)+2, len(plan.Line2)+2)
	}

	fmt.Fprintf(w, "%-12s %-8s %-*s %-*s %s\n", "Date", "Cover", nameWidth, "Line 1", nameWidth, "Line 2", "Notes")
	fmt.Fprintln(w, strings.Repeat("-", 12+1+8+1+2*(nameWidth+1)+5))

	for _, plan := range cal {
		date := time.Date(year, month, plan.Day, 0, 0, 0, 0, time.UTC)

		var notes []string
		if flap[plan.Day] {
			notes = append(notes, "flap")
		}
		if holiday[plan.Day] {
			notes = append(notes, "holiday")
		}
		for _, warning := range plan.Warnings {
			notes = append(notes, string(warning))
		}

		line1 := plan.Line1
		if line1 == "" {
			line1 = "-"
		}

		fmt.Fprintf(w, "%-12s %-8s %-*s %-*s %s\n",
			date.Format("Mon 02 Jan"), plan.Coverage, nameWidth, line1, nameWidth, plan.Line2, strings.Join(notes, ", "))
	}
}

// printStats writes the per-resident totals ordered by rank then name, with quotas when known
func printStats(w io.Writer, stats map[string]allocator.PersonStats, quotas map[string]int) {
	rows := make([]allocator.PersonStats, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, s)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Rank.Order() != rows[j].Rank.Order() {
			return rows[i].Rank.Order() < rows[j].Rank.Order()
		}
		return rows[i].Name < rows[j].Name
	})

	nameWidth := 10
	for _, r := range rows {
		nameWidth = max(nameWidth, len(r.Name)+2)
	}

	fmt.Fprintf(w, "%-*s %-5s %6s %6s %6s %8s %7s %5s %6s\n",
		nameWidth, "Name", "Rank", "Total", "Line1", "Line2", "Weekend", "Single", "Flap", "Quota")
	for _, r := range rows {
		quota := "-"
		if q, ok := quotas[r.Name]; ok {
			quota = fmt.Sprintf("%d", q)
		}
		fmt.Fprintf(w, "%-*s %-5s %6d %6d %6d %8d %7d %5d %6s\n",
			nameWidth, r.Name, r.Rank, r.Total, r.Line1Count, r.Line2Count, r.WeekendCount, r.SingleCount, r.FlapCount, quota)
	}
}

// printFairness writes the spread and Gini coefficient of each reported metric
func printFairness(w io.Writer, f allocator.FairnessSummary) {
	fmt.Fprintln(w, "Fairness:")
	for _, m := range []struct {
		label  string
		spread allocator.MetricSpread
	}{
		{"Total", f.Total},
		{"Weekend", f.Weekend},
		{"Single", f.Single},
		{"Flap", f.Flap},
	} {
		fmt.Fprintf(w, "  %-8s min %2d  max %2d  spread %2d  mean %5.2f  gini %.3f\n",
			m.label, m.spread.Min, m.spread.Max, m.spread.Spread, m.spread.Mean, m.spread.Gini)
	}
}

// printValidation lists validation errors, or a success line when there are none
func printValidation(w io.Writer, errs []allocator.DayValidationError) {
	if len(errs) == 0 {
		fmt.Fprintln(w, "✓ All scheduling rules satisfied")
		return
	}

	fmt.Fprintf(w, "%s⚠ %d validation error(s):%s\n", colorYellow, len(errs), colorReset)
	for _, e := range errs {
		fmt.Fprintf(w, "  %s✗%s %s\n", colorRed, colorReset, e.Error())
	}
}
