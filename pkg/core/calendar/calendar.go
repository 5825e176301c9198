// Package calendar expands month-level day sets: weekends and recurring holiday or flap rules.
package calendar

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"
)

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// monthRange returns midnight UTC of the first and last day of the month
func monthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, month, DaysInMonth(year, month), 0, 0, 0, 0, time.UTC)
	return start, end
}

// Weekends returns the Saturdays and Sundays of the month as day numbers
func Weekends(year int, month time.Month) []int {
	start, end := monthRange(year, month)

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.SA, rrule.SU},
		Dtstart:   start,
	})
	if err != nil {
		// The option set above is constant and always valid
		panic(fmt.Sprintf("weekend rule: %v", err))
	}

	return toDays(rule.Between(start, end, true))
}

// ExpandRules returns the days of the month matched by any of the rrule strings, sorted and
// without duplicates. Each rule is anchored at the first day of the month.
func ExpandRules(rules []string, year int, month time.Month) ([]int, error) {
	start, end := monthRange(year, month)

	var days []int
	for i, raw := range rules {
		rule, err := rrule.StrToRRule(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule %d (%q): %w", i, raw, err)
		}
		rule.DTStart(start)
		days = append(days, toDays(rule.Between(start, end, true))...)
	}

	return Merge(days), nil
}

// DefaultHolidays returns the weekends of the month plus the days matched by the holiday rules
func DefaultHolidays(year int, month time.Month, holidayRules []string) ([]int, error) {
	extra, err := ExpandRules(holidayRules, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to expand holiday rules: %w", err)
	}
	return Merge(Weekends(year, month), extra), nil
}

// Merge combines day lists into one sorted list without duplicates
func Merge(lists ...[]int) []int {
	var out []int
	for _, l := range lists {
		out = append(out, l...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func toDays(times []time.Time) []int {
	days := make([]int, 0, len(times))
	for _, t := range times {
		days = append(days, t.Day())
	}
	return days
}
