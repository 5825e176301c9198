package allocator

import (
	"cmp"
	"slices"
)

// Day weights for the senior role. A single day with nobody on duty is a harder failure than a
// double day missing its second line.
const (
	weightFlap    = 100
	weightHoliday = 50
	weightSingle  = 20
)

// fillLine2 staffs the senior role on every day still missing it, hardest days first.
// It returns false if some day has no eligible candidate at any relaxation tier.
func (a *Allocator) fillLine2(st *attemptState) bool {
	type slot struct {
		day    int
		weight int
	}

	var slots []slot
	for _, plan := range st.calendar {
		if plan.Line2 != "" {
			continue
		}
		weight := 0
		if a.flap[plan.Day] {
			weight += weightFlap
		}
		if a.holiday[plan.Day] {
			weight += weightHoliday
		}
		if !plan.IsDouble() {
			weight += weightSingle
		}
		slots = append(slots, slot{day: plan.Day, weight: weight})
	}

	slices.SortStableFunc(slots, func(x, y slot) int {
		return cmp.Compare(y.weight, x.weight)
	})

	for _, s := range slots {
		plan := st.calendar.Day(s.day)

		candidates, tier, ok := a.findCandidates(st, a.line2Pool, s.day, plan.Line1)
		if !ok {
			return false
		}

		person := pickCandidate(st.rng, candidates, func(p *PersonState) int {
			return a.line2Penalty(p, s.day)
		})
		a.assignTo(st, plan, Line2, person)
		for _, w := range tier.Warnings {
			plan.AddWarning(w)
		}
	}

	return true
}

// line2Penalty prefers genuine seniors over swing residents. On small rosters swing residents
// compete equally for ordinary days so the seniors are kept for flap days and holidays.
func (a *Allocator) line2Penalty(person *PersonState, day int) int {
	if person.Resident.Rank.Band() == BandSenior {
		return 0
	}
	if a.plan.SmallRoster && !a.flap[day] && !a.holiday[day] {
		return 0
	}
	return 1
}

// fillLine1 staffs the junior role on double days still missing it: flap days first, then
// holidays. A day nobody can staff falls back to single coverage.
func (a *Allocator) fillLine1(st *attemptState) {
	var days []int
	for _, plan := range st.calendar {
		if plan.IsDouble() && plan.Line1 == "" {
			days = append(days, plan.Day)
		}
	}

	slices.SortStableFunc(days, func(x, y int) int {
		return cmp.Compare(a.dayPriority(x), a.dayPriority(y))
	})

	for _, d := range days {
		plan := st.calendar.Day(d)

		candidates, tier, ok := a.findCandidates(st, a.line1Pool, d, plan.Line2)
		if !ok {
			plan.Coverage = CoverageSingle
			continue
		}

		person := pickCandidate(st.rng, candidates, nil)
		a.assignTo(st, plan, Line1, person)
		for _, w := range tier.Warnings {
			plan.AddWarning(w)
		}
	}
}

// dayPriority orders days flap first, then holidays, then ordinary days (lower is earlier)
func (a *Allocator) dayPriority(day int) int {
	switch {
	case a.flap[day]:
		return 0
	case a.holiday[day]:
		return 1
	default:
		return 2
	}
}
