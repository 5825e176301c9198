package allocator

import (
	"cmp"
	"slices"
)

// rebalance runs once on a finished attempt. It moves line-2 days from seniors above their
// target to R4 residents below theirs, then upgrades single days by adding an R3 resident
// below target on line-1. Both moves respect availability and adjacency but ignore quotas.
func (a *Allocator) rebalance(st *attemptState) {
	if !a.plan.StrictLineSeparation {
		a.transferSeniorDays(st)
	}
	a.upgradeSingleDays(st)
}

// transferSeniorDays hands non-holiday line-2 days from overworked seniors to R4 residents.
// Flap days move first, then single days, then ordinary double days.
func (a *Allocator) transferSeniorDays(st *attemptState) {
	r4s := a.roster.R4
	if len(r4s) == 0 {
		return
	}

	transferRank := func(plan *DayPlan) int {
		switch {
		case a.flap[plan.Day]:
			return 0
		case !plan.IsDouble():
			return 1
		default:
			return 2
		}
	}

	var days []*DayPlan
	for _, plan := range st.calendar {
		if a.holiday[plan.Day] || plan.Line2 == "" {
			continue
		}
		if st.people[plan.Line2].Resident.Rank.Band() != BandSenior {
			continue
		}
		days = append(days, plan)
	}
	slices.SortStableFunc(days, func(x, y *DayPlan) int {
		return cmp.Compare(transferRank(x), transferRank(y))
	})

	for _, plan := range days {
		senior := st.people[plan.Line2]
		if senior.Count <= a.plan.Targets[senior.Resident.Name] {
			continue
		}
		if a.isLocked(senior.Resident.Name, plan.Day) {
			continue
		}
		if plan.HasWarning(WarnQuotaRelaxed) && !a.keepsQuotaCover(st, senior, plan.Day) {
			continue
		}

		candidates := a.underTargetCandidates(st, r4s, plan)
		if len(candidates) == 0 {
			continue
		}

		person := pickCandidate(st.rng, candidates, nil)
		a.vacate(st, plan, Line2)
		a.assignTo(st, plan, Line2, person)
		a.settleWarnings(st, plan)
	}
}

// settleWarnings drops relaxation tags that described the previous line-2 occupant. The new
// occupant was placed within target and away from adjacent duty, so a tag survives only while
// the line-1 occupant still needs it.
func (a *Allocator) settleWarnings(st *attemptState, plan *DayPlan) {
	line1 := st.people[plan.Line1]

	kept := plan.Warnings[:0]
	for _, w := range plan.Warnings {
		switch w {
		case WarnAdjacencyRelaxed:
			if line1 == nil || !line1.HasAdjacent(plan.Day) {
				continue
			}
		case WarnQuotaRelaxed:
			if line1 == nil || line1.Count <= a.plan.Quotas[line1.Resident.Name] {
				continue
			}
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		kept = nil
	}
	plan.Warnings = kept
}

// upgradeSingleDays promotes single days to double by adding an R3 resident below target
func (a *Allocator) upgradeSingleDays(st *attemptState) {
	r3s := a.roster.R3
	if len(r3s) == 0 {
		return
	}

	var days []*DayPlan
	for _, plan := range st.calendar {
		if !plan.IsDouble() && plan.Line1 == "" {
			days = append(days, plan)
		}
	}
	slices.SortStableFunc(days, func(x, y *DayPlan) int {
		return cmp.Compare(a.dayPriority(x.Day), a.dayPriority(y.Day))
	})

	for _, plan := range days {
		candidates := a.underTargetCandidates(st, r3s, plan)
		if len(candidates) == 0 {
			continue
		}

		person := pickCandidate(st.rng, candidates, nil)
		plan.Coverage = CoverageDouble
		a.assignTo(st, plan, Line1, person)
	}
}

// keepsQuotaCover reports whether the person is still within quota, or still holds another
// quota-relaxed day, after giving up the day
func (a *Allocator) keepsQuotaCover(st *attemptState, person *PersonState, day int) bool {
	if person.Count-1 <= a.plan.Quotas[person.Resident.Name] {
		return true
	}
	for _, d := range person.AssignedDays {
		if d != day && st.calendar.Day(d).HasWarning(WarnQuotaRelaxed) {
			return true
		}
	}
	return false
}

// underTargetCandidates returns pool members below their nominal target who could take the day
// without breaking availability or adjacency
func (a *Allocator) underTargetCandidates(st *attemptState, pool []Resident, plan *DayPlan) []*PersonState {
	var candidates []*PersonState
	for _, r := range pool {
		person := st.people[r.Name]
		if person.Count >= a.plan.Targets[r.Name] {
			continue
		}
		if plan.Has(r.Name) || a.isUnavailable(r.Name, plan.Day) {
			continue
		}
		if person.IsAssigned(plan.Day) || person.HasAdjacent(plan.Day) {
			continue
		}
		candidates = append(candidates, person)
	}
	return candidates
}
