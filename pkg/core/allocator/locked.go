package allocator

import (
	"slices"
)

// applyLocked places every locked assignment into the slot dictated by the resident's band.
// Locked assignments bypass availability, adjacency and quota. Residents are processed in a
// shuffled order; when two locked residents compete for one slot the later one wins and the
// day is tagged WarnLockedDisplaced.
func (a *Allocator) applyLocked(st *attemptState) {
	order := slices.Clone(a.lockedOrder)
	st.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	for _, name := range order {
		person := st.people[name]
		band := person.Resident.Rank.Band()

		days := make([]int, 0, len(a.locked[name]))
		for d := range a.locked[name] {
			days = append(days, d)
		}
		slices.Sort(days)

		for _, d := range days {
			plan := st.calendar.Day(d)
			if plan.Has(name) {
				continue
			}

			role := lockedRole(band, plan)
			if band == BandJunior && !plan.IsDouble() {
				plan.Coverage = CoverageDouble
			}

			if occupant := plan.Occupant(role); occupant != "" {
				a.vacate(st, plan, role)
				plan.AddWarning(WarnLockedDisplaced)
			}
			a.assignTo(st, plan, role, person)
		}
	}
}

// lockedRole picks the slot for a locked resident. Swing residents take line-2 on single days
// and otherwise prefer an empty line-1. On a full double day they displace line-2, since a
// junior on line-1 has nowhere else to go.
func lockedRole(band Band, plan *DayPlan) Role {
	switch band {
	case BandJunior:
		return Line1
	case BandSenior:
		return Line2
	}

	if !plan.IsDouble() {
		return Line2
	}
	if plan.Line1 == "" {
		return Line1
	}
	return Line2
}

// vacate empties a slot and removes the day from its occupant's running totals
func (a *Allocator) vacate(st *attemptState, plan *DayPlan, role Role) {
	name := plan.Occupant(role)
	if name == "" {
		return
	}
	plan.setOccupant(role, "")

	person, ok := st.people[name]
	if !ok {
		return
	}
	if person.unassign(plan.Day) && a.holiday[plan.Day] {
		person.WeekendCount--
	}
}
