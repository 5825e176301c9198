package allocator

import (
	"cmp"
	"slices"
)

const (
	// MaxShifts is the nominal number of shifts per resident per month
	MaxShifts = 8

	// MinShifts is the lowest a quota may be reduced to when the roster has surplus capacity
	MinShifts = MaxShifts - 1

	// SmallRosterSlack is added to every quota on small rosters to widen the search.
	// The rebalancing pass pulls totals back toward the nominal target afterwards.
	SmallRosterSlack = 1
)

// Scenario identifies how the quota plan was derived
type Scenario string

const (
	// ScenarioStrictPairs is the two-per-rank roster with strict line separation
	ScenarioStrictPairs Scenario = "strict-pairs"
	// ScenarioSurplus is a roster that can double-cover every day
	ScenarioSurplus Scenario = "surplus"
	// ScenarioShortage is a roster that cannot double-cover every day
	ScenarioShortage Scenario = "shortage"
)

// Label returns a human-readable description of the scenario
func (s Scenario) Label() string {
	switch s {
	case ScenarioStrictPairs:
		return "Strict pairs (junior/senior lines separated)"
	case ScenarioSurplus:
		return "Surplus (full double coverage)"
	case ScenarioShortage:
		return "Shortage (rationed double coverage)"
	default:
		return string(s)
	}
}

// QuotaPlan holds the per-request scenario and shift targets.
// It is computed once per request and is read-only afterwards.
type QuotaPlan struct {
	Scenario Scenario `json:"scenario"`

	// TargetDoubleCount is the number of days that should get two residents on duty
	TargetDoubleCount int `json:"targetDoubleCount"`

	// StrictLineSeparation keeps juniors on line-1 and seniors on line-2
	StrictLineSeparation bool `json:"strictLineSeparation"`

	// SmallRoster is set when the roster has SmallRosterSize residents or fewer
	SmallRoster bool `json:"smallRoster"`

	// Quotas are the caps used during slot filling (Targets plus any small-roster slack)
	Quotas map[string]int `json:"quotas"`

	// Targets are the nominal shift counts the rebalancer aims for
	Targets map[string]int `json:"targets"`
}

// PlanQuotas selects the scenario for the roster and computes each resident's quota and the
// number of double-coverage days.
func PlanQuotas(residents []Resident, daysInMonth int) QuotaPlan {
	roster := Classify(residents)

	plan := QuotaPlan{
		Quotas:      make(map[string]int, len(residents)),
		Targets:     make(map[string]int, len(residents)),
		SmallRoster: roster.IsSmall(),
	}

	if roster.IsBalancedPairs() {
		plan.Scenario = ScenarioStrictPairs
		plan.StrictLineSeparation = true
		plan.TargetDoubleCount = daysInMonth
		splitEvenly(plan.Targets, roster.Juniors(), daysInMonth)
		splitEvenly(plan.Targets, roster.Seniors(), daysInMonth)
	} else {
		for _, r := range roster.Juniors() {
			plan.Targets[r.Name] = MaxShifts
		}
		for _, r := range roster.Seniors() {
			plan.Targets[r.Name] = MaxShifts
		}

		supply := roster.Total() * MaxShifts
		demand := daysInMonth * 2

		if supply >= demand {
			plan.Scenario = ScenarioSurplus
			plan.TargetDoubleCount = daysInMonth
			reduceSurplus(plan.Targets, roster, supply-demand)
		} else {
			plan.Scenario = ScenarioShortage
			plan.TargetDoubleCount = shortageDoubleCount(roster, daysInMonth)
		}
	}

	for name, target := range plan.Targets {
		quota := target
		if plan.SmallRoster {
			quota += SmallRosterSlack
		}
		plan.Quotas[name] = quota
	}

	return plan
}

// splitEvenly divides days across the pool. The pool is ordered by (rank, name) and the
// remainder goes one each to the first members, so R3 before R4 and R5 before R6.
func splitEvenly(targets map[string]int, pool []Resident, days int) {
	if len(pool) == 0 {
		return
	}

	sorted := slices.Clone(pool)
	slices.SortStableFunc(sorted, func(a, b Resident) int {
		if c := cmp.Compare(a.Rank.Order(), b.Rank.Order()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	base := days / len(sorted)
	remainder := days % len(sorted)
	for i, r := range sorted {
		targets[r.Name] = base
		if i < remainder {
			targets[r.Name]++
		}
	}
}

// reduceSurplus removes excess shifts one at a time, most senior first, never going below
// MinShifts. It stops when the excess is absorbed or nobody can be reduced.
func reduceSurplus(targets map[string]int, roster Roster, excess int) {
	order := make([]Resident, 0, roster.Total())
	order = append(order, roster.R6...)
	order = append(order, roster.R5...)
	order = append(order, roster.R4...)
	order = append(order, roster.R3...)

	for excess > 0 {
		reduced := false
		for _, r := range order {
			if excess == 0 {
				break
			}
			if targets[r.Name] > MinShifts {
				targets[r.Name]--
				excess--
				reduced = true
			}
		}
		if !reduced {
			break
		}
	}
}

// shortageDoubleCount caps double coverage by how many days the junior pool can staff line-1
// once part of the R4 capacity has covered the senior shortfall.
func shortageDoubleCount(roster Roster, days int) int {
	seniorSupply := (len(roster.R5) + len(roster.R6)) * MaxShifts
	seniorDeficit := max(0, days-seniorSupply)

	r4ForLine1 := max(0, len(roster.R4)*MaxShifts-seniorDeficit)
	line1Capacity := len(roster.R3)*MaxShifts + r4ForLine1

	return min(days, line1Capacity)
}
