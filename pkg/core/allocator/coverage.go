package allocator

import "math/rand/v2"

// assignCoverage decides which days are double-covered.
// Days locked to a junior are always double, even when that exceeds the budget.
// The remaining budget is spent on flap days, then holidays, then ordinary days,
// each group shuffled.
func (a *Allocator) assignCoverage(st *attemptState) {
	credits := a.plan.TargetDoubleCount

	double := make(map[int]bool, a.days)
	for _, d := range a.lockedJuniorDays {
		double[d] = true
		if credits > 0 {
			credits--
		}
	}

	var flapPool, holidayPool, ordinaryPool []int
	for d := 1; d <= a.days; d++ {
		switch {
		case double[d]:
		case a.flap[d]:
			flapPool = append(flapPool, d)
		case a.holiday[d]:
			holidayPool = append(holidayPool, d)
		default:
			ordinaryPool = append(ordinaryPool, d)
		}
	}

	for _, pool := range [][]int{flapPool, holidayPool, ordinaryPool} {
		shuffleDays(st.rng, pool)
		for _, d := range pool {
			if credits == 0 {
				break
			}
			double[d] = true
			credits--
		}
	}

	for _, plan := range st.calendar {
		if double[plan.Day] {
			plan.Coverage = CoverageDouble
		} else {
			plan.Coverage = CoverageSingle
		}
	}
}

func shuffleDays(rng *rand.Rand, days []int) {
	rng.Shuffle(len(days), func(i, j int) {
		days[i], days[j] = days[j], days[i]
	})
}
