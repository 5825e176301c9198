package allocator

import (
	"math"
	"slices"
	"sort"
)

// PersonStats are the reported duty totals of one resident
type PersonStats struct {
	Name string `json:"name"`
	Rank Rank   `json:"rank"`

	Total      int `json:"total"`
	Line1Count int `json:"line1Count"`
	Line2Count int `json:"line2Count"`

	// WeekendCount counts holiday days in either slot
	WeekendCount int `json:"weekendCount"`

	// SingleCount and FlapCount go to whoever carries the senior responsibility that day
	SingleCount int `json:"singleCount"`
	FlapCount   int `json:"flapCount"`
}

// RecomputeStats derives per-resident totals by scanning a calendar. It has no side effects and
// is safe to call after any manual edit. Names on the calendar that are not in the roster still
// get an entry, with an empty rank.
func RecomputeStats(cal Calendar, residents []Resident, flapDays, holidayDays []int) map[string]PersonStats {
	flap := daySet(flapDays)
	holiday := daySet(holidayDays)

	stats := make(map[string]PersonStats, len(residents))
	for _, r := range residents {
		stats[r.Name] = PersonStats{Name: r.Name, Rank: r.Rank}
	}

	bump := func(name string, fn func(*PersonStats)) {
		s, ok := stats[name]
		if !ok {
			s = PersonStats{Name: name}
		}
		fn(&s)
		stats[name] = s
	}

	for _, plan := range cal {
		if plan == nil {
			continue
		}

		for _, role := range []Role{Line1, Line2} {
			name := plan.Occupant(role)
			if name == "" {
				continue
			}
			bump(name, func(s *PersonStats) {
				s.Total++
				if role == Line1 {
					s.Line1Count++
				} else {
					s.Line2Count++
				}
				if holiday[plan.Day] {
					s.WeekendCount++
				}
			})
		}

		onDuty := plan.OnDuty()
		if onDuty == "" {
			continue
		}
		if flap[plan.Day] {
			bump(onDuty, func(s *PersonStats) { s.FlapCount++ })
		}
		if !plan.IsDouble() {
			bump(onDuty, func(s *PersonStats) { s.SingleCount++ })
		}
	}

	return stats
}

// MetricSpread summarises how evenly one metric is spread across residents
type MetricSpread struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Spread int     `json:"spread"`
	Mean   float64 `json:"mean"`
	// Gini is 0 for a perfectly even split and approaches 1 as load concentrates on one person
	Gini float64 `json:"gini"`
}

// FairnessSummary reports the spread of each duty metric
type FairnessSummary struct {
	Total   MetricSpread `json:"total"`
	Weekend MetricSpread `json:"weekend"`
	Single  MetricSpread `json:"single"`
	Flap    MetricSpread `json:"flap"`
}

// Fairness summarises the stats of a calendar
func Fairness(stats map[string]PersonStats) FairnessSummary {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	collect := func(fn func(PersonStats) int) []int {
		values := make([]int, 0, len(names))
		for _, name := range names {
			values = append(values, fn(stats[name]))
		}
		return values
	}

	return FairnessSummary{
		Total:   spreadOf(collect(func(s PersonStats) int { return s.Total })),
		Weekend: spreadOf(collect(func(s PersonStats) int { return s.WeekendCount })),
		Single:  spreadOf(collect(func(s PersonStats) int { return s.SingleCount })),
		Flap:    spreadOf(collect(func(s PersonStats) int { return s.FlapCount })),
	}
}

func spreadOf(values []int) MetricSpread {
	if len(values) == 0 {
		return MetricSpread{}
	}

	sum := 0
	for _, v := range values {
		sum += v
	}

	lo, hi := slices.Min(values), slices.Max(values)
	return MetricSpread{
		Min:    lo,
		Max:    hi,
		Spread: hi - lo,
		Mean:   float64(sum) / float64(len(values)),
		Gini:   gini(values),
	}
}

// gini computes the Gini coefficient of non-negative values
func gini(values []int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum, weighted float64
	for i, v := range sorted {
		sum += float64(v)
		weighted += float64(2*(i+1)-n-1) * float64(v)
	}
	if sum == 0 {
		return 0
	}

	return math.Max(0, math.Min(1, weighted/(float64(n)*sum)))
}
