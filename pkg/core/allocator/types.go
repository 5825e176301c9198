package allocator

import (
	"fmt"
	"slices"
)

// Coverage is the number of residents on duty for a day
type Coverage string

const (
	CoverageSingle Coverage = "single"
	CoverageDouble Coverage = "double"
)

// Valid reports whether the coverage is single or double
func (c Coverage) Valid() bool {
	return c == CoverageSingle || c == CoverageDouble
}

// Warning flags a day where the allocator had to bend a rule
type Warning string

const (
	// WarnAdjacencyRelaxed marks a day filled by someone on duty the day before or after
	WarnAdjacencyRelaxed Warning = "adjacency-relaxed"

	// WarnQuotaRelaxed marks a day filled by someone already at their quota
	WarnQuotaRelaxed Warning = "quota-relaxed"

	// WarnLockedDisplaced marks a day where a locked assignment pushed someone else out of a slot
	WarnLockedDisplaced Warning = "locked-displaced"
)

// DayPlan is the duty assignment for one day of the month
type DayPlan struct {
	Day      int       `json:"day"`
	Coverage Coverage  `json:"coverage"`
	Line1    string    `json:"line1,omitempty"`
	Line2    string    `json:"line2,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// IsDouble returns true if the day has two residents on duty
func (d *DayPlan) IsDouble() bool {
	return d.Coverage == CoverageDouble
}

// OnDuty returns the resident carrying the senior responsibility for the day:
// line-2, or whoever is in the only filled slot.
func (d *DayPlan) OnDuty() string {
	if d.Line2 != "" {
		return d.Line2
	}
	return d.Line1
}

// Slot returns the role the named resident holds on this day (0 if none)
func (d *DayPlan) Slot(name string) Role {
	switch {
	case name == "":
		return 0
	case d.Line1 == name:
		return Line1
	case d.Line2 == name:
		return Line2
	}
	return 0
}

// Has returns true if the named resident holds either slot
func (d *DayPlan) Has(name string) bool {
	return d.Slot(name) != 0
}

// Occupant returns the resident in the given slot
func (d *DayPlan) Occupant(role Role) string {
	switch role {
	case Line1:
		return d.Line1
	case Line2:
		return d.Line2
	}
	return ""
}

func (d *DayPlan) setOccupant(role Role, name string) {
	switch role {
	case Line1:
		d.Line1 = name
	case Line2:
		d.Line2 = name
	}
}

// AddWarning tags the day, ignoring duplicates
func (d *DayPlan) AddWarning(w Warning) {
	if d.HasWarning(w) {
		return
	}
	d.Warnings = append(d.Warnings, w)
	slices.Sort(d.Warnings)
}

// HasWarning returns true if the day carries the tag
func (d *DayPlan) HasWarning(w Warning) bool {
	return slices.Contains(d.Warnings, w)
}

// Calendar is the month's duty plan, indexed by day-1
type Calendar []*DayPlan

// NewCalendar creates an empty single-coverage calendar for a month of the given length
func NewCalendar(days int) Calendar {
	cal := make(Calendar, days)
	for i := range cal {
		cal[i] = &DayPlan{Day: i + 1, Coverage: CoverageSingle}
	}
	return cal
}

// Day returns the plan for a 1-based day, or nil when out of range
func (c Calendar) Day(day int) *DayPlan {
	if day < 1 || day > len(c) {
		return nil
	}
	return c[day-1]
}

// CheckSequence returns an error unless entry i describes day i+1 with a known coverage
func (c Calendar) CheckSequence() error {
	for i, plan := range c {
		if plan == nil || plan.Day != i+1 {
			return fmt.Errorf("calendar entry %d must describe day %d", i, i+1)
		}
		if !plan.Coverage.Valid() {
			return fmt.Errorf("calendar day %d has unknown coverage %q", plan.Day, plan.Coverage)
		}
	}
	return nil
}

// Clone returns a deep copy of the calendar
func (c Calendar) Clone() Calendar {
	out := make(Calendar, len(c))
	for i, d := range c {
		cp := *d
		cp.Warnings = slices.Clone(d.Warnings)
		out[i] = &cp
	}
	return out
}

// SingleDays counts single-coverage days
func (c Calendar) SingleDays() int {
	count := 0
	for _, d := range c {
		if !d.IsDouble() {
			count++
		}
	}
	return count
}

// PersonState tracks a resident's assignments during one allocation attempt
type PersonState struct {
	Resident Resident

	// AssignedDays is kept sorted ascending
	AssignedDays []int

	Count        int
	WeekendCount int
	SingleCount  int
	FlapCount    int
}

func newPersonState(r Resident) *PersonState {
	return &PersonState{Resident: r, AssignedDays: []int{}}
}

// IsAssigned returns true if the resident is on duty on the day
func (p *PersonState) IsAssigned(day int) bool {
	_, found := slices.BinarySearch(p.AssignedDays, day)
	return found
}

// HasAdjacent returns true if the resident is on duty the day before or after
func (p *PersonState) HasAdjacent(day int) bool {
	return p.IsAssigned(day-1) || p.IsAssigned(day+1)
}

// assign records the day, returning false if it was already recorded
func (p *PersonState) assign(day int) bool {
	idx, found := slices.BinarySearch(p.AssignedDays, day)
	if found {
		return false
	}
	p.AssignedDays = slices.Insert(p.AssignedDays, idx, day)
	p.Count++
	return true
}

// unassign removes the day, returning false if it was not recorded
func (p *PersonState) unassign(day int) bool {
	idx, found := slices.BinarySearch(p.AssignedDays, day)
	if !found {
		return false
	}
	p.AssignedDays = slices.Delete(p.AssignedDays, idx, idx+1)
	p.Count--
	return true
}

// daySet builds a lookup set from a list of days
func daySet(days []int) map[int]bool {
	set := make(map[int]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}
