package allocator

import (
	"fmt"
	"sort"
)

// Validation rule names reported in DayValidationError.Rule
const (
	RuleCoverage          = "Coverage"
	RuleRoster            = "Roster"
	RuleRoleEligibility   = "RoleEligibility"
	RuleAvailability      = "Availability"
	RuleNoConsecutiveDays = "NoConsecutiveDays"
	RuleQuota             = "Quota"
	RuleLocked            = "Locked"
)

// DayValidationError describes one rule broken by a calendar
type DayValidationError struct {
	Day         int    `json:"day"`
	Rule        string `json:"rule"`
	Description string `json:"description"`
}

func (e DayValidationError) Error() string {
	return fmt.Sprintf("day %d: %s: %s", e.Day, e.Rule, e.Description)
}

// ValidationInput is what a calendar is checked against
type ValidationInput struct {
	Calendar  Calendar
	Residents []Resident
	// Quotas may be nil, in which case quotas are not checked
	Quotas            map[string]int
	LockedAssignments map[string][]int
}

// ValidateCalendar checks a finished or hand-edited calendar and returns every rule it breaks.
// Relaxed placements are accepted when the day carries the matching warning, and locked
// assignments are exempt from availability, adjacency and quota.
func ValidateCalendar(in ValidationInput) []DayValidationError {
	errs := []DayValidationError{}

	residents := make(map[string]Resident, len(in.Residents))
	for _, r := range in.Residents {
		residents[r.Name] = r
	}
	unavailable := make(map[string]map[int]bool, len(in.Residents))
	for _, r := range in.Residents {
		unavailable[r.Name] = daySet(r.Unavailable)
	}
	locked := make(map[string]map[int]bool, len(in.LockedAssignments))
	for name, days := range in.LockedAssignments {
		locked[name] = daySet(days)
	}

	// Step 1: Per-day structure
	assigned := make(map[string][]int)
	for _, plan := range in.Calendar {
		errs = append(errs, validateDayStructure(plan)...)

		for _, role := range []Role{Line1, Line2} {
			name := plan.Occupant(role)
			if name == "" {
				continue
			}
			assigned[name] = append(assigned[name], plan.Day)

			resident, known := residents[name]
			if !known {
				errs = append(errs, DayValidationError{
					Day:         plan.Day,
					Rule:        RuleRoster,
					Description: fmt.Sprintf("'%s' is not on the roster", name),
				})
				continue
			}

			if !resident.Rank.Band().CanFill(role, true) {
				errs = append(errs, DayValidationError{
					Day:         plan.Day,
					Rule:        RuleRoleEligibility,
					Description: fmt.Sprintf("%s '%s' cannot take %s", resident.Rank, name, role),
				})
			}

			if unavailable[name][plan.Day] && !locked[name][plan.Day] {
				errs = append(errs, DayValidationError{
					Day:         plan.Day,
					Rule:        RuleAvailability,
					Description: fmt.Sprintf("'%s' is unavailable", name),
				})
			}
		}
	}

	// Step 2: Per-person rules across days
	names := make([]string, 0, len(assigned))
	for name := range assigned {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		days := assigned[name]
		sort.Ints(days)

		relaxedQuota := false
		for i, d := range days {
			if plan := in.Calendar.Day(d); plan != nil && plan.HasWarning(WarnQuotaRelaxed) {
				relaxedQuota = true
			}
			if i == 0 || days[i-1] != d-1 {
				continue
			}
			if locked[name][d] || locked[name][d-1] {
				continue
			}
			if in.Calendar.Day(d).HasWarning(WarnAdjacencyRelaxed) || in.Calendar.Day(d-1).HasWarning(WarnAdjacencyRelaxed) {
				continue
			}
			errs = append(errs, DayValidationError{
				Day:         d,
				Rule:        RuleNoConsecutiveDays,
				Description: fmt.Sprintf("'%s' is on duty on consecutive days %d and %d", name, d-1, d),
			})
		}

		quota, hasQuota := in.Quotas[name]
		if hasQuota && len(days) > quota && !relaxedQuota && len(locked[name]) == 0 {
			errs = append(errs, DayValidationError{
				Day:         days[len(days)-1],
				Rule:        RuleQuota,
				Description: fmt.Sprintf("'%s' has %d shifts, quota is %d", name, len(days), quota),
			})
		}
	}

	// Step 3: Locked assignments
	lockedNames := make([]string, 0, len(locked))
	for name := range locked {
		lockedNames = append(lockedNames, name)
	}
	sort.Strings(lockedNames)

	for _, name := range lockedNames {
		days := make([]int, 0, len(locked[name]))
		for d := range locked[name] {
			days = append(days, d)
		}
		sort.Ints(days)

		for _, d := range days {
			plan := in.Calendar.Day(d)
			if plan == nil {
				errs = append(errs, DayValidationError{
					Day:         d,
					Rule:        RuleLocked,
					Description: fmt.Sprintf("locked day for '%s' is outside the calendar", name),
				})
				continue
			}

			role := plan.Slot(name)
			if role == 0 {
				errs = append(errs, DayValidationError{
					Day:         d,
					Rule:        RuleLocked,
					Description: fmt.Sprintf("'%s' is locked to this day but not on duty", name),
				})
				continue
			}

			resident, known := residents[name]
			if known && !lockedSlotMatches(resident.Rank.Band(), role) {
				errs = append(errs, DayValidationError{
					Day:         d,
					Rule:        RuleLocked,
					Description: fmt.Sprintf("'%s' is locked to this day but holds %s", name, role),
				})
			}
		}
	}

	return errs
}

func validateDayStructure(plan *DayPlan) []DayValidationError {
	fail := func(format string, args ...any) []DayValidationError {
		return []DayValidationError{{
			Day:         plan.Day,
			Rule:        RuleCoverage,
			Description: fmt.Sprintf(format, args...),
		}}
	}

	switch plan.Coverage {
	case CoverageDouble:
		if plan.Line1 == "" || plan.Line2 == "" {
			return fail("double day needs both line1 and line2 (line1=%q, line2=%q)", plan.Line1, plan.Line2)
		}
		if plan.Line1 == plan.Line2 {
			return fail("'%s' holds both line1 and line2", plan.Line1)
		}
	case CoverageSingle:
		if plan.Line2 == "" {
			return fail("single day has nobody on duty")
		}
		if plan.Line1 != "" {
			return fail("single day has line1 '%s' set", plan.Line1)
		}
	default:
		return fail("unknown coverage %q", plan.Coverage)
	}
	return nil
}

// lockedSlotMatches reports whether a locked resident sits in a slot their band allows
func lockedSlotMatches(band Band, role Role) bool {
	switch band {
	case BandJunior:
		return role == Line1
	case BandSenior:
		return role == Line2
	}
	return true
}
