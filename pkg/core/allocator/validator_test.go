package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallRoster() []Resident {
	return []Resident{
		{Name: "Amy", Rank: RankR3},
		{Name: "Cat", Rank: RankR4},
		{Name: "Eve", Rank: RankR5, Unavailable: []int{4}},
	}
}

// calendarOf builds a calendar from (line1, line2) pairs; an empty line1 means a single day
func calendarOf(days ...[2]string) Calendar {
	cal := NewCalendar(len(days))
	for i, d := range days {
		cal[i].Line1 = d[0]
		cal[i].Line2 = d[1]
		if d[0] != "" {
			cal[i].Coverage = CoverageDouble
		}
	}
	return cal
}

func rulesOf(errs []DayValidationError) []string {
	var rules []string
	for _, e := range errs {
		rules = append(rules, e.Rule)
	}
	return rules
}

func TestValidateCalendar_Valid(t *testing.T) {
	cal := calendarOf(
		[2]string{"Amy", "Eve"},
		[2]string{"", "Cat"},
		[2]string{"Amy", "Eve"},
		[2]string{"", "Cat"},
	)

	errs := ValidateCalendar(ValidationInput{
		Calendar:  cal,
		Residents: smallRoster(),
		Quotas:    map[string]int{"Amy": 2, "Cat": 2, "Eve": 2},
	})

	assert.Empty(t, errs)
}

func TestValidateCalendar_Coverage(t *testing.T) {
	cal := calendarOf(
		[2]string{"Amy", "Eve"},
		[2]string{"", ""},
		[2]string{"Amy", "Amy"},
	)
	cal[0].Line2 = ""
	cal = append(cal, &DayPlan{Day: 4, Coverage: CoverageSingle, Line1: "Amy", Line2: "Cat"})

	errs := ValidateCalendar(ValidationInput{Calendar: cal, Residents: smallRoster()})

	var coverageDays []int
	for _, e := range errs {
		if e.Rule == RuleCoverage {
			coverageDays = append(coverageDays, e.Day)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4}, coverageDays)
}

func TestValidateCalendar_ConsecutiveDays(t *testing.T) {
	cal := calendarOf(
		[2]string{"", "Eve"},
		[2]string{"", "Eve"},
		[2]string{"", "Cat"},
	)

	errs := ValidateCalendar(ValidationInput{Calendar: cal, Residents: smallRoster()})
	require.Len(t, errs, 1)
	assert.Equal(t, RuleNoConsecutiveDays, errs[0].Rule)
	assert.Equal(t, 2, errs[0].Day)
	assert.Contains(t, errs[0].Description, "Eve")

	// A relaxation warning on either day accepts it
	cal[1].AddWarning(WarnAdjacencyRelaxed)
	assert.Empty(t, ValidateCalendar(ValidationInput{Calendar: cal, Residents: smallRoster()}))

	// So does a lock
	cal[1].Warnings = nil
	errs = ValidateCalendar(ValidationInput{
		Calendar:          cal,
		Residents:         smallRoster(),
		LockedAssignments: map[string][]int{"Eve": {1}},
	})
	assert.Empty(t, errs)
}

func TestValidateCalendar_Quota(t *testing.T) {
	cal := calendarOf(
		[2]string{"", "Eve"},
		[2]string{"", "Cat"},
		[2]string{"", "Eve"},
	)
	in := ValidationInput{
		Calendar:  cal,
		Residents: smallRoster(),
		Quotas:    map[string]int{"Amy": 1, "Cat": 1, "Eve": 1},
	}

	errs := ValidateCalendar(in)
	require.Len(t, errs, 1)
	assert.Equal(t, RuleQuota, errs[0].Rule)
	assert.Contains(t, errs[0].Description, "'Eve' has 2 shifts, quota is 1")

	cal[2].AddWarning(WarnQuotaRelaxed)
	assert.Empty(t, ValidateCalendar(in))
}

func TestValidateCalendar_AvailabilityAndRoster(t *testing.T) {
	cal := calendarOf(
		[2]string{"", "Zed"},
		[2]string{"", "Cat"},
		[2]string{"", "Amy"},
		[2]string{"", "Eve"},
	)

	errs := ValidateCalendar(ValidationInput{Calendar: cal, Residents: smallRoster()})

	assert.ElementsMatch(t, []string{RuleRoster, RuleRoleEligibility, RuleAvailability}, rulesOf(errs))

	// Eve is unavailable on day 4 but locked there, so it is accepted
	errs = ValidateCalendar(ValidationInput{
		Calendar:          cal,
		Residents:         smallRoster(),
		LockedAssignments: map[string][]int{"Eve": {4}},
	})
	assert.NotContains(t, rulesOf(errs), RuleAvailability)
}

func TestValidateCalendar_Locked(t *testing.T) {
	cal := calendarOf(
		[2]string{"Amy", "Eve"},
		[2]string{"", "Cat"},
		[2]string{"Cat", "Eve"},
	)

	errs := ValidateCalendar(ValidationInput{
		Calendar:  cal,
		Residents: smallRoster(),
		LockedAssignments: map[string][]int{
			"Amy": {1, 2},
			"Cat": {3},
			"Eve": {9},
		},
	})

	require.Len(t, errs, 2)
	assert.Equal(t, RuleLocked, errs[0].Rule)
	assert.Equal(t, 2, errs[0].Day)
	assert.Contains(t, errs[0].Description, "not on duty")
	assert.Equal(t, RuleLocked, errs[1].Rule)
	assert.Equal(t, 9, errs[1].Day)
	assert.Contains(t, errs[1].Description, "outside the calendar")
}

func TestDayValidationError_Error(t *testing.T) {
	err := DayValidationError{Day: 3, Rule: RuleQuota, Description: "too many"}
	assert.Equal(t, "day 3: Quota: too many", err.Error())
}
