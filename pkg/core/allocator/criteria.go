package allocator

// Constraint is a hard rule a candidate must satisfy to take a slot on a day.
// Constraints are grouped into relaxation tiers; a tier only lists the constraints it enforces.
type Constraint interface {
	// Name returns a human-readable identifier for this constraint
	Name() string

	// Allows returns false if putting the person on duty on the day would break the rule
	Allows(a *Allocator, st *attemptState, person *PersonState, day int) bool
}

// AvailabilityConstraint rejects declared unavailable days and anyone already on duty that day.
// It is never relaxed.
type AvailabilityConstraint struct{}

func (AvailabilityConstraint) Name() string {
	return "Availability"
}

func (AvailabilityConstraint) Allows(a *Allocator, st *attemptState, person *PersonState, day int) bool {
	if a.isUnavailable(person.Resident.Name, day) {
		return false
	}
	if person.IsAssigned(day) {
		return false
	}
	return !st.calendar.Day(day).Has(person.Resident.Name)
}

// NoConsecutiveDaysConstraint rejects days next to one the person is already on duty
type NoConsecutiveDaysConstraint struct{}

func (NoConsecutiveDaysConstraint) Name() string {
	return "NoConsecutiveDays"
}

func (NoConsecutiveDaysConstraint) Allows(a *Allocator, st *attemptState, person *PersonState, day int) bool {
	return !person.HasAdjacent(day)
}

// QuotaConstraint rejects anyone who has reached their monthly quota
type QuotaConstraint struct{}

func (QuotaConstraint) Name() string {
	return "Quota"
}

func (QuotaConstraint) Allows(a *Allocator, st *attemptState, person *PersonState, day int) bool {
	return person.Count < a.plan.Quotas[person.Resident.Name]
}

// RelaxationTier is one step of the candidate search. Tiers are tried in order until one
// yields a candidate; Warnings are tagged on the day when a later tier succeeds.
type RelaxationTier struct {
	Name        string
	Constraints []Constraint
	Warnings    []Warning
}

// DefaultRelaxationTiers returns the standard search order: everything enforced, then the
// no-consecutive-days rule relaxed, then the quota relaxed, then both.
func DefaultRelaxationTiers() []RelaxationTier {
	return []RelaxationTier{
		{
			Name:        "strict",
			Constraints: []Constraint{AvailabilityConstraint{}, NoConsecutiveDaysConstraint{}, QuotaConstraint{}},
		},
		{
			Name:        "adjacency-relaxed",
			Constraints: []Constraint{AvailabilityConstraint{}, QuotaConstraint{}},
			Warnings:    []Warning{WarnAdjacencyRelaxed},
		},
		{
			Name:        "quota-relaxed",
			Constraints: []Constraint{AvailabilityConstraint{}, NoConsecutiveDaysConstraint{}},
			Warnings:    []Warning{WarnQuotaRelaxed},
		},
		{
			Name:        "fully-relaxed",
			Constraints: []Constraint{AvailabilityConstraint{}},
			Warnings:    []Warning{WarnAdjacencyRelaxed, WarnQuotaRelaxed},
		},
	}
}

// allows returns true if every constraint of the tier accepts the person for the day
func (t RelaxationTier) allows(a *Allocator, st *attemptState, person *PersonState, day int) bool {
	for _, c := range t.Constraints {
		if !c.Allows(a, st, person, day) {
			return false
		}
	}
	return true
}

// findCandidates walks the relaxation tiers and returns the candidates of the first tier that
// has any. exclude is the resident already holding the other slot that day.
func (a *Allocator) findCandidates(st *attemptState, pool []Resident, day int, exclude string) ([]*PersonState, RelaxationTier, bool) {
	for _, tier := range a.tiers {
		var candidates []*PersonState
		for _, r := range pool {
			if r.Name == exclude {
				continue
			}
			person := st.people[r.Name]
			if tier.allows(a, st, person, day) {
				candidates = append(candidates, person)
			}
		}
		if len(candidates) > 0 {
			return candidates, tier, true
		}
	}
	return nil, RelaxationTier{}, false
}
