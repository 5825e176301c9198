package allocator

import (
	"fmt"
	"strings"
)

// Rank is a resident's seniority level
type Rank string

const (
	RankR3 Rank = "R3"
	RankR4 Rank = "R4"
	RankR5 Rank = "R5"
	RankR6 Rank = "R6"
)

// Band groups ranks by the duty roles they can take
type Band int

const (
	// BandJunior residents only ever take line-1
	BandJunior Band = iota
	// BandSwing residents take line-1, and line-2 when the roster needs them to
	BandSwing
	// BandSenior residents only ever take line-2
	BandSenior
)

func (b Band) String() string {
	switch b {
	case BandJunior:
		return "junior"
	case BandSwing:
		return "swing"
	case BandSenior:
		return "senior"
	default:
		return fmt.Sprintf("band(%d)", int(b))
	}
}

// Role is a duty slot on a given day
type Role int

const (
	// Line1 is the junior slot, only staffed on double-coverage days
	Line1 Role = iota + 1
	// Line2 is the senior slot and the sole slot on single-coverage days
	Line2
)

func (r Role) String() string {
	switch r {
	case Line1:
		return "line1"
	case Line2:
		return "line2"
	default:
		return "none"
	}
}

type rankInfo struct {
	band Band
	// order sorts ranks from most junior to most senior
	order int
}

// rankTable is the single source of truth for what each rank can do.
// Adding a rank means adding a row here.
var rankTable = map[Rank]rankInfo{
	RankR3: {band: BandJunior, order: 0},
	RankR4: {band: BandSwing, order: 1},
	RankR5: {band: BandSenior, order: 2},
	RankR6: {band: BandSenior, order: 3},
}

// ParseRank converts a rank label such as "R4" (case-insensitive) into a Rank
func ParseRank(s string) (Rank, error) {
	rank := Rank(strings.ToUpper(strings.TrimSpace(s)))
	if !rank.Valid() {
		return "", fmt.Errorf("unknown rank %q (expected R3, R4, R5 or R6)", s)
	}
	return rank, nil
}

// Valid reports whether the rank is one of the known ranks
func (r Rank) Valid() bool {
	_, ok := rankTable[r]
	return ok
}

// Band returns the role band of the rank
func (r Rank) Band() Band {
	return rankTable[r].band
}

// Order returns the seniority order of the rank (R3 = 0)
func (r Rank) Order() int {
	return rankTable[r].order
}

// CanFill reports whether a band may take a role.
// crossover enables swing residents on line-2; it is off under strict line separation
// unless the roster is small.
func (b Band) CanFill(role Role, crossover bool) bool {
	switch b {
	case BandJunior:
		return role == Line1
	case BandSwing:
		return role == Line1 || (role == Line2 && crossover)
	case BandSenior:
		return role == Line2
	}
	return false
}

// Resident is a person on the duty roster
type Resident struct {
	Name string `json:"name"`
	Rank Rank   `json:"rank"`
	// Unavailable lists days of the month (1-based) the resident cannot be on duty
	Unavailable []int `json:"unavailable,omitempty"`
}

// SmallRosterSize is the headcount at or below which the roster counts as small
const SmallRosterSize = 6

// Roster is the roster partitioned by rank. Each list keeps input order.
type Roster struct {
	R3 []Resident
	R4 []Resident
	R5 []Resident
	R6 []Resident
}

// Classify partitions residents into the four rank lists.
// Residents with an unknown rank are ignored.
func Classify(residents []Resident) Roster {
	var roster Roster
	for _, r := range residents {
		switch r.Rank {
		case RankR3:
			roster.R3 = append(roster.R3, r)
		case RankR4:
			roster.R4 = append(roster.R4, r)
		case RankR5:
			roster.R5 = append(roster.R5, r)
		case RankR6:
			roster.R6 = append(roster.R6, r)
		}
	}
	return roster
}

// Total returns the number of classified residents
func (r Roster) Total() int {
	return len(r.R3) + len(r.R4) + len(r.R5) + len(r.R6)
}

// Juniors returns R3 followed by R4 residents
func (r Roster) Juniors() []Resident {
	out := make([]Resident, 0, len(r.R3)+len(r.R4))
	out = append(out, r.R3...)
	return append(out, r.R4...)
}

// Seniors returns R5 followed by R6 residents
func (r Roster) Seniors() []Resident {
	out := make([]Resident, 0, len(r.R5)+len(r.R6))
	out = append(out, r.R5...)
	return append(out, r.R6...)
}

// IsBalancedPairs reports whether the roster is exactly two residents of every rank
func (r Roster) IsBalancedPairs() bool {
	return len(r.R3) == 2 && len(r.R4) == 2 && len(r.R5) == 2 && len(r.R6) == 2
}

// IsSmall reports whether the roster is at or below SmallRosterSize
func (r Roster) IsSmall() bool {
	return r.Total() <= SmallRosterSize
}
