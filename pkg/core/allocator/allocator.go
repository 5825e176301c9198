package allocator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/oncall-rota/pkg/core/calendar"
)

// DefaultMaxAttempts is the attempt budget used when Options.MaxAttempts is not set
const DefaultMaxAttempts = 10000

var (
	// ErrInfeasible is returned when no attempt within the budget produced a complete calendar
	ErrInfeasible = errors.New("no feasible schedule found - try relaxing locked dates")

	// ErrInvalidRequest is returned when the request is structurally unusable
	ErrInvalidRequest = errors.New("invalid scheduling request")
)

// Request is everything the allocator needs to schedule one month
type Request struct {
	Year  int
	Month time.Month

	Residents []Resident

	// FlapDays are high-acuity days, first in line for double coverage and senior presence
	FlapDays []int

	// HolidayDays are weekends and public holidays confirmed by the coordinator
	HolidayDays []int

	// LockedAssignments maps resident name to days they must be on duty.
	// Locked days bypass unavailability, adjacency and quota checks.
	LockedAssignments map[string][]int
}

// Options control the Monte Carlo search
type Options struct {
	// MaxAttempts bounds the number of randomized attempts (DefaultMaxAttempts if <= 0)
	MaxAttempts int

	// Seed makes the search reproducible; attempt i draws from a generator seeded by (Seed, i)
	Seed int64

	// Workers runs attempts concurrently when greater than 1.
	// The lowest successful attempt wins, so the result matches a sequential run.
	Workers int
}

// Outcome is a finished schedule
type Outcome struct {
	Calendar Calendar               `json:"calendar"`
	Stats    map[string]PersonStats `json:"stats"`
	Fairness FairnessSummary        `json:"fairness"`
	Plan     QuotaPlan              `json:"plan"`

	// Attempts is the number of attempts used, including the successful one
	Attempts int   `json:"attempts"`
	Seed     int64 `json:"seed"`

	// ValidationErrors lists rule breaks found in the final calendar (empty when valid)
	ValidationErrors []DayValidationError `json:"validationErrors"`
}

// Valid returns true if the final calendar passed validation
func (o *Outcome) Valid() bool {
	return len(o.ValidationErrors) == 0
}

// Allocator holds the per-request data shared by every attempt. It is read-only once
// initialised, so attempts can run concurrently.
type Allocator struct {
	req   Request
	days  int
	tiers []RelaxationTier

	roster    Roster
	plan      QuotaPlan
	residents map[string]Resident

	unavailable map[string]map[int]bool
	locked      map[string]map[int]bool
	flap        map[int]bool
	holiday     map[int]bool

	// lockedOrder lists residents with locked days, sorted by name for reproducibility
	lockedOrder []string

	// lockedJuniorDays are days locked to an R3/R4 resident; they are always double
	lockedJuniorDays []int

	line1Pool []Resident
	line2Pool []Resident
}

// attemptState is the scratch state of one attempt. It is never shared between attempts.
type attemptState struct {
	calendar Calendar
	people   map[string]*PersonState
	rng      *rand.Rand
}

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month) int {
	return calendar.DaysInMonth(year, month)
}

// InitAllocation validates the request structure and prepares the shared allocation data.
// Contradictory input (a locked day the resident also marked unavailable) is not rejected:
// the locked assignment wins.
func InitAllocation(req Request) (*Allocator, error) {
	if req.Month < time.January || req.Month > time.December {
		return nil, fmt.Errorf("%w: month %d out of range", ErrInvalidRequest, req.Month)
	}
	if req.Year <= 0 {
		return nil, fmt.Errorf("%w: year %d out of range", ErrInvalidRequest, req.Year)
	}
	if len(req.Residents) == 0 {
		return nil, fmt.Errorf("%w: no residents", ErrInvalidRequest)
	}

	days := DaysInMonth(req.Year, req.Month)

	a := &Allocator{
		req:         req,
		days:        days,
		tiers:       DefaultRelaxationTiers(),
		residents:   make(map[string]Resident, len(req.Residents)),
		unavailable: make(map[string]map[int]bool, len(req.Residents)),
		locked:      make(map[string]map[int]bool, len(req.LockedAssignments)),
	}

	// Step 1: Residents
	for _, r := range req.Residents {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: resident with empty name", ErrInvalidRequest)
		}
		if _, exists := a.residents[r.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate resident %q", ErrInvalidRequest, r.Name)
		}
		if !r.Rank.Valid() {
			return nil, fmt.Errorf("%w: resident %q has unknown rank %q", ErrInvalidRequest, r.Name, r.Rank)
		}
		if err := checkDays(r.Unavailable, days); err != nil {
			return nil, fmt.Errorf("%w: unavailable days of %q: %v", ErrInvalidRequest, r.Name, err)
		}
		a.residents[r.Name] = r
		a.unavailable[r.Name] = daySet(r.Unavailable)
	}

	// Step 2: Day sets
	if err := checkDays(req.FlapDays, days); err != nil {
		return nil, fmt.Errorf("%w: flap days: %v", ErrInvalidRequest, err)
	}
	if err := checkDays(req.HolidayDays, days); err != nil {
		return nil, fmt.Errorf("%w: holiday days: %v", ErrInvalidRequest, err)
	}
	a.flap = daySet(req.FlapDays)
	a.holiday = daySet(req.HolidayDays)

	// Step 3: Locked assignments
	lockedJunior := make(map[int]bool)
	for name, lockedDays := range req.LockedAssignments {
		resident, exists := a.residents[name]
		if !exists {
			return nil, fmt.Errorf("%w: locked assignment for unknown resident %q", ErrInvalidRequest, name)
		}
		if err := checkDays(lockedDays, days); err != nil {
			return nil, fmt.Errorf("%w: locked days of %q: %v", ErrInvalidRequest, name, err)
		}
		if len(lockedDays) == 0 {
			continue
		}
		a.locked[name] = daySet(lockedDays)
		a.lockedOrder = append(a.lockedOrder, name)

		if resident.Rank.Band() != BandSenior {
			for _, d := range lockedDays {
				lockedJunior[d] = true
			}
		}
	}
	sort.Strings(a.lockedOrder)
	for d := range lockedJunior {
		a.lockedJuniorDays = append(a.lockedJuniorDays, d)
	}
	slices.Sort(a.lockedJuniorDays)

	// Step 4: Scenario, quotas and role pools
	a.roster = Classify(req.Residents)
	a.plan = PlanQuotas(req.Residents, days)

	crossover := !a.plan.StrictLineSeparation || a.plan.SmallRoster
	for _, r := range req.Residents {
		if r.Rank.Band().CanFill(Line1, crossover) {
			a.line1Pool = append(a.line1Pool, r)
		}
		if r.Rank.Band().CanFill(Line2, crossover) {
			a.line2Pool = append(a.line2Pool, r)
		}
	}

	return a, nil
}

// Plan returns the quota plan computed for the request
func (a *Allocator) Plan() QuotaPlan {
	return a.plan
}

// Days returns the number of days in the scheduled month
func (a *Allocator) Days() int {
	return a.days
}

// Allocate runs the Monte Carlo search and returns the first complete calendar.
// It returns ErrInfeasible (wrapped) when the attempt budget is exhausted.
func Allocate(ctx context.Context, req Request, opts Options) (*Outcome, error) {
	allocator, err := InitAllocation(req)
	if err != nil {
		return nil, err
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var (
		state    *attemptState
		attempts int
	)
	if opts.Workers > 1 {
		state, attempts, err = allocator.searchParallel(ctx, opts.Seed, maxAttempts, opts.Workers)
	} else {
		state, attempts, err = allocator.searchSequential(ctx, opts.Seed, maxAttempts)
	}
	if err != nil {
		return nil, err
	}

	return allocator.buildOutcome(state, attempts, opts.Seed), nil
}

// searchSequential runs attempts in order until one succeeds
func (a *Allocator) searchSequential(ctx context.Context, seed int64, maxAttempts int) (*attemptState, int, error) {
	for i := 0; i < maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, i, err
		}
		if st, ok := a.runAttempt(newAttemptRand(seed, i)); ok {
			return st, i + 1, nil
		}
	}
	return nil, maxAttempts, fmt.Errorf("%w (%d attempts)", ErrInfeasible, maxAttempts)
}

// searchParallel hands attempt indices to workers in increasing order. Once an attempt
// succeeds, no higher index is started; indices below it still finish, so the lowest
// successful index wins.
func (a *Allocator) searchParallel(ctx context.Context, seed int64, maxAttempts, workers int) (*attemptState, int, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		next      atomic.Int64
		bestIndex atomic.Int64
		mu        sync.Mutex
		best      *attemptState
	)
	bestIndex.Store(math.MaxInt64)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := next.Add(1) - 1
				if i >= int64(maxAttempts) || i > bestIndex.Load() {
					return nil
				}

				st, ok := a.runAttempt(newAttemptRand(seed, int(i)))
				if !ok {
					continue
				}

				mu.Lock()
				if i < bestIndex.Load() {
					bestIndex.Store(i)
					best = st
				}
				mu.Unlock()
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if best == nil {
		return nil, maxAttempts, fmt.Errorf("%w (%d attempts)", ErrInfeasible, maxAttempts)
	}
	return best, int(bestIndex.Load()) + 1, nil
}

// newAttemptRand returns the generator for one attempt
func newAttemptRand(seed int64, attempt int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(attempt)))
}

// runAttempt builds one calendar from scratch. It returns false if the senior role could not
// be staffed on some day.
func (a *Allocator) runAttempt(rng *rand.Rand) (*attemptState, bool) {
	st := a.newAttemptState(rng)

	// Phase 0: decide single/double per day
	a.assignCoverage(st)

	// Phase 1: seed the calendar with locked assignments
	a.applyLocked(st)

	// Phase 2: senior role, hardest days first
	if !a.fillLine2(st) {
		return nil, false
	}

	// Phase 3: junior role, demoting days nobody can staff
	a.fillLine1(st)

	// Phase 4: move load off overworked residents
	a.rebalance(st)

	a.refreshPersonStats(st)
	return st, true
}

func (a *Allocator) newAttemptState(rng *rand.Rand) *attemptState {
	st := &attemptState{
		calendar: NewCalendar(a.days),
		people:   make(map[string]*PersonState, len(a.req.Residents)),
		rng:      rng,
	}
	for _, r := range a.req.Residents {
		st.people[r.Name] = newPersonState(r)
	}
	return st
}

// assignTo puts a resident into a slot and records it against their running totals
func (a *Allocator) assignTo(st *attemptState, plan *DayPlan, role Role, person *PersonState) {
	plan.setOccupant(role, person.Resident.Name)
	if person.assign(plan.Day) && a.holiday[plan.Day] {
		person.WeekendCount++
	}
}

// refreshPersonStats recomputes the derived counters of every resident from the calendar.
// The rebalancer moves days around without maintaining them.
func (a *Allocator) refreshPersonStats(st *attemptState) {
	stats := RecomputeStats(st.calendar, a.req.Residents, a.req.FlapDays, a.req.HolidayDays)
	for name, person := range st.people {
		s := stats[name]
		person.WeekendCount = s.WeekendCount
		person.SingleCount = s.SingleCount
		person.FlapCount = s.FlapCount
	}
}

// buildOutcome creates the final outcome report
func (a *Allocator) buildOutcome(st *attemptState, attempts int, seed int64) *Outcome {
	stats := RecomputeStats(st.calendar, a.req.Residents, a.req.FlapDays, a.req.HolidayDays)

	outcome := &Outcome{
		Calendar: st.calendar,
		Stats:    stats,
		Fairness: Fairness(stats),
		Plan:     a.plan,
		Attempts: attempts,
		Seed:     seed,
	}

	outcome.ValidationErrors = ValidateCalendar(ValidationInput{
		Calendar:          st.calendar,
		Residents:         a.req.Residents,
		Quotas:            a.plan.Quotas,
		LockedAssignments: a.req.LockedAssignments,
	})

	return outcome
}

func (a *Allocator) isUnavailable(name string, day int) bool {
	return a.unavailable[name][day]
}

func (a *Allocator) isLocked(name string, day int) bool {
	return a.locked[name][day]
}

// pickCandidate returns the candidate with the lowest (penalty, shift count, random draw)
func pickCandidate(rng *rand.Rand, candidates []*PersonState, penalty func(*PersonState) int) *PersonState {
	var (
		best        *PersonState
		bestPenalty int
		bestDraw    float64
	)
	for _, c := range candidates {
		p := 0
		if penalty != nil {
			p = penalty(c)
		}
		draw := rng.Float64()

		if best == nil ||
			p < bestPenalty ||
			(p == bestPenalty && c.Count < best.Count) ||
			(p == bestPenalty && c.Count == best.Count && draw < bestDraw) {
			best, bestPenalty, bestDraw = c, p, draw
		}
	}
	return best
}

// checkDays returns an error if any day falls outside 1..days
func checkDays(list []int, days int) error {
	for _, d := range list {
		if d < 1 || d > days {
			return fmt.Errorf("day %d outside 1..%d", d, days)
		}
	}
	return nil
}
