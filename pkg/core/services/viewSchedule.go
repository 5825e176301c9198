package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
	"github.com/jakechorley/oncall-rota/pkg/db"
)

// ViewScheduleStore defines the database operations needed for viewing schedules
type ViewScheduleStore interface {
	GetSchedules(ctx context.Context) ([]db.Schedule, error)
	GetScheduleRecord(ctx context.Context, id string) (*db.ScheduleRecord, error)
}

// ScheduleView is a stored schedule with stats and validation recomputed from its calendar
type ScheduleView struct {
	Schedule db.Schedule `json:"schedule"`

	Residents         []allocator.Resident `json:"residents"`
	FlapDays          []int                `json:"flapDays"`
	HolidayDays       []int                `json:"holidayDays"`
	LockedAssignments map[string][]int     `json:"lockedAssignments,omitempty"`

	Plan     allocator.QuotaPlan              `json:"plan"`
	Calendar allocator.Calendar               `json:"calendar"`
	Stats    map[string]allocator.PersonStats `json:"stats"`
	Fairness allocator.FairnessSummary        `json:"fairness"`

	ValidationErrors []allocator.DayValidationError `json:"validationErrors"`
}

// ListSchedules returns every stored schedule header, newest first
func ListSchedules(ctx context.Context, store ViewScheduleStore, logger *zap.Logger) ([]db.Schedule, error) {
	logger.Debug("Fetching schedules")
	schedules, err := store.GetSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedules: %w", err)
	}
	logger.Debug("Found schedules", zap.Int("count", len(schedules)))

	return schedules, nil
}

// ViewSchedule loads a stored schedule and recomputes its stats and validation.
// An empty id selects the most recently created schedule.
func ViewSchedule(ctx context.Context, store ViewScheduleStore, logger *zap.Logger, id string) (*ScheduleView, error) {
	if id == "" {
		schedules, err := ListSchedules(ctx, store, logger)
		if err != nil {
			return nil, err
		}

		latest := findLatestSchedule(schedules)
		if latest == nil {
			return nil, fmt.Errorf("no schedules found - please run generateSchedule first: %w", db.ErrNotFound)
		}
		id = latest.ID
		logger.Debug("Using latest schedule", zap.String("id", id))
	}

	logger.Debug("Fetching schedule", zap.String("id", id))
	record, err := store.GetScheduleRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}

	view, err := buildScheduleView(record)
	if err != nil {
		return nil, err
	}

	logger.Debug("Schedule loaded",
		zap.String("id", id),
		zap.Int("days", len(view.Calendar)),
		zap.Int("validation_errors", len(view.ValidationErrors)))

	return view, nil
}

func buildScheduleView(record *db.ScheduleRecord) (*ScheduleView, error) {
	req, cal, plan, err := fromScheduleRecord(record)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule: %w", err)
	}

	stats := allocator.RecomputeStats(cal, req.Residents, req.FlapDays, req.HolidayDays)

	return &ScheduleView{
		Schedule:          record.Schedule,
		Residents:         req.Residents,
		FlapDays:          req.FlapDays,
		HolidayDays:       req.HolidayDays,
		LockedAssignments: req.LockedAssignments,
		Plan:              plan,
		Calendar:          cal,
		Stats:             stats,
		Fairness:          allocator.Fairness(stats),
		ValidationErrors: allocator.ValidateCalendar(allocator.ValidationInput{
			Calendar:          cal,
			Residents:         req.Residents,
			Quotas:            plan.Quotas,
			LockedAssignments: req.LockedAssignments,
		}),
	}, nil
}
