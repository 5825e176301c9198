package services

import (
	"fmt"

	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
	"github.com/jakechorley/oncall-rota/pkg/core/model"
)

// StatsResult reports the totals of a calendar held outside the store
type StatsResult struct {
	Stats            map[string]allocator.PersonStats `json:"stats"`
	Fairness         allocator.FairnessSummary        `json:"fairness"`
	ValidationErrors []allocator.DayValidationError   `json:"validationErrors"`
}

// RecomputeStats derives stats and validation for a calendar against its request document.
// Quotas are checked against a fresh quota plan for the roster.
func RecomputeStats(req *model.ScheduleRequest, cal allocator.Calendar, holidayRules []string) (*StatsResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", allocator.ErrInvalidRequest, err)
	}

	allocReq, err := req.ToAllocatorRequest(holidayRules)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", allocator.ErrInvalidRequest, err)
	}

	days := allocator.DaysInMonth(allocReq.Year, allocReq.Month)
	if len(cal) != days {
		return nil, fmt.Errorf("%w: calendar has %d days, month has %d", allocator.ErrInvalidRequest, len(cal), days)
	}
	if err := cal.CheckSequence(); err != nil {
		return nil, fmt.Errorf("%w: %w", allocator.ErrInvalidRequest, err)
	}

	stats := allocator.RecomputeStats(cal, allocReq.Residents, allocReq.FlapDays, allocReq.HolidayDays)
	plan := allocator.PlanQuotas(allocReq.Residents, days)

	return &StatsResult{
		Stats:    stats,
		Fairness: allocator.Fairness(stats),
		ValidationErrors: allocator.ValidateCalendar(allocator.ValidationInput{
			Calendar:          cal,
			Residents:         allocReq.Residents,
			Quotas:            plan.Quotas,
			LockedAssignments: allocReq.LockedAssignments,
		}),
	}, nil
}
