package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
	"github.com/jakechorley/oncall-rota/pkg/db"
)

// EditScheduleDayStore defines the database operations needed for editing a schedule day
type EditScheduleDayStore interface {
	GetScheduleRecord(ctx context.Context, id string) (*db.ScheduleRecord, error)
	UpdateScheduleDay(ctx context.Context, day db.ScheduleDay) error
}

// DayEdit replaces the assignment of one day
type DayEdit struct {
	Day   int    `json:"day"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`

	// Coverage is inferred from the filled slots when empty
	Coverage allocator.Coverage `json:"coverage,omitempty"`
}

// EditScheduleDay applies a manual edit to one day of a stored schedule and returns the schedule
// with stats and validation recomputed. Names must be on the schedule's roster, but the edit is
// saved even if it breaks scheduling rules; those show up as validation errors.
// The day's warnings are cleared since they described the allocator's placement.
func EditScheduleDay(ctx context.Context, store EditScheduleDayStore, logger *zap.Logger, id string, edit DayEdit) (*ScheduleView, error) {
	logger.Debug("Editing schedule day",
		zap.String("id", id),
		zap.Int("day", edit.Day),
		zap.String("line1", edit.Line1),
		zap.String("line2", edit.Line2))

	record, err := store.GetScheduleRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}

	idx := -1
	for i, d := range record.Days {
		if d.Day == edit.Day {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: day %d is not in schedule %s (%d days)", allocator.ErrInvalidRequest, edit.Day, id, len(record.Days))
	}

	coverage, err := resolveEditCoverage(edit)
	if err != nil {
		return nil, err
	}

	roster := make(map[string]bool, len(record.Residents))
	for _, r := range record.Residents {
		roster[r.Name] = true
	}
	for _, name := range []string{edit.Line1, edit.Line2} {
		if name != "" && !roster[name] {
			return nil, fmt.Errorf("%w: %q is not on the roster of schedule %s", allocator.ErrInvalidRequest, name, id)
		}
	}

	updated := db.ScheduleDay{
		ScheduleID: record.Schedule.ID,
		Day:        edit.Day,
		Coverage:   string(coverage),
		Line1:      edit.Line1,
		Line2:      edit.Line2,
		Warnings:   []string{},
	}

	if err := store.UpdateScheduleDay(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update schedule day: %w", err)
	}
	record.Days[idx] = updated

	view, err := buildScheduleView(record)
	if err != nil {
		return nil, err
	}

	logger.Info("Schedule day updated",
		zap.String("id", id),
		zap.Int("day", edit.Day),
		zap.Int("validation_errors", len(view.ValidationErrors)))

	return view, nil
}

func resolveEditCoverage(edit DayEdit) (allocator.Coverage, error) {
	if edit.Coverage == "" {
		if edit.Line1 != "" && edit.Line2 != "" {
			return allocator.CoverageDouble, nil
		}
		return allocator.CoverageSingle, nil
	}

	if !edit.Coverage.Valid() {
		return "", fmt.Errorf("%w: unknown coverage %q", allocator.ErrInvalidRequest, edit.Coverage)
	}
	return edit.Coverage, nil
}
