package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
	"github.com/jakechorley/oncall-rota/pkg/db"
)

func rulesOf(errs []allocator.DayValidationError) []string {
	rules := make([]string, 0, len(errs))
	for _, e := range errs {
		rules = append(rules, e.Rule)
	}
	return rules
}

func TestEditScheduleDay_SwapReportsRoleEligibility(t *testing.T) {
	store := newMockScheduleStore()
	id := generateInto(t, store, 0)
	day3 := store.records[id].Days[2]

	// Swapping the lines of a strict-pairs day puts a senior on line-1
	view, err := EditScheduleDay(context.Background(), store, zap.NewNop(), id, DayEdit{
		Day:   3,
		Line1: day3.Line2,
		Line2: day3.Line1,
	})
	require.NoError(t, err)

	require.Len(t, store.updated, 1)
	assert.Equal(t, "double", store.updated[0].Coverage, "Coverage inferred from both slots")
	assert.Empty(t, store.updated[0].Warnings)
	assert.Equal(t, day3.Line2, view.Calendar.Day(3).Line1)
	assert.Contains(t, rulesOf(view.ValidationErrors), allocator.RuleRoleEligibility)
}

func TestEditScheduleDay_ConsecutiveDaysReported(t *testing.T) {
	store := newMockScheduleStore()
	id := generateInto(t, store, 0)
	record := store.records[id]
	record.Days[0].Warnings = nil
	day1 := record.Days[0]

	view, err := EditScheduleDay(context.Background(), store, zap.NewNop(), id, DayEdit{
		Day:   2,
		Line1: day1.Line1,
		Line2: day1.Line2,
	})
	require.NoError(t, err)

	assert.Contains(t, rulesOf(view.ValidationErrors), allocator.RuleNoConsecutiveDays)
	assert.Equal(t, day1.Line1, view.Calendar.Day(2).Line1)
}

func TestEditScheduleDay_SingleCoverage(t *testing.T) {
	store := newMockScheduleStore()
	id := generateInto(t, store, 0)
	day5 := store.records[id].Days[4]

	view, err := EditScheduleDay(context.Background(), store, zap.NewNop(), id, DayEdit{Day: 5, Line2: day5.Line2})
	require.NoError(t, err)

	assert.Equal(t, allocator.CoverageSingle, view.Calendar.Day(5).Coverage)
	assert.Equal(t, 1, view.Stats[day5.Line2].SingleCount)
}

func TestEditScheduleDay_Rejected(t *testing.T) {
	store := newMockScheduleStore()
	id := generateInto(t, store, 0)

	tests := []struct {
		name string
		edit DayEdit
	}{
		{"day out of range", DayEdit{Day: 31, Line2: "Eve"}},
		{"unknown resident", DayEdit{Day: 1, Line2: "Zed"}},
		{"unknown coverage", DayEdit{Day: 1, Line2: "Eve", Coverage: "triple"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EditScheduleDay(context.Background(), store, zap.NewNop(), id, tt.edit)
			assert.ErrorIs(t, err, allocator.ErrInvalidRequest)
		})
	}

	assert.Empty(t, store.updated)
}

func TestEditScheduleDay_NotFound(t *testing.T) {
	_, err := EditScheduleDay(context.Background(), newMockScheduleStore(), zap.NewNop(), "missing", DayEdit{Day: 1})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestEditScheduleDay_UpdateError(t *testing.T) {
	store := newMockScheduleStore()
	id := generateInto(t, store, 0)
	store.updateErr = errStore

	_, err := EditScheduleDay(context.Background(), store, zap.NewNop(), id, DayEdit{Day: 1, Line2: "Eve"})
	assert.ErrorIs(t, err, errStore)
	assert.Contains(t, err.Error(), "failed to update schedule day")
}
