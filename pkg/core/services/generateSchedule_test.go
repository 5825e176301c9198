package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/internal/config"
	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
	"github.com/jakechorley/oncall-rota/pkg/core/model"
	"github.com/jakechorley/oncall-rota/pkg/metrics"
)

func TestGenerateSchedule_Saves(t *testing.T) {
	store := newMockScheduleStore()
	recorder := newMockRecorder()

	result, err := GenerateSchedule(context.Background(), store, testConfig(), zap.NewNop(), recorder, pairsRequest(), GenerateOptions{})
	require.NoError(t, err)

	assert.True(t, result.Saved)
	_, err = uuid.Parse(result.ScheduleID)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.inserted)

	record := store.records[result.ScheduleID]
	require.NotNil(t, record)
	assert.Equal(t, 2025, record.Schedule.Year)
	assert.Equal(t, 4, record.Schedule.Month)
	assert.Equal(t, int64(42), record.Schedule.Seed)
	assert.Equal(t, string(allocator.ScenarioStrictPairs), record.Schedule.Scenario)
	assert.Equal(t, []int{7, 14}, record.Schedule.FlapDays)
	assert.Equal(t, []int{5, 6, 12, 13, 19, 20, 26, 27}, record.Schedule.HolidayDays, "Weekends are the default holidays")
	assert.Len(t, record.Residents, 8)
	assert.Len(t, record.Days, 30)
	require.Len(t, record.Locks, 1)
	assert.Equal(t, "Amy", record.Locks[0].Name)
	assert.Equal(t, 10, record.Locks[0].Day)

	// Stored rows match the outcome
	for i, plan := range result.Outcome.Calendar {
		assert.Equal(t, plan.Line1, record.Days[i].Line1)
		assert.Equal(t, plan.Line2, record.Days[i].Line2)
	}
	assert.Equal(t, "Amy", result.Outcome.Calendar.Day(10).Line1)

	assert.Equal(t, []string{metrics.ResultSuccess}, recorder.results)
	assert.Equal(t, []int{result.Outcome.Attempts}, recorder.attempts)
	assert.Equal(t, 0, recorder.singleDays)
}

func TestGenerateSchedule_DryRun(t *testing.T) {
	store := newMockScheduleStore()

	result, err := GenerateSchedule(context.Background(), store, testConfig(), zap.NewNop(), nil, pairsRequest(), GenerateOptions{DryRun: true})
	require.NoError(t, err)

	assert.False(t, result.Saved)
	assert.Empty(t, result.ScheduleID)
	assert.Equal(t, 0, store.inserted)
	assert.True(t, result.Outcome.Valid())
}

func TestGenerateSchedule_NilStore(t *testing.T) {
	result, err := GenerateSchedule(context.Background(), nil, testConfig(), zap.NewNop(), nil, pairsRequest(), GenerateOptions{})
	require.NoError(t, err)
	assert.False(t, result.Saved)
}

func TestGenerateSchedule_SeedPrecedence(t *testing.T) {
	opts := GenerateOptions{DryRun: true, Seed: int64Ptr(7)}

	result, err := GenerateSchedule(context.Background(), nil, testConfig(), zap.NewNop(), nil, pairsRequest(), opts)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Outcome.Seed, "Option seed overrides the document seed")

	again, err := GenerateSchedule(context.Background(), nil, testConfig(), zap.NewNop(), nil, pairsRequest(), opts)
	require.NoError(t, err)
	assert.Equal(t, result.Outcome.Calendar, again.Outcome.Calendar, "Same seed gives the same calendar")
}

func TestGenerateSchedule_HolidayRulesFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.HolidayRules = []config.HolidayRule{{RRule: "FREQ=YEARLY;BYMONTH=4;BYMONTHDAY=18", Name: "Good Friday"}}

	result, err := GenerateSchedule(context.Background(), nil, cfg, zap.NewNop(), nil, pairsRequest(), GenerateOptions{DryRun: true})
	require.NoError(t, err)

	assert.Contains(t, result.Request.HolidayDays, 18)
	assert.Contains(t, result.Request.HolidayDays, 5)
}

func TestGenerateSchedule_InvalidRequest(t *testing.T) {
	store := newMockScheduleStore()
	recorder := newMockRecorder()

	req := pairsRequest()
	req.Residents[0].Rank = "R9"

	_, err := GenerateSchedule(context.Background(), store, testConfig(), zap.NewNop(), recorder, req, GenerateOptions{})
	assert.ErrorIs(t, err, allocator.ErrInvalidRequest)
	assert.Contains(t, err.Error(), "unknown rank")
	assert.Equal(t, []string{metrics.ResultInvalid}, recorder.results)
	assert.Equal(t, 0, store.inserted)
}

func TestGenerateSchedule_Infeasible(t *testing.T) {
	recorder := newMockRecorder()

	all := make([]int, 30)
	for i := range all {
		all[i] = i + 1
	}
	req := &model.ScheduleRequest{
		Year:  2025,
		Month: 4,
		Residents: []model.ResidentSpec{
			{Name: "Amy", Rank: "R3"},
			{Name: "Eve", Rank: "R5", Unavailable: all},
		},
	}

	_, err := GenerateSchedule(context.Background(), nil, &config.Config{MaxAttempts: 3}, zap.NewNop(), recorder, req, GenerateOptions{})
	assert.ErrorIs(t, err, allocator.ErrInfeasible)
	assert.Contains(t, err.Error(), "try relaxing locked dates")
	assert.Equal(t, []string{metrics.ResultInfeasible}, recorder.results)
}

func TestGenerateSchedule_InsertError(t *testing.T) {
	store := newMockScheduleStore()
	store.insertErr = errStore

	_, err := GenerateSchedule(context.Background(), store, testConfig(), zap.NewNop(), nil, pairsRequest(), GenerateOptions{})
	assert.ErrorIs(t, err, errStore)
	assert.Contains(t, err.Error(), "failed to save schedule")
}

func TestResolveOptions(t *testing.T) {
	req := &model.ScheduleRequest{Seed: int64Ptr(3)}

	opts := resolveOptions(&config.Config{MaxAttempts: 50, Workers: 4}, req, GenerateOptions{MaxAttempts: 10})
	assert.Equal(t, 10, opts.MaxAttempts)
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, int64(3), opts.Seed)

	opts = resolveOptions(nil, &model.ScheduleRequest{}, GenerateOptions{})
	assert.Equal(t, 0, opts.MaxAttempts, "Zero leaves the allocator default in place")
	assert.NotZero(t, opts.Seed)
}
