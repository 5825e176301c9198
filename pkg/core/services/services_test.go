package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jakechorley/oncall-rota/internal/config"
	"github.com/jakechorley/oncall-rota/pkg/core/model"
	"github.com/jakechorley/oncall-rota/pkg/db"
)

// mockScheduleStore is an in-memory db.ScheduleStore
type mockScheduleStore struct {
	records   map[string]*db.ScheduleRecord
	inserted  int
	updated   []db.ScheduleDay
	insertErr error
	getErr    error
	updateErr error
}

func newMockScheduleStore() *mockScheduleStore {
	return &mockScheduleStore{records: make(map[string]*db.ScheduleRecord)}
}

func (m *mockScheduleStore) InsertSchedule(ctx context.Context, record *db.ScheduleRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records[record.Schedule.ID] = record
	m.inserted++
	return nil
}

func (m *mockScheduleStore) GetSchedules(ctx context.Context) ([]db.Schedule, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var schedules []db.Schedule
	for _, r := range m.records {
		schedules = append(schedules, r.Schedule)
	}
	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].CreatedAt.After(schedules[j].CreatedAt)
	})
	return schedules, nil
}

func (m *mockScheduleStore) GetScheduleRecord(ctx context.Context, id string) (*db.ScheduleRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	record, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("schedule %s: %w", id, db.ErrNotFound)
	}
	return record, nil
}

func (m *mockScheduleStore) UpdateScheduleDay(ctx context.Context, day db.ScheduleDay) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	record, ok := m.records[day.ScheduleID]
	if !ok {
		return db.ErrNotFound
	}
	for i := range record.Days {
		if record.Days[i].Day == day.Day {
			record.Days[i] = day
			m.updated = append(m.updated, day)
			return nil
		}
	}
	return db.ErrNotFound
}

// mockRecorder captures metric events
type mockRecorder struct {
	results    []string
	attempts   []int
	warnings   map[string]int
	singleDays int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{warnings: make(map[string]int), singleDays: -1}
}

func (m *mockRecorder) RecordGeneration(result string, attempts int, _ float64) {
	m.results = append(m.results, result)
	m.attempts = append(m.attempts, attempts)
}

func (m *mockRecorder) RecordWarning(tag string) {
	m.warnings[tag]++
}

func (m *mockRecorder) SetSingleDays(count int) {
	m.singleDays = count
}

var errStore = errors.New("connection refused")

func testConfig() *config.Config {
	return &config.Config{MaxAttempts: 200, Workers: 1}
}

func int64Ptr(v int64) *int64 {
	return &v
}

// pairsRequest is the two-per-rank April 2025 roster
func pairsRequest() *model.ScheduleRequest {
	return &model.ScheduleRequest{
		Year:  2025,
		Month: 4,
		Residents: []model.ResidentSpec{
			{Name: "Amy", Rank: "R3"},
			{Name: "Ben", Rank: "R3"},
			{Name: "Cat", Rank: "R4"},
			{Name: "Dan", Rank: "R4"},
			{Name: "Eve", Rank: "R5"},
			{Name: "Fay", Rank: "R5"},
			{Name: "Gus", Rank: "R6"},
			{Name: "Hal", Rank: "R6"},
		},
		FlapDays:          []int{7, 14},
		LockedAssignments: map[string][]int{"Amy": {10}},
		Seed:              int64Ptr(42),
	}
}
