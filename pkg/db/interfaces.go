package db

import "context"

// ScheduleStore defines the interface for schedule database operations
type ScheduleStore interface {
	// InsertSchedule stores a schedule and all of its rows atomically
	InsertSchedule(ctx context.Context, record *ScheduleRecord) error

	// GetSchedules returns every schedule header, newest first
	GetSchedules(ctx context.Context) ([]Schedule, error)

	// GetScheduleRecord returns a schedule with its rows, or ErrNotFound
	GetScheduleRecord(ctx context.Context, id string) (*ScheduleRecord, error)

	// UpdateScheduleDay replaces one day of a schedule, or returns ErrNotFound
	UpdateScheduleDay(ctx context.Context, day ScheduleDay) error
}

// Database defines the interface for all database operations.
// postgres.DB implements this interface.
type Database interface {
	ScheduleStore
	// RunMigrations applies pending schema migrations and returns their filenames
	RunMigrations(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close()
}
