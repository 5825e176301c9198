package db

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// Schedule is one generated month
type Schedule struct {
	ID    string `json:"id"`
	Year  int    `json:"year"`
	Month int    `json:"month"`

	Scenario             string `json:"scenario"`
	TargetDoubleCount    int    `json:"targetDoubleCount"`
	StrictLineSeparation bool   `json:"strictLineSeparation"`
	SmallRoster          bool   `json:"smallRoster"`

	Seed     int64 `json:"seed"`
	Attempts int   `json:"attempts"`

	FlapDays    []int `json:"flapDays"`
	HolidayDays []int `json:"holidayDays"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ScheduleResident is a roster entry frozen with the schedule
type ScheduleResident struct {
	ScheduleID  string
	Name        string
	Rank        string
	Unavailable []int
	Quota       int
	Target      int
}

// ScheduleDay is one day of a schedule's calendar
type ScheduleDay struct {
	ScheduleID string
	Day        int
	Coverage   string
	Line1      string
	Line2      string
	Warnings   []string
}

// ScheduleLock is one locked (resident, day) pair of the request
type ScheduleLock struct {
	ScheduleID string
	Name       string
	Day        int
}

// ScheduleRecord is a schedule with all of its rows
type ScheduleRecord struct {
	Schedule  Schedule
	Residents []ScheduleResident
	Days      []ScheduleDay
	Locks     []ScheduleLock
}
