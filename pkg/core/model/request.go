// Package model holds the scheduling request document exchanged with the CLI and the HTTP API.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
	"github.com/jakechorley/oncall-rota/pkg/core/calendar"
)

// ResidentSpec is one roster entry of a request document
type ResidentSpec struct {
	Name        string `yaml:"name" json:"name" validate:"required"`
	Rank        string `yaml:"rank" json:"rank" validate:"required"`
	Unavailable []int  `yaml:"unavailable,omitempty" json:"unavailable,omitempty" validate:"dive,min=1,max=31"`
}

// ScheduleRequest is the document a coordinator submits to generate a month
type ScheduleRequest struct {
	Year      int            `yaml:"year" json:"year" validate:"required,min=2000,max=2200"`
	Month     int            `yaml:"month" json:"month" validate:"required,min=1,max=12"`
	Residents []ResidentSpec `yaml:"residents" json:"residents" validate:"required,min=1,dive"`

	FlapDays  []int    `yaml:"flapDays,omitempty" json:"flapDays,omitempty" validate:"dive,min=1,max=31"`
	FlapRules []string `yaml:"flapRules,omitempty" json:"flapRules,omitempty" validate:"dive,required"`

	// HolidayDays replaces the default holidays when present; nil means weekends plus the
	// configured holiday rules
	HolidayDays   []int `yaml:"holidayDays,omitempty" json:"holidayDays,omitempty" validate:"dive,min=1,max=31"`
	ExtraHolidays []int `yaml:"extraHolidays,omitempty" json:"extraHolidays,omitempty" validate:"dive,min=1,max=31"`

	LockedAssignments map[string][]int `yaml:"lockedAssignments,omitempty" json:"lockedAssignments,omitempty" validate:"dive,dive,min=1,max=31"`

	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadRequest reads a request document; .json files are decoded as JSON, anything else as YAML
func LoadRequest(path string) (*ScheduleRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}

	var req ScheduleRequest
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &req)
	} else {
		err = yaml.Unmarshal(data, &req)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse request file: %w", err)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &req, nil
}

// Validate checks the document structure: field ranges, known ranks, unique names, days within
// the month and locked names present in the roster
func (r *ScheduleRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("request validation failed: %w", err)
	}

	days := calendar.DaysInMonth(r.Year, time.Month(r.Month))
	inMonth := func(field string, list []int) error {
		for _, d := range list {
			if d > days {
				return fmt.Errorf("request validation failed: %s day %d outside 1..%d", field, d, days)
			}
		}
		return nil
	}

	names := make(map[string]bool, len(r.Residents))
	for i, res := range r.Residents {
		if names[res.Name] {
			return fmt.Errorf("request validation failed: duplicate resident %q", res.Name)
		}
		names[res.Name] = true

		if _, err := allocator.ParseRank(res.Rank); err != nil {
			return fmt.Errorf("request validation failed: residents[%d]: %w", i, err)
		}
		if err := inMonth(fmt.Sprintf("residents[%d].unavailable", i), res.Unavailable); err != nil {
			return err
		}
	}

	for field, list := range map[string][]int{
		"flapDays":      r.FlapDays,
		"holidayDays":   r.HolidayDays,
		"extraHolidays": r.ExtraHolidays,
	} {
		if err := inMonth(field, list); err != nil {
			return err
		}
	}

	for name, locked := range r.LockedAssignments {
		if !names[name] {
			return fmt.Errorf("request validation failed: locked assignment for unknown resident %q", name)
		}
		if err := inMonth("lockedAssignments."+name, locked); err != nil {
			return err
		}
	}

	return nil
}

// AllocatorResidents converts the roster into allocator residents
func (r *ScheduleRequest) AllocatorResidents() ([]allocator.Resident, error) {
	residents := make([]allocator.Resident, 0, len(r.Residents))
	for _, res := range r.Residents {
		rank, err := allocator.ParseRank(res.Rank)
		if err != nil {
			return nil, err
		}
		residents = append(residents, allocator.Resident{
			Name:        res.Name,
			Rank:        rank,
			Unavailable: res.Unavailable,
		})
	}
	return residents, nil
}

// Holidays resolves the holiday set: explicit holidayDays if given, otherwise weekends plus the
// holiday rules, and in both cases the extra holidays
func (r *ScheduleRequest) Holidays(holidayRules []string) ([]int, error) {
	base := r.HolidayDays
	if base == nil {
		var err error
		base, err = calendar.DefaultHolidays(r.Year, time.Month(r.Month), holidayRules)
		if err != nil {
			return nil, err
		}
	}
	return calendar.Merge(base, r.ExtraHolidays), nil
}

// Flaps resolves the flap day set from explicit days and flap rules
func (r *ScheduleRequest) Flaps() ([]int, error) {
	fromRules, err := calendar.ExpandRules(r.FlapRules, r.Year, time.Month(r.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to expand flap rules: %w", err)
	}
	return calendar.Merge(r.FlapDays, fromRules), nil
}

// ToAllocatorRequest builds the allocator request, resolving holiday and flap rules
func (r *ScheduleRequest) ToAllocatorRequest(holidayRules []string) (allocator.Request, error) {
	residents, err := r.AllocatorResidents()
	if err != nil {
		return allocator.Request{}, err
	}

	holidays, err := r.Holidays(holidayRules)
	if err != nil {
		return allocator.Request{}, err
	}

	flaps, err := r.Flaps()
	if err != nil {
		return allocator.Request{}, err
	}

	return allocator.Request{
		Year:              r.Year,
		Month:             time.Month(r.Month),
		Residents:         residents,
		FlapDays:          flaps,
		HolidayDays:       holidays,
		LockedAssignments: r.LockedAssignments,
	}, nil
}

// LoadCalendar reads a calendar previously produced by the allocator (a JSON array of days)
func LoadCalendar(path string) (allocator.Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar file: %w", err)
	}

	var cal allocator.Calendar
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("failed to parse calendar file: %w", err)
	}

	if err := cal.CheckSequence(); err != nil {
		return nil, err
	}

	return cal, nil
}
