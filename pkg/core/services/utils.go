package services

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
	"github.com/jakechorley/oncall-rota/pkg/db"
)

// findLatestSchedule returns the schedule created most recently
func findLatestSchedule(schedules []db.Schedule) *db.Schedule {
	if len(schedules) == 0 {
		return nil
	}

	latest := &schedules[0]
	for i := 1; i < len(schedules); i++ {
		if schedules[i].CreatedAt.After(latest.CreatedAt) {
			latest = &schedules[i]
		}
	}

	return latest
}

// toScheduleRecord flattens a generated outcome into database rows
func toScheduleRecord(id string, req allocator.Request, out *allocator.Outcome, now time.Time) *db.ScheduleRecord {
	record := &db.ScheduleRecord{
		Schedule: db.Schedule{
			ID:                   id,
			Year:                 req.Year,
			Month:                int(req.Month),
			Scenario:             string(out.Plan.Scenario),
			TargetDoubleCount:    out.Plan.TargetDoubleCount,
			StrictLineSeparation: out.Plan.StrictLineSeparation,
			SmallRoster:          out.Plan.SmallRoster,
			Seed:                 out.Seed,
			Attempts:             out.Attempts,
			FlapDays:             slices.Clone(req.FlapDays),
			HolidayDays:          slices.Clone(req.HolidayDays),
			CreatedAt:            now,
			UpdatedAt:            now,
		},
	}

	for _, r := range req.Residents {
		record.Residents = append(record.Residents, db.ScheduleResident{
			ScheduleID:  id,
			Name:        r.Name,
			Rank:        string(r.Rank),
			Unavailable: slices.Clone(r.Unavailable),
			Quota:       out.Plan.Quotas[r.Name],
			Target:      out.Plan.Targets[r.Name],
		})
	}

	for _, plan := range out.Calendar {
		record.Days = append(record.Days, toScheduleDay(id, plan))
	}

	record.Locks = toScheduleLocks(id, req.LockedAssignments)

	return record
}

func toScheduleDay(scheduleID string, plan *allocator.DayPlan) db.ScheduleDay {
	warnings := make([]string, 0, len(plan.Warnings))
	for _, w := range plan.Warnings {
		warnings = append(warnings, string(w))
	}

	return db.ScheduleDay{
		ScheduleID: scheduleID,
		Day:        plan.Day,
		Coverage:   string(plan.Coverage),
		Line1:      plan.Line1,
		Line2:      plan.Line2,
		Warnings:   warnings,
	}
}

// toScheduleLocks lists locked days sorted by name then day, dropping duplicates
func toScheduleLocks(scheduleID string, locked map[string][]int) []db.ScheduleLock {
	names := make([]string, 0, len(locked))
	for name := range locked {
		names = append(names, name)
	}
	sort.Strings(names)

	var locks []db.ScheduleLock
	for _, name := range names {
		days := slices.Clone(locked[name])
		slices.Sort(days)
		for _, day := range slices.Compact(days) {
			locks = append(locks, db.ScheduleLock{ScheduleID: scheduleID, Name: name, Day: day})
		}
	}

	return locks
}

// fromScheduleRecord rebuilds the allocator request, calendar and quota plan of a stored schedule
func fromScheduleRecord(record *db.ScheduleRecord) (allocator.Request, allocator.Calendar, allocator.QuotaPlan, error) {
	s := record.Schedule

	req := allocator.Request{
		Year:        s.Year,
		Month:       time.Month(s.Month),
		FlapDays:    s.FlapDays,
		HolidayDays: s.HolidayDays,
	}

	plan := allocator.QuotaPlan{
		Scenario:             allocator.Scenario(s.Scenario),
		TargetDoubleCount:    s.TargetDoubleCount,
		StrictLineSeparation: s.StrictLineSeparation,
		SmallRoster:          s.SmallRoster,
		Quotas:               make(map[string]int, len(record.Residents)),
		Targets:              make(map[string]int, len(record.Residents)),
	}

	for _, r := range record.Residents {
		rank, err := allocator.ParseRank(r.Rank)
		if err != nil {
			return req, nil, plan, fmt.Errorf("schedule %s resident %q: %w", s.ID, r.Name, err)
		}
		req.Residents = append(req.Residents, allocator.Resident{
			Name:        r.Name,
			Rank:        rank,
			Unavailable: r.Unavailable,
		})
		plan.Quotas[r.Name] = r.Quota
		plan.Targets[r.Name] = r.Target
	}

	if len(record.Locks) > 0 {
		req.LockedAssignments = make(map[string][]int)
		for _, l := range record.Locks {
			req.LockedAssignments[l.Name] = append(req.LockedAssignments[l.Name], l.Day)
		}
	}

	days := make([]db.ScheduleDay, len(record.Days))
	copy(days, record.Days)
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	cal := make(allocator.Calendar, 0, len(days))
	for i, d := range days {
		if d.Day != i+1 {
			return req, nil, plan, fmt.Errorf("schedule %s is missing day %d", s.ID, i+1)
		}
		day := &allocator.DayPlan{
			Day:      d.Day,
			Coverage: allocator.Coverage(d.Coverage),
			Line1:    d.Line1,
			Line2:    d.Line2,
		}
		for _, w := range d.Warnings {
			day.Warnings = append(day.Warnings, allocator.Warning(w))
		}
		cal = append(cal, day)
	}

	return req, cal, plan, nil
}
