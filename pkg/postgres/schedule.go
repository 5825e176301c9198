package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/oncall-rota/pkg/db"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var scheduleColumns = []string{
	"id", "year", "month", "scenario", "target_double_count", "strict_line_separation",
	"small_roster", "seed", "attempts", "flap_days", "holiday_days", "created_at", "updated_at",
}

func insertScheduleQuery(s db.Schedule) sq.InsertBuilder {
	return psql.Insert("schedule").
		Columns(scheduleColumns...).
		Values(s.ID, s.Year, s.Month, s.Scenario, s.TargetDoubleCount, s.StrictLineSeparation,
			s.SmallRoster, s.Seed, s.Attempts, intsOrEmpty(s.FlapDays), intsOrEmpty(s.HolidayDays),
			s.CreatedAt, s.UpdatedAt)
}

func insertResidentsQuery(residents []db.ScheduleResident) sq.InsertBuilder {
	q := psql.Insert("schedule_resident").
		Columns("schedule_id", "name", "rank", "unavailable", "quota", "target")
	for _, r := range residents {
		q = q.Values(r.ScheduleID, r.Name, r.Rank, intsOrEmpty(r.Unavailable), r.Quota, r.Target)
	}
	return q
}

func insertDaysQuery(days []db.ScheduleDay) sq.InsertBuilder {
	q := psql.Insert("schedule_day").
		Columns("schedule_id", "day", "coverage", "line1", "line2", "warnings")
	for _, d := range days {
		q = q.Values(d.ScheduleID, d.Day, d.Coverage, nullString(d.Line1), nullString(d.Line2), stringsOrEmpty(d.Warnings))
	}
	return q
}

func insertLocksQuery(locks []db.ScheduleLock) sq.InsertBuilder {
	q := psql.Insert("schedule_lock").Columns("schedule_id", "name", "day")
	for _, l := range locks {
		q = q.Values(l.ScheduleID, l.Name, l.Day)
	}
	return q
}

func selectSchedulesQuery() sq.SelectBuilder {
	return psql.Select(scheduleColumns...).
		From("schedule").
		OrderBy("created_at DESC", "id")
}

func selectScheduleQuery(id string) sq.SelectBuilder {
	return psql.Select(scheduleColumns...).
		From("schedule").
		Where(sq.Eq{"id": id})
}

func selectResidentsQuery(scheduleID string) sq.SelectBuilder {
	return psql.Select("schedule_id", "name", "rank", "unavailable", "quota", "target").
		From("schedule_resident").
		Where(sq.Eq{"schedule_id": scheduleID}).
		OrderBy("name")
}

func selectDaysQuery(scheduleID string) sq.SelectBuilder {
	return psql.Select("schedule_id", "day", "coverage", "line1", "line2", "warnings").
		From("schedule_day").
		Where(sq.Eq{"schedule_id": scheduleID}).
		OrderBy("day")
}

func selectLocksQuery(scheduleID string) sq.SelectBuilder {
	return psql.Select("schedule_id", "name", "day").
		From("schedule_lock").
		Where(sq.Eq{"schedule_id": scheduleID}).
		OrderBy("name", "day")
}

func updateDayQuery(d db.ScheduleDay) sq.UpdateBuilder {
	return psql.Update("schedule_day").
		Set("coverage", d.Coverage).
		Set("line1", nullString(d.Line1)).
		Set("line2", nullString(d.Line2)).
		Set("warnings", stringsOrEmpty(d.Warnings)).
		Where(sq.Eq{"schedule_id": d.ScheduleID, "day": d.Day})
}

func touchScheduleQuery(id string, at time.Time) sq.UpdateBuilder {
	return psql.Update("schedule").
		Set("updated_at", at).
		Where(sq.Eq{"id": id})
}

// InsertSchedule stores a schedule with its residents, days and locks in one transaction
func (d *DB) InsertSchedule(ctx context.Context, record *db.ScheduleRecord) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := execBuilder(ctx, tx, insertScheduleQuery(record.Schedule)); err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}

	if len(record.Residents) > 0 {
		if err := execBuilder(ctx, tx, insertResidentsQuery(record.Residents)); err != nil {
			return fmt.Errorf("failed to insert schedule residents: %w", err)
		}
	}

	if len(record.Days) > 0 {
		if err := execBuilder(ctx, tx, insertDaysQuery(record.Days)); err != nil {
			return fmt.Errorf("failed to insert schedule days: %w", err)
		}
	}

	if len(record.Locks) > 0 {
		if err := execBuilder(ctx, tx, insertLocksQuery(record.Locks)); err != nil {
			return fmt.Errorf("failed to insert schedule locks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSchedules retrieves all schedule headers, newest first
func (d *DB) GetSchedules(ctx context.Context) ([]db.Schedule, error) {
	query, args, err := selectSchedulesQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build schedules query: %w", err)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []db.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

// GetScheduleRecord retrieves a schedule and all of its rows
func (d *DB) GetScheduleRecord(ctx context.Context, id string) (*db.ScheduleRecord, error) {
	query, args, err := selectScheduleQuery(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule query: %w", err)
	}

	schedule, err := scanSchedule(d.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("schedule %s: %w", id, db.ErrNotFound)
		}
		return nil, err
	}

	record := &db.ScheduleRecord{Schedule: schedule}

	if record.Residents, err = d.getResidents(ctx, id); err != nil {
		return nil, err
	}
	if record.Days, err = d.getDays(ctx, id); err != nil {
		return nil, err
	}
	if record.Locks, err = d.getLocks(ctx, id); err != nil {
		return nil, err
	}

	return record, nil
}

// UpdateScheduleDay replaces one day of a schedule and bumps the schedule's updated_at
func (d *DB) UpdateScheduleDay(ctx context.Context, day db.ScheduleDay) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := updateDayQuery(day).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build day update: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update schedule day: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schedule %s day %d: %w", day.ScheduleID, day.Day, db.ErrNotFound)
	}

	if err := execBuilder(ctx, tx, touchScheduleQuery(day.ScheduleID, time.Now().UTC())); err != nil {
		return fmt.Errorf("failed to touch schedule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (d *DB) getResidents(ctx context.Context, scheduleID string) ([]db.ScheduleResident, error) {
	query, args, err := selectResidentsQuery(scheduleID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build residents query: %w", err)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule residents: %w", err)
	}
	defer rows.Close()

	var residents []db.ScheduleResident
	for rows.Next() {
		var r db.ScheduleResident
		if err := rows.Scan(&r.ScheduleID, &r.Name, &r.Rank, &r.Unavailable, &r.Quota, &r.Target); err != nil {
			return nil, fmt.Errorf("failed to scan schedule resident: %w", err)
		}
		residents = append(residents, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule residents: %w", err)
	}

	return residents, nil
}

func (d *DB) getDays(ctx context.Context, scheduleID string) ([]db.ScheduleDay, error) {
	query, args, err := selectDaysQuery(scheduleID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build days query: %w", err)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule days: %w", err)
	}
	defer rows.Close()

	var days []db.ScheduleDay
	for rows.Next() {
		var day db.ScheduleDay
		var line1, line2 *string
		if err := rows.Scan(&day.ScheduleID, &day.Day, &day.Coverage, &line1, &line2, &day.Warnings); err != nil {
			return nil, fmt.Errorf("failed to scan schedule day: %w", err)
		}
		if line1 != nil {
			day.Line1 = *line1
		}
		if line2 != nil {
			day.Line2 = *line2
		}
		days = append(days, day)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule days: %w", err)
	}

	return days, nil
}

func (d *DB) getLocks(ctx context.Context, scheduleID string) ([]db.ScheduleLock, error) {
	query, args, err := selectLocksQuery(scheduleID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build locks query: %w", err)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule locks: %w", err)
	}
	defer rows.Close()

	var locks []db.ScheduleLock
	for rows.Next() {
		var l db.ScheduleLock
		if err := rows.Scan(&l.ScheduleID, &l.Name, &l.Day); err != nil {
			return nil, fmt.Errorf("failed to scan schedule lock: %w", err)
		}
		locks = append(locks, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule locks: %w", err)
	}

	return locks, nil
}

func scanSchedule(row pgx.Row) (db.Schedule, error) {
	var s db.Schedule
	err := row.Scan(&s.ID, &s.Year, &s.Month, &s.Scenario, &s.TargetDoubleCount, &s.StrictLineSeparation,
		&s.SmallRoster, &s.Seed, &s.Attempts, &s.FlapDays, &s.HolidayDays, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, err
		}
		return s, fmt.Errorf("failed to scan schedule: %w", err)
	}
	return s, nil
}

func execBuilder(ctx context.Context, tx pgx.Tx, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intsOrEmpty(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func stringsOrEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
