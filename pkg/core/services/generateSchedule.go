package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/internal/config"
	"github.com/jakechorley/oncall-rota/pkg/core/allocator"
	"github.com/jakechorley/oncall-rota/pkg/core/model"
	"github.com/jakechorley/oncall-rota/pkg/db"
	"github.com/jakechorley/oncall-rota/pkg/metrics"
)

// GenerateScheduleStore defines the database operations needed for generating a schedule
type GenerateScheduleStore interface {
	InsertSchedule(ctx context.Context, record *db.ScheduleRecord) error
}

// GenerateOptions override the configured search settings for one run
type GenerateOptions struct {
	// Seed takes precedence over the request document's seed; a random seed is used if neither is set
	Seed *int64

	// MaxAttempts and Workers fall back to the config values when zero
	MaxAttempts int
	Workers     int

	// DryRun skips persisting the schedule
	DryRun bool
}

// GenerateScheduleResult contains the generated schedule
type GenerateScheduleResult struct {
	// ScheduleID is empty when the schedule was not saved
	ScheduleID string
	Saved      bool

	Request allocator.Request
	Outcome *allocator.Outcome
}

// GenerateSchedule runs the allocator for a request document and stores the resulting calendar.
// The schedule is not saved when opts.DryRun is set or store is nil.
func GenerateSchedule(
	ctx context.Context,
	store GenerateScheduleStore,
	cfg *config.Config,
	logger *zap.Logger,
	recorder metrics.Recorder,
	req *model.ScheduleRequest,
	opts GenerateOptions,
) (*GenerateScheduleResult, error) {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	started := time.Now()

	logger.Debug("Starting generateSchedule",
		zap.Int("year", req.Year),
		zap.Int("month", req.Month),
		zap.Int("residents", len(req.Residents)),
		zap.Bool("dry_run", opts.DryRun))

	// Step 1: Validate the request document and resolve holiday and flap rules
	if err := req.Validate(); err != nil {
		recorder.RecordGeneration(metrics.ResultInvalid, 0, time.Since(started).Seconds())
		return nil, fmt.Errorf("%w: %w", allocator.ErrInvalidRequest, err)
	}

	var holidayRules []string
	if cfg != nil {
		holidayRules = cfg.HolidayRRules()
	}

	allocReq, err := req.ToAllocatorRequest(holidayRules)
	if err != nil {
		recorder.RecordGeneration(metrics.ResultInvalid, 0, time.Since(started).Seconds())
		return nil, fmt.Errorf("%w: %w", allocator.ErrInvalidRequest, err)
	}

	logger.Debug("Resolved calendar",
		zap.Ints("holiday_days", allocReq.HolidayDays),
		zap.Ints("flap_days", allocReq.FlapDays),
		zap.Int("locked_residents", len(allocReq.LockedAssignments)))

	// Step 2: Resolve search options
	allocOpts := resolveOptions(cfg, req, opts)
	logger.Debug("Search options",
		zap.Int64("seed", allocOpts.Seed),
		zap.Int("max_attempts", allocOpts.MaxAttempts),
		zap.Int("workers", allocOpts.Workers))

	// Step 3: Run the allocator
	outcome, err := allocator.Allocate(ctx, allocReq, allocOpts)
	if err != nil {
		result := metrics.ResultError
		switch {
		case errors.Is(err, allocator.ErrInfeasible):
			result = metrics.ResultInfeasible
		case errors.Is(err, allocator.ErrInvalidRequest):
			result = metrics.ResultInvalid
		}
		recorder.RecordGeneration(result, 0, time.Since(started).Seconds())
		return nil, fmt.Errorf("failed to allocate schedule: %w", err)
	}

	recorder.RecordGeneration(metrics.ResultSuccess, outcome.Attempts, time.Since(started).Seconds())
	recorder.SetSingleDays(outcome.Calendar.SingleDays())
	for _, plan := range outcome.Calendar {
		for _, w := range plan.Warnings {
			recorder.RecordWarning(string(w))
		}
	}

	logger.Info("Schedule generated",
		zap.String("scenario", string(outcome.Plan.Scenario)),
		zap.Int("attempts", outcome.Attempts),
		zap.Int("single_days", outcome.Calendar.SingleDays()))

	for _, verr := range outcome.ValidationErrors {
		logger.Warn("Schedule validation error",
			zap.Int("day", verr.Day),
			zap.String("rule", verr.Rule),
			zap.String("description", verr.Description))
	}

	result := &GenerateScheduleResult{
		Request: allocReq,
		Outcome: outcome,
	}

	if opts.DryRun || store == nil {
		logger.Debug("Dry run - schedule not saved")
		return result, nil
	}

	// Step 4: Persist the schedule
	id := uuid.New().String()
	record := toScheduleRecord(id, allocReq, outcome, time.Now().UTC())

	logger.Debug("Saving schedule",
		zap.String("id", id),
		zap.Int("days", len(record.Days)),
		zap.Int("locks", len(record.Locks)))

	if err := store.InsertSchedule(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}

	result.ScheduleID = id
	result.Saved = true

	logger.Info("Schedule saved", zap.String("id", id))

	return result, nil
}

func resolveOptions(cfg *config.Config, req *model.ScheduleRequest, opts GenerateOptions) allocator.Options {
	out := allocator.Options{
		MaxAttempts: opts.MaxAttempts,
		Workers:     opts.Workers,
	}

	if cfg != nil {
		if out.MaxAttempts <= 0 {
			out.MaxAttempts = cfg.MaxAttempts
		}
		if out.Workers <= 0 {
			out.Workers = cfg.Workers
		}
	}

	switch {
	case opts.Seed != nil:
		out.Seed = *opts.Seed
	case req.Seed != nil:
		out.Seed = *req.Seed
	default:
		out.Seed = time.Now().UnixNano()
	}

	return out
}
