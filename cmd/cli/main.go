package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/cmd/cli/commands"
	"github.com/jakechorley/oncall-rota/internal/config"
	"github.com/jakechorley/oncall-rota/pkg/metrics"
	"github.com/jakechorley/oncall-rota/pkg/postgres"
	"github.com/jakechorley/oncall-rota/pkg/utils/logging"
)

var app = &commands.AppContext{}

func main() {
	rootCmd := &cobra.Command{
		Use:   "oncall",
		Short: "On-call rota CLI - Generate monthly resident on-call schedules",
		Long: `A CLI tool for generating monthly on-call schedules for a rank-tiered resident roster,
reviewing saved schedules, making manual edits and serving the scheduling API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&app.Env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(commands.GenerateScheduleCmd(app))
	rootCmd.AddCommand(commands.ListSchedulesCmd(app))
	rootCmd.AddCommand(commands.ViewScheduleCmd(app))
	rootCmd.AddCommand(commands.EditDayCmd(app))
	rootCmd.AddCommand(commands.RecomputeStatsCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd())

	if err := rootCmd.Execute(); err != nil {
		closeApp()
		os.Exit(1)
	}
}

// initApp sets up logger, config, metrics and database
func initApp(cmd *cobra.Command) error {
	var err error
	app.Ctx = context.Background()

	// Load configuration first so the log directory is known
	app.Cfg, err = config.LoadWithEnv(app.Env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	app.Logger, err = logging.InitLogger(app.Env, app.Cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", app.Env))
	app.Logger.Debug("Configuration loaded successfully",
		zap.Int("max_attempts", app.Cfg.MaxAttempts),
		zap.Int("workers", app.Cfg.Workers),
		zap.Int("holiday_rules", len(app.Cfg.HolidayRules)))

	app.Recorder = metrics.NewPrometheus(nil, "")

	if !needsDatabase(cmd) {
		app.Logger.Debug("Skipping database connection", zap.String("command", cmd.Name()))
		return nil
	}

	// Connect to database
	app.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Database = database
	app.Logger.Info("Database connected successfully")

	return nil
}

// needsDatabase is false for annotated commands and dry runs
func needsDatabase(cmd *cobra.Command) bool {
	if cmd.Annotations[commands.SkipDatabaseAnnotation] == "true" {
		return false
	}
	if flag := cmd.Flags().Lookup("dry-run"); flag != nil && flag.Value.String() == "true" {
		return false
	}
	return true
}

func closeApp() {
	if app.Database != nil {
		app.Database.Close()
		app.Database = nil
	}
	if app.Logger != nil {
		_ = app.Logger.Sync()
	}
}
