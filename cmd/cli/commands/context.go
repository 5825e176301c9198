package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/internal/config"
	"github.com/jakechorley/oncall-rota/pkg/db"
	"github.com/jakechorley/oncall-rota/pkg/metrics"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Database db.Database
	Recorder metrics.Recorder
	Logger   *zap.Logger
	Ctx      context.Context
}

// SkipDatabaseAnnotation marks commands that run without a database connection
const SkipDatabaseAnnotation = "skipDatabase"

func noDatabase() map[string]string {
	return map[string]string{SkipDatabaseAnnotation: "true"}
}
