package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-rota/pkg/db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	applicationName = "oncall-rota"
	migrationsDir   = "migrations"
	migrationsTable = "schema_migrations"
)

// DB stores schedules in PostgreSQL
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ db.Database = (*DB)(nil)

// NewDB connects to PostgreSQL and checks the connection. Sessions are tagged with the
// application name so scheduler queries can be told apart in pg_stat_activity.
func NewDB(ctx context.Context, connString string, logger *zap.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if _, set := poolConfig.ConnConfig.RuntimeParams["application_name"]; !set {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Debug("Database pool ready",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.Int32("max_conns", poolConfig.MaxConns))

	return &DB{pool: pool, logger: logger}, nil
}

// Ping checks the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations applies the embedded schedule schema files that have not run yet, each in its
// own transaction, and returns the applied filenames in order.
func (db *DB) RunMigrations(ctx context.Context) ([]string, error) {
	if _, err := db.pool.Exec(ctx, createMigrationsTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create %s table: %w", migrationsTable, err)
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	db.logger.Debug("Loaded migration history", zap.Int("applied", len(applied)))

	pending, err := pendingMigrations(migrationsFS, applied)
	if err != nil {
		return nil, err
	}

	done := make([]string, 0, len(pending))
	for _, filename := range pending {
		if err := db.applyMigration(ctx, filename); err != nil {
			return done, err
		}
		db.logger.Info("Applied migration", zap.String("file", filename))
		done = append(done, filename)
	}

	return done, nil
}

const createMigrationsTableSQL = `
	CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (
		filename TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

func selectMigrationsQuery() sq.SelectBuilder {
	return psql.Select("filename").From(migrationsTable)
}

func insertMigrationQuery(filename string) sq.InsertBuilder {
	return psql.Insert(migrationsTable).Columns("filename").Values(filename)
}

func (db *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	query, args, err := selectMigrationsQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build migrations query: %w", err)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	filenames, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration filenames: %w", err)
	}

	applied := make(map[string]bool, len(filenames))
	for _, f := range filenames {
		applied[f] = true
	}
	return applied, nil
}

func (db *DB) applyMigration(ctx context.Context, filename string) error {
	content, err := fs.ReadFile(migrationsFS, path.Join(migrationsDir, filename))
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", filename, err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", filename, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", filename, err)
	}
	if err := execBuilder(ctx, tx, insertMigrationQuery(filename)); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", filename, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", filename, err)
	}
	return nil
}

// pendingMigrations lists the .sql files under migrations/ not yet applied, in filename order
func pendingMigrations(fsys fs.FS, applied map[string]bool) ([]string, error) {
	files, err := fs.Glob(fsys, path.Join(migrationsDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	var pending []string
	for _, file := range files {
		name := path.Base(file)
		if !applied[name] {
			pending = append(pending, name)
		}
	}
	slices.Sort(pending)
	return pending, nil
}
