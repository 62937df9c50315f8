package db

import (
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// goose keeps its dialect, base FS and logger in package globals.
var gooseMu sync.Mutex

// RunMigrations applies all pending migrations for the dialect.
func RunMigrations(db *sql.DB, dialect Dialect, logger *zap.Logger) error {
	return withGoose(dialect, logger, func(dir string) error {
		if err := goose.Up(db, dir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

// Rollback rolls back the latest migration.
func Rollback(db *sql.DB, dialect Dialect, logger *zap.Logger) error {
	return withGoose(dialect, logger, func(dir string) error {
		if err := goose.Down(db, dir); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		return nil
	})
}

// Status logs the migration status.
func Status(db *sql.DB, dialect Dialect, logger *zap.Logger) error {
	return withGoose(dialect, logger, func(dir string) error {
		return goose.Status(db, dir)
	})
}

// Version returns the current schema version.
func Version(db *sql.DB, dialect Dialect, logger *zap.Logger) (int64, error) {
	var version int64
	err := withGoose(dialect, logger, func(string) error {
		v, err := goose.GetDBVersion(db)
		version = v
		return err
	})
	return version, err
}

func withGoose(dialect Dialect, logger *zap.Logger, fn func(dir string) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(zap.NewStdLog(logger.Named("migrations")))

	if err := goose.SetDialect(dialect.GooseDialect()); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	return fn(path.Join("migrations", string(dialect)))
}
