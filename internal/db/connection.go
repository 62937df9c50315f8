package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/saxenasajal03/ConnectX/pkg/config"
	_ "modernc.org/sqlite"
)

// Default configuration values for connection pooling.
const (
	defaultMaxOpenConns    = 5
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 2 * time.Minute
	defaultBusyTimeout     = 5 * time.Second
)

// OpenDB opens the relationship store selected by cfg.Driver, applies the
// pool settings and verifies the connection. A SQLite path of ":memory:"
// opens a single-connection in-memory database.
func OpenDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite, "":
		if cfg.Path == ":memory:" {
			return OpenInMemory()
		}
		db, err = sql.Open("sqlite", sqliteDSN(cfg.Path, cfg.BusyTimeout))
	case config.DriverPostgres:
		db, err = openPostgres(cfg.DSN)
	case config.DriverMySQL:
		db, err = openMySQL(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	configurePool(db, cfg)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// OpenSQLite opens a SQLite database file with the default pool settings.
func OpenSQLite(path string) (*sql.DB, error) {
	return OpenDB(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path})
}

// OpenInMemory opens an in-memory SQLite database. The pool is capped at a
// single connection because every new connection would see an empty database.
func OpenInMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", sqliteDSN(":memory:", defaultBusyTimeout))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// sqliteDSN sets pragmas through the DSN so that every pooled connection gets
// them. Transactions start IMMEDIATE, taking the write lock up front, so
// concurrent writers queue on busy_timeout instead of failing on upgrade.
func sqliteDSN(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	params := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeout.Milliseconds()),
		"_pragma=foreign_keys(1)",
		"_txlock=immediate",
	}
	if path != ":memory:" {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

func openPostgres(dsn string) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	return stdlib.OpenDB(*connCfg), nil
}

func openMySQL(dsn string) (*sql.DB, error) {
	mysqlCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	// Timestamps are stored as text; affected-row counts must reflect actual
	// changes for the insert-or-fetch path.
	mysqlCfg.ParseTime = false
	mysqlCfg.ClientFoundRows = false
	connector, err := mysql.NewConnector(mysqlCfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func configurePool(db *sql.DB, cfg config.DatabaseConfig) {
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}
	idleTime := cfg.ConnMaxIdleTime
	if idleTime <= 0 {
		idleTime = defaultConnMaxIdleTime
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(idleTime)
}
