package database

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver, registered as "pgx"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

const dropTables = `
DROP TABLE IF EXISTS rsvps;
DROP TABLE IF EXISTS games;
DROP TABLE IF EXISTS users;
`

// InitDB opens a connection for the given driver, applies connection settings
// and makes sure the schema exists. For SQLite, dataSourceName is a file path
// or ":memory:".
func InitDB(driver, dataSourceName string) (*sqlx.DB, error) {
	dsn := dataSourceName
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dataSourceName)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite only supports one writer at a time. A single connection also
		// keeps an in-memory database alive for the lifetime of the pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	if err = loadSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// sqliteDSN turns a path into a DSN whose transactions start with BEGIN IMMEDIATE,
// so a read-then-write unit holds the write lock from its first statement.
func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	if path == ":memory:" {
		return "file::memory:?_txlock=immediate"
	}
	return "file:" + path + "?_txlock=immediate"
}

func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func schemaFor(driver string) string {
	if driver == DriverPostgres {
		return postgresSchema
	}
	return sqliteSchema
}

// loadSchema creates the tables if they don't exist. Statements are executed
// one by one so that both drivers accept them.
func loadSchema(ctx context.Context, db *sqlx.DB) error {
	if err := execScript(ctx, db, schemaFor(db.DriverName())); err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	return nil
}

// Reset drops every table and recreates the schema.
func Reset(ctx context.Context, db *sqlx.DB) error {
	if err := execScript(ctx, db, dropTables); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return loadSchema(ctx, db)
}

func execScript(ctx context.Context, db *sqlx.DB, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// forUpdate returns the row-locking suffix for SELECTs inside a transaction.
// SQLite has no row locks; its IMMEDIATE transactions already serialize writers.
func forUpdate(q sqlx.ExtContext) string {
	if q.DriverName() == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// Timestamp normalizes t to the precision and zone every row is stored with.
// Keeping one representation makes SQLite's textual time comparisons correct.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
