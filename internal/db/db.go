package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

//go:embed migrations
var migrationsFS embed.FS

// DBTX is satisfied by both *sql.DB and *sql.Tx so stores can run inside or
// outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the configured database and applies pending migrations.
// For sqlite, source is a file path; for mysql it is a DSN.
func Open(driver, source string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, "":
		return openSQLite(sqliteDSN(source))
	case DriverMySQL:
		return openMySQL(source)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// OpenForTesting returns a private in-memory sqlite database with all
// migrations applied.
func OpenForTesting() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_txlock=immediate&_time_format=sqlite", uuid.NewString())
	return openSQLite(dsn)
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate&_time_format=sqlite", path)
}

func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer connection serializes transactions; sqlite rejects
	// concurrent writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	// The migrate instance is not closed: closing it would close db.
	if _, err := migrateUp(DriverSQLite, drv); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("failed to run migrations: %w (also failed to close db: %v)", err, cerr)
		}
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func openMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// Conditional updates compare matched rows, not changed rows.
	cfg.ClientFoundRows = true

	// Migrations run on their own handle so closing the migrate instance
	// releases the connection it pins.
	migrateCfg := cfg.Clone()
	migrateCfg.MultiStatements = true
	mdb, err := sql.Open("mysql", migrateCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	drv, err := migratemysql.WithInstance(mdb, &migratemysql.Config{})
	if err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	m, err := migrateUp(DriverMySQL, drv)
	if m != nil {
		if serr, derr := m.Close(); serr != nil || derr != nil {
			return nil, fmt.Errorf("failed to close migrator: %v", errors.Join(serr, derr))
		}
	} else {
		_ = mdb.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func migrateUp(driver string, drv database.Driver) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, drv)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return m, err
	}
	return m, nil
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. Begin and commit failures are persistence errors;
// errors from fn are returned unchanged.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Persistence("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (also failed to roll back: %v)", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.Persistence("commit transaction", err)
	}
	return nil
}

// IsConstraintViolation reports whether err was raised by a UNIQUE, FOREIGN
// KEY, CHECK or NOT NULL constraint of either supported driver.
func IsConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// Extended result codes keep the primary code in the low byte.
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1048, 1062, 1451, 1452, 3819:
			return true
		}
	}
	return false
}
