// Package sqlite provides the embedded, single-node storage backend.
//
// The database runs in WAL mode behind a single connection, so every unit of
// work is serialized by the connection pool. That makes row locks and the
// lifecycle lock unnecessary; the unique indexes still back the invariants.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/sqlite/migrations"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/sqlstore"
)

const dbFile = "livepoll.db"

type Dialect struct{}

var _ sqlstore.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Rebind(query string) string { return query }

func (Dialect) ForUpdate() string { return "" }

func (Dialect) LockLifecycle(context.Context, *sql.Tx) error { return nil }

func (Dialect) Time(t time.Time) any { return sqlstore.FormatTime(t) }

func (Dialect) IsUniqueViolation(err error) bool {
	code, ok := errorCode(err)
	return ok && (code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func (Dialect) IsRetryable(err error) bool {
	code, ok := errorCode(err)
	if !ok {
		return false
	}
	primary := code & 0xff
	return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
}

func errorCode(err error) (int, bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0, false
	}
	return sqliteErr.Code(), true
}

// Open opens (creating if needed) the database under dataDir and applies
// pending migrations. An empty dataDir selects ~/.livepoll/data.
func Open(ctx context.Context, dataDir string) (*sqlstore.Store, error) {
	db, err := OpenDB(ctx, dataDir)
	if err != nil {
		return nil, err
	}

	if _, err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return sqlstore.New(db, Dialect{}), nil
}

// OpenDB opens the database file without touching the schema.
func OpenDB(ctx context.Context, dataDir string) (*sql.DB, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".livepoll", "data")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dsn := filepath.Join(dataDir, dbFile) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func Migrate(ctx context.Context, db *sql.DB) (int, error) {
	version, err := sqlstore.Migrate(ctx, db, Dialect{}, migrations.FS)
	if err != nil {
		return version, fmt.Errorf("running migrations: %w", err)
	}
	return version, nil
}

func MigrateDown(ctx context.Context, db *sql.DB) (int, error) {
	return sqlstore.MigrateDown(ctx, db, Dialect{}, migrations.FS)
}
