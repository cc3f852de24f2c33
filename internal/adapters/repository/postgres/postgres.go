package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres/migrations"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/sqlstore"
)

// lifecycleLockKey identifies the advisory lock held while a poll is created.
const lifecycleLockKey int64 = 0x6c697665706f6c6c

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

type Dialect struct{}

var _ sqlstore.Dialect = Dialect{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Rebind(query string) string { return sqlstore.Rebind(query) }

func (Dialect) ForUpdate() string { return " FOR UPDATE" }

func (Dialect) LockLifecycle(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lifecycleLockKey)
	return err
}

func (Dialect) Time(t time.Time) any { return t.UTC() }

func (Dialect) IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

func (Dialect) IsRetryable(err error) bool {
	return hasCode(err, codeSerializationFailure, codeDeadlockDetected)
}

func hasCode(err error, codes ...pq.ErrorCode) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	for _, code := range codes {
		if pqErr.Code == code {
			return true
		}
	}
	return false
}

// Open connects to PostgreSQL and optionally applies pending migrations.
func Open(ctx context.Context, connStr string, migrate bool) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if migrate {
		if _, err := Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return sqlstore.New(db, Dialect{}), nil
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
