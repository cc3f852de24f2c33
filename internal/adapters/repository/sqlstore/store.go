// Package sqlstore implements ports.Store on top of database/sql.
//
// Queries are written once with '?' placeholders; the Dialect rewrites them
// and supplies the pieces that differ between engines: row locking, the
// poll lifecycle lock, timestamp encoding and error classification.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type Dialect interface {
	Name() string
	// Rebind rewrites '?' placeholders into the engine's native form.
	Rebind(query string) string
	// ForUpdate is appended to reads that must lock the selected rows.
	ForUpdate() string
	// LockLifecycle serializes poll creation for the rest of tx.
	LockLifecycle(ctx context.Context, tx *sql.Tx) error
	// Time converts a timestamp into the value stored in the database.
	Time(t time.Time) any
	IsUniqueViolation(err error) bool
	// IsRetryable reports serialization failures, deadlocks and busy errors.
	IsRetryable(err error) bool
}

var _ ports.Store = (*Store)(nil)

type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
	}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx commits when fn returns nil and rolls back otherwise. Engine errors
// that only mean "try again" are reported as domain.ErrConcurrentWriteConflict.
func (s *Store) InTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.classify(fmt.Errorf("failed to begin transaction: %w", err))
	}

	if err := fn(&tx{tx: sqlTx, dialect: s.dialect}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("failed to roll back transaction", "error", rbErr)
		}
		return s.classify(err)
	}

	if err := sqlTx.Commit(); err != nil {
		return s.classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *Store) classify(err error) error {
	if s.dialect.IsRetryable(err) {
		return fmt.Errorf("%w: %v", domain.ErrConcurrentWriteConflict, err)
	}
	return err
}

type tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *tx) Polls() ports.PollRepository             { return &pollRepository{t} }
func (t *tx) Votes() ports.VoteRepository             { return &voteRepository{t} }
func (t *tx) Respondents() ports.RespondentRepository { return &respondentRepository{t} }

func (t *tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *tx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

// Rebind rewrites '?' placeholders into numbered '$n' ones. Question marks
// inside single-quoted literals are left alone.
func Rebind(query string) string {
	out := make([]byte, 0, len(query)+8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
		case c == '?' && !quoted:
			n++
			out = append(out, '$')
			out = strconv.AppendInt(out, int64(n), 10)
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
