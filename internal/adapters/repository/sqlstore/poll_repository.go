package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

const pollColumns = `id, question, duration_seconds, status, started_at, closed_at, created_at`

type pollRepository struct {
	t *tx
}

func (r *pollRepository) LockLifecycle(ctx context.Context) error {
	if err := r.t.dialect.LockLifecycle(ctx, r.t.tx); err != nil {
		return fmt.Errorf("failed to acquire poll lifecycle lock: %w", err)
	}
	return nil
}

func (r *pollRepository) Insert(ctx context.Context, poll *domain.Poll) error {
	queryPoll := `
		INSERT INTO polls (id, question, duration_seconds, status, started_at, closed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.t.exec(ctx, queryPoll,
		poll.ID, poll.Question, poll.Duration, string(poll.Status),
		r.t.nullTime(poll.StartedAt), r.t.nullTime(poll.ClosedAt), r.t.dialect.Time(poll.CreatedAt),
	)
	if err != nil {
		if r.t.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("%w: another poll is already active", domain.ErrConcurrentWriteConflict)
		}
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	queryOption := `
		INSERT INTO poll_options (poll_id, id, position, text, is_correct, vote_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	stmt, err := r.t.tx.PrepareContext(ctx, r.t.dialect.Rebind(queryOption))
	if err != nil {
		return fmt.Errorf("failed to prepare option statement: %w", err)
	}
	defer stmt.Close()

	for i, opt := range poll.Options {
		if _, err := stmt.ExecContext(ctx, poll.ID, opt.ID, i, opt.Text, opt.IsCorrect, opt.VoteCount); err != nil {
			return fmt.Errorf("failed to insert option: %w", err)
		}
	}
	return nil
}

// GetByID locks the poll row until the transaction ends.
func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE id = ?` + r.t.dialect.ForUpdate()

	poll, err := scanPoll(r.t.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	if poll.Options, err = r.fetchOptions(ctx, poll.ID); err != nil {
		return nil, err
	}
	return poll, nil
}

func (r *pollRepository) GetActive(ctx context.Context) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE status = ?`

	poll, err := scanPoll(r.t.queryRow(ctx, query, string(domain.PollStatusActive)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active poll: %w", err)
	}

	if poll.Options, err = r.fetchOptions(ctx, poll.ID); err != nil {
		return nil, err
	}
	return poll, nil
}

// Close flips an active poll to closed. It reports false when the poll
// exists but was no longer active.
func (r *pollRepository) Close(ctx context.Context, id uuid.UUID, closedAt time.Time) (bool, error) {
	query := `UPDATE polls SET status = ?, closed_at = ? WHERE id = ? AND status = ?`

	res, err := r.t.exec(ctx, query,
		string(domain.PollStatusClosed), r.t.dialect.Time(closedAt), id, string(domain.PollStatusActive),
	)
	if err != nil {
		return false, fmt.Errorf("failed to close poll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to close poll: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	var exists int
	err = r.t.queryRow(ctx, `SELECT 1 FROM polls WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrPollNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to close poll: %w", err)
	}
	return false, nil
}

func (r *pollRepository) IncrementOption(ctx context.Context, pollID uuid.UUID, optionID string) error {
	query := `UPDATE poll_options SET vote_count = vote_count + 1 WHERE poll_id = ? AND id = ?`
	return r.updateOption(ctx, query, pollID, optionID)
}

func (r *pollRepository) SetOptionCount(ctx context.Context, pollID uuid.UUID, optionID string, count int64) error {
	query := `UPDATE poll_options SET vote_count = ? WHERE poll_id = ? AND id = ?`
	return r.updateOption(ctx, query, count, pollID, optionID)
}

func (r *pollRepository) updateOption(ctx context.Context, query string, args ...any) error {
	res, err := r.t.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update option: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update option: %w", err)
	}
	if n == 0 {
		return domain.ErrInvalidOption
	}
	return nil
}

func (r *pollRepository) ListClosed(ctx context.Context) ([]*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE status = ? ORDER BY created_at DESC, id`

	rows, err := r.t.query(ctx, query, string(domain.PollStatusClosed))
	if err != nil {
		return nil, fmt.Errorf("failed to list closed polls: %w", err)
	}
	defer rows.Close()

	var polls []*domain.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate polls: %w", err)
	}
	rows.Close()

	for _, poll := range polls {
		if poll.Options, err = r.fetchOptions(ctx, poll.ID); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

func (r *pollRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.t.query(ctx, `SELECT id FROM polls ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list poll ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan poll id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pollRepository) fetchOptions(ctx context.Context, pollID uuid.UUID) ([]domain.PollOption, error) {
	query := `
		SELECT id, text, is_correct, vote_count
		FROM poll_options
		WHERE poll_id = ?
		ORDER BY position
	`
	rows, err := r.t.query(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch options: %w", err)
	}
	defer rows.Close()

	var options []domain.PollOption
	for rows.Next() {
		var opt domain.PollOption
		if err := rows.Scan(&opt.ID, &opt.Text, &opt.IsCorrect, &opt.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate options: %w", err)
	}
	return options, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (*domain.Poll, error) {
	var (
		poll   domain.Poll
		status string
	)
	err := row.Scan(
		&poll.ID, &poll.Question, &poll.Duration, &status,
		nullableTime{&poll.StartedAt}, nullableTime{&poll.ClosedAt}, scanTime(&poll.CreatedAt),
	)
	if err != nil {
		return nil, err
	}
	poll.Status = domain.PollStatus(status)
	return &poll, nil
}
