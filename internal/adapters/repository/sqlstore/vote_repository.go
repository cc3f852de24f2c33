package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type voteRepository struct {
	t *tx
}

func (r *voteRepository) SaveVote(ctx context.Context, vote *domain.Vote) error {
	query := `
		INSERT INTO votes (id, poll_id, option_id, respondent_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.t.exec(ctx, query, vote.ID, vote.PollID, vote.OptionID, vote.RespondentID, r.t.dialect.Time(vote.CreatedAt))
	if err != nil {
		if r.t.dialect.IsUniqueViolation(err) {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

func (r *voteRepository) HasVoted(ctx context.Context, pollID uuid.UUID, respondentID string) (bool, error) {
	query := `SELECT COUNT(*) FROM votes WHERE poll_id = ? AND respondent_id = ?`

	var n int64
	if err := r.t.queryRow(ctx, query, pollID, respondentID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return n > 0, nil
}

func (r *voteRepository) CountByPoll(ctx context.Context, pollID uuid.UUID) (int64, error) {
	var n int64
	if err := r.t.queryRow(ctx, `SELECT COUNT(*) FROM votes WHERE poll_id = ?`, pollID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

func (r *voteRepository) CountByOption(ctx context.Context, pollID uuid.UUID) (map[string]int64, error) {
	query := `
		SELECT option_id, COUNT(*)
		FROM votes
		WHERE poll_id = ?
		GROUP BY option_id
	`
	rows, err := r.t.query(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes by option: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			optionID string
			n        int64
		)
		if err := rows.Scan(&optionID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts[optionID] = n
	}
	return counts, rows.Err()
}
