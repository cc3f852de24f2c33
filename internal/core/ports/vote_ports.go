package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type VoteRepository interface {
	// SaveVote returns domain.ErrAlreadyVoted when the (poll, respondent)
	// pair already exists.
	SaveVote(ctx context.Context, vote *domain.Vote) error
	HasVoted(ctx context.Context, pollID uuid.UUID, respondentID string) (bool, error)
	CountByPoll(ctx context.Context, pollID uuid.UUID) (int64, error)
	CountByOption(ctx context.Context, pollID uuid.UUID) (map[string]int64, error)
}

type VoteInput struct {
	PollID       uuid.UUID
	OptionID     string
	RespondentID string
}

type VoteService interface {
	// CastVote returns the poll with fresh counts on success.
	CastVote(ctx context.Context, input VoteInput) (*domain.Poll, error)
}

type QuorumEvaluator interface {
	// Evaluate closes the poll when every registered respondent has voted and
	// reports whether it did so.
	Evaluate(ctx context.Context, pollID uuid.UUID) (bool, error)
}
