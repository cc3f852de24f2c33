package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

// quorumService closes a poll once every registered respondent has voted.
// The roster size it reads may already be stale; that only delays or
// advances an idempotent close.
type quorumService struct {
	store ports.Store
	polls ports.PollCloser
}

func NewQuorumService(store ports.Store, polls ports.PollCloser) ports.QuorumEvaluator {
	return &quorumService{
		store: store,
		polls: polls,
	}
}

func (s *quorumService) Evaluate(ctx context.Context, pollID uuid.UUID) (bool, error) {
	var votes, roster int64
	err := s.store.InTx(ctx, func(tx ports.Tx) error {
		var err error
		if votes, err = tx.Votes().CountByPoll(ctx, pollID); err != nil {
			return err
		}
		roster, err = tx.Respondents().Count(ctx)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to read quorum counts: %w", err)
	}

	if roster == 0 || votes < roster {
		return false, nil
	}

	slog.Info("quorum reached", "poll_id", pollID, "votes", votes, "roster", roster)
	if _, err := s.polls.Close(ctx, pollID); err != nil {
		return false, fmt.Errorf("failed to close poll: %w", err)
	}
	return true, nil
}
