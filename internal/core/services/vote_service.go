package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type voteService struct {
	store    ports.Store
	notifier *Notifier
	quorum   ports.QuorumEvaluator
	clock    Clock
}

func NewVoteService(store ports.Store, notifier *Notifier, quorum ports.QuorumEvaluator, clock Clock) ports.VoteService {
	return &voteService{
		store:    store,
		notifier: notifier,
		quorum:   quorum,
		clock:    clock,
	}
}

// CastVote validates and records a vote in one unit of work. The poll row is
// locked for the whole transaction, so votes on the same poll and lifecycle
// transitions of that poll are serialized.
func (s *voteService) CastVote(ctx context.Context, input ports.VoteInput) (*domain.Poll, error) {
	respondentID := strings.TrimSpace(input.RespondentID)
	if respondentID == "" {
		return nil, domain.ErrInvalidRespondent
	}

	var updated, closed *domain.Poll
	var expired bool
	err := runInTx(ctx, s.store, func(tx ports.Tx) error {
		updated, closed, expired = nil, nil, false
		now := s.clock.now()

		poll, err := tx.Polls().GetByID(ctx, input.PollID)
		if err != nil {
			return err
		}
		if !poll.IsActive() {
			return domain.ErrPollNotActive
		}
		if poll.Expired(now) {
			// The close must commit even though the vote is rejected.
			expired = true
			closed, err = closeInTx(ctx, tx, poll, now)
			return err
		}
		if _, ok := poll.Option(input.OptionID); !ok {
			return domain.ErrInvalidOption
		}

		voted, err := tx.Votes().HasVoted(ctx, poll.ID, respondentID)
		if err != nil {
			return err
		}
		if voted {
			return domain.ErrAlreadyVoted
		}

		vote := &domain.Vote{
			ID:           uuid.New(),
			PollID:       poll.ID,
			OptionID:     input.OptionID,
			RespondentID: respondentID,
			CreatedAt:    now,
		}
		if err := tx.Votes().SaveVote(ctx, vote); err != nil {
			return err
		}
		if err := tx.Polls().IncrementOption(ctx, poll.ID, input.OptionID); err != nil {
			return err
		}

		updated, err = tx.Polls().GetByID(ctx, poll.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if expired {
		if closed != nil {
			slog.Info("poll closed", "poll_id", closed.ID, "reason", "expired")
			s.notifier.PollClosed(ctx, closed)
		}
		return nil, domain.ErrPollExpired
	}

	s.notifier.PollUpdated(ctx, updated)

	if s.quorum != nil {
		if _, err := s.quorum.Evaluate(ctx, updated.ID); err != nil {
			slog.Warn("failed to evaluate quorum", "poll_id", updated.ID, "error", err)
		}
	}

	return updated, nil
}
