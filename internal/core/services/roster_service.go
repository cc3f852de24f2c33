package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type rosterService struct {
	store    ports.Store
	notifier *Notifier
	clock    Clock
}

func NewRosterService(store ports.Store, notifier *Notifier, clock Clock) ports.RosterService {
	return &rosterService{
		store:    store,
		notifier: notifier,
		clock:    clock,
	}
}

// Register creates the respondent or refreshes its name and join time.
func (s *rosterService) Register(ctx context.Context, input ports.RegisterRespondentInput) (*domain.Respondent, error) {
	id := strings.TrimSpace(input.ID)
	name := strings.TrimSpace(input.Name)
	if id == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidRespondent)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidRespondent)
	}

	respondent := &domain.Respondent{
		ID:       id,
		Name:     name,
		JoinedAt: s.clock.now(),
	}
	err := s.store.InTx(ctx, func(tx ports.Tx) error {
		return tx.Respondents().Upsert(ctx, respondent)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register respondent: %w", err)
	}

	slog.Info("respondent joined", "respondent_id", respondent.ID)
	s.notifier.RespondentJoined(ctx, respondent)
	return respondent, nil
}

// Remove deletes the respondent. Votes already cast stay counted.
func (s *rosterService) Remove(ctx context.Context, id string) error {
	var removed bool
	err := s.store.InTx(ctx, func(tx ports.Tx) error {
		var err error
		removed, err = tx.Respondents().Delete(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to remove respondent: %w", err)
	}

	if removed {
		slog.Info("respondent left", "respondent_id", id)
		s.notifier.RespondentLeft(ctx, id)
	}
	return nil
}

func (s *rosterService) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.store.InTx(ctx, func(tx ports.Tx) error {
		var err error
		count, err = tx.Respondents().Count(ctx)
		return err
	})
	return count, err
}

func (s *rosterService) List(ctx context.Context) ([]*domain.Respondent, error) {
	var respondents []*domain.Respondent
	err := s.store.InTx(ctx, func(tx ports.Tx) error {
		var err error
		respondents, err = tx.Respondents().List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list respondents: %w", err)
	}
	return respondents, nil
}
