package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type pollService struct {
	store    ports.Store
	notifier *Notifier
	clock    Clock
}

func NewPollService(store ports.Store, notifier *Notifier, clock Clock) ports.PollService {
	return &pollService{
		store:    store,
		notifier: notifier,
		clock:    clock,
	}
}

// Create retires the active poll, if any, and starts a new one in the same
// unit of work.
func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidPollInput)
	}
	if input.DurationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", domain.ErrInvalidPollInput)
	}
	options, err := buildOptions(input.Options)
	if err != nil {
		return nil, err
	}

	var created, retired *domain.Poll
	err = runInTx(ctx, s.store, func(tx ports.Tx) error {
		created, retired = nil, nil
		now := s.clock.now()

		if err := tx.Polls().LockLifecycle(ctx); err != nil {
			return err
		}
		prev, err := tx.Polls().GetActive(ctx)
		if err != nil {
			return err
		}
		if prev != nil {
			retired, err = closeInTx(ctx, tx, prev, now)
			if err != nil {
				return err
			}
		}

		poll := &domain.Poll{
			ID:        uuid.New(),
			Question:  question,
			Options:   append([]domain.PollOption(nil), options...),
			Duration:  input.DurationSeconds,
			Status:    domain.PollStatusActive,
			StartedAt: &now,
			CreatedAt: now,
		}
		if err := tx.Polls().Insert(ctx, poll); err != nil {
			return err
		}
		created = poll
		return nil
	})
	if err != nil {
		return nil, err
	}

	if retired != nil {
		slog.Info("poll closed", "poll_id", retired.ID, "reason", "replaced")
		s.notifier.PollClosed(ctx, retired)
	}
	slog.Info("poll started", "poll_id", created.ID, "duration", created.Duration)
	s.notifier.PollStarted(ctx, created)

	return created, nil
}

// GetActive applies lazy expiry before returning the active poll.
func (s *pollService) GetActive(ctx context.Context) (*domain.Poll, error) {
	var active, expired *domain.Poll
	err := runInTx(ctx, s.store, func(tx ports.Tx) error {
		active, expired = nil, nil
		poll, err := tx.Polls().GetActive(ctx)
		if err != nil || poll == nil {
			return err
		}

		now := s.clock.now()
		if !poll.Expired(now) {
			active = poll
			return nil
		}
		expired, err = closeInTx(ctx, tx, poll, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.expired(ctx, expired)
	if active == nil {
		return nil, domain.ErrNoActivePoll
	}
	return active, nil
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}

	var found, expired *domain.Poll
	err = runInTx(ctx, s.store, func(tx ports.Tx) error {
		found, expired = nil, nil
		poll, err := tx.Polls().GetByID(ctx, pollID)
		if err != nil {
			return err
		}

		now := s.clock.now()
		if poll.IsActive() && poll.Expired(now) {
			expired, err = closeInTx(ctx, tx, poll, now)
			if err != nil {
				return err
			}
			if expired != nil {
				poll = expired
			}
		}
		found = poll
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.expired(ctx, expired)
	return found, nil
}

// Close is idempotent: closing a poll that is no longer active reports
// success and changes nothing.
func (s *pollService) Close(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	var current, closed *domain.Poll
	err := runInTx(ctx, s.store, func(tx ports.Tx) error {
		current, closed = nil, nil
		poll, err := tx.Polls().GetByID(ctx, id)
		if err != nil {
			return err
		}
		current = poll
		if !poll.IsActive() {
			return nil
		}

		closed, err = closeInTx(ctx, tx, poll, s.clock.now())
		if err != nil {
			return err
		}
		if closed != nil {
			current = closed
			return nil
		}
		// Someone else closed it first; report what they stored.
		current, err = tx.Polls().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if closed != nil {
		slog.Info("poll closed", "poll_id", closed.ID, "reason", "manual")
		s.notifier.PollClosed(ctx, closed)
	}
	return current, nil
}

func (s *pollService) CloseActive(ctx context.Context) (*domain.Poll, error) {
	var closed *domain.Poll
	err := runInTx(ctx, s.store, func(tx ports.Tx) error {
		closed = nil
		poll, err := tx.Polls().GetActive(ctx)
		if err != nil {
			return err
		}
		if poll == nil {
			return domain.ErrNoActivePoll
		}
		closed, err = closeInTx(ctx, tx, poll, s.clock.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if closed == nil {
		return nil, domain.ErrNoActivePoll
	}

	slog.Info("poll closed", "poll_id", closed.ID, "reason", "manual")
	s.notifier.PollClosed(ctx, closed)
	return closed, nil
}

// History returns closed polls, most recent first. An active poll whose
// deadline has passed is closed first so it shows up here.
func (s *pollService) History(ctx context.Context) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	var expired *domain.Poll
	err := runInTx(ctx, s.store, func(tx ports.Tx) error {
		polls, expired = nil, nil
		active, err := tx.Polls().GetActive(ctx)
		if err != nil {
			return err
		}
		if now := s.clock.now(); active != nil && active.Expired(now) {
			if expired, err = closeInTx(ctx, tx, active, now); err != nil {
				return err
			}
		}

		polls, err = tx.Polls().ListClosed(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list poll history: %w", err)
	}

	s.expired(ctx, expired)
	return polls, nil
}

func (s *pollService) expired(ctx context.Context, poll *domain.Poll) {
	if poll == nil {
		return
	}
	slog.Info("poll closed", "poll_id", poll.ID, "reason", "expired")
	s.notifier.PollClosed(ctx, poll)
}

// closeInTx returns the closed poll when this transaction performed the
// transition and nil when someone else already had.
func closeInTx(ctx context.Context, tx ports.Tx, poll *domain.Poll, now time.Time) (*domain.Poll, error) {
	flipped, err := tx.Polls().Close(ctx, poll.ID, now)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, nil
	}

	closed := poll.Clone()
	closed.Status = domain.PollStatusClosed
	closed.ClosedAt = &now
	return closed, nil
}

// maxOptionIDLength matches the width of the option id columns.
const maxOptionIDLength = 64

func buildOptions(in []ports.CreatePollOption) ([]domain.PollOption, error) {
	taken := make(map[string]bool, len(in))
	for _, opt := range in {
		if strings.TrimSpace(opt.Text) == "" {
			continue
		}
		id := strings.TrimSpace(opt.ID)
		if len(id) > maxOptionIDLength {
			return nil, fmt.Errorf("%w: option id longer than %d bytes", domain.ErrInvalidPollInput, maxOptionIDLength)
		}
		if id == "" {
			continue
		}
		if taken[id] {
			return nil, fmt.Errorf("%w: duplicate option id %q", domain.ErrInvalidPollInput, id)
		}
		taken[id] = true
	}

	options := make([]domain.PollOption, 0, len(in))
	next := 1
	for _, opt := range in {
		text := strings.TrimSpace(opt.Text)
		if text == "" {
			continue
		}

		// Positional defaults skip ids claimed explicitly elsewhere.
		id := strings.TrimSpace(opt.ID)
		if id == "" {
			if next < len(options)+1 {
				next = len(options) + 1
			}
			for taken[strconv.Itoa(next)] {
				next++
			}
			id = strconv.Itoa(next)
			taken[id] = true
		}

		options = append(options, domain.PollOption{
			ID:        id,
			Text:      text,
			IsCorrect: opt.IsCorrect,
		})
	}

	if len(options) < 2 {
		return nil, fmt.Errorf("%w: at least two valid options are required", domain.ErrInvalidPollInput)
	}
	return options, nil
}
