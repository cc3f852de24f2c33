package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

// PollRepository is scoped to a single transaction.
type PollRepository interface {
	// LockLifecycle serializes transitions of the active slot (create, close
	// of the active poll) for the rest of the transaction.
	LockLifecycle(ctx context.Context) error
	Insert(ctx context.Context, poll *domain.Poll) error
	// GetByID locks the poll row until the transaction ends.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	// GetActive returns nil, nil when no poll is active.
	GetActive(ctx context.Context) (*domain.Poll, error)
	// Close flips an active poll to closed and reports whether this call
	// performed the transition.
	Close(ctx context.Context, id uuid.UUID, closedAt time.Time) (bool, error)
	IncrementOption(ctx context.Context, pollID uuid.UUID, optionID string) error
	SetOptionCount(ctx context.Context, pollID uuid.UUID, optionID string, count int64) error
	ListClosed(ctx context.Context) ([]*domain.Poll, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type CreatePollOption struct {
	ID        string
	Text      string
	IsCorrect bool
}

type CreatePollInput struct {
	Question        string
	Options         []CreatePollOption
	DurationSeconds int
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetActive(ctx context.Context) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string) (*domain.Poll, error)
	Close(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	CloseActive(ctx context.Context) (*domain.Poll, error)
	History(ctx context.Context) ([]*domain.Poll, error)
}

// PollCloser is the part of the lifecycle the quorum evaluator depends on.
type PollCloser interface {
	Close(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
}
