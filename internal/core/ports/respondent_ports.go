package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type RespondentRepository interface {
	Upsert(ctx context.Context, respondent *domain.Respondent) error
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]*domain.Respondent, error)
}

type RegisterRespondentInput struct {
	ID   string
	Name string
}

type RosterService interface {
	Register(ctx context.Context, input RegisterRespondentInput) (*domain.Respondent, error)
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]*domain.Respondent, error)
}
