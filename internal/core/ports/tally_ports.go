package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type TallyService interface {
	// ReconcileAll recomputes option counters from persisted votes for every
	// poll, repairing drift when repair is true.
	ReconcileAll(ctx context.Context, repair bool) ([]domain.TallyReport, error)
}
