package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

// EventPublisher delivers events to an outbound transport. Delivery is fire
// and forget: a returned error is logged by the caller and never retried.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
