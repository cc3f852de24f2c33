package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const maxTxAttempts = 3

// Clock returns the current time. A nil Clock reads the wall clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// runInTx retries the whole unit of work when the store reports a conflict
// it detected after the fact. fn must reset any state it captures.
func runInTx(ctx context.Context, store ports.Store, fn func(tx ports.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = store.InTx(ctx, fn)
		if !errors.Is(err, domain.ErrConcurrentWriteConflict) {
			return err
		}
		slog.Warn("retrying transaction after write conflict", "attempt", attempt)
	}
	return err
}
