package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const defaultTallyConcurrency = 4

type tallyService struct {
	store       ports.Store
	concurrency int
}

func NewTallyService(store ports.Store, concurrency int) ports.TallyService {
	if concurrency <= 0 {
		concurrency = defaultTallyConcurrency
	}
	return &tallyService{
		store:       store,
		concurrency: concurrency,
	}
}

func (s *tallyService) ReconcileAll(ctx context.Context, repair bool) ([]domain.TallyReport, error) {
	var ids []uuid.UUID
	err := s.store.InTx(ctx, func(tx ports.Tx) error {
		var err error
		ids, err = tx.Polls().ListIDs(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all polls: %w", err)
	}

	reports := make([]domain.TallyReport, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			report, err := s.reconcile(gctx, id, repair)
			if err != nil {
				return fmt.Errorf("failed to reconcile poll %s: %w", id, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

func (s *tallyService) reconcile(ctx context.Context, pollID uuid.UUID, repair bool) (domain.TallyReport, error) {
	var report domain.TallyReport
	err := runInTx(ctx, s.store, func(tx ports.Tx) error {
		report = domain.TallyReport{PollID: pollID}

		poll, err := tx.Polls().GetByID(ctx, pollID)
		if err != nil {
			return err
		}
		counted, err := tx.Votes().CountByOption(ctx, pollID)
		if err != nil {
			return err
		}

		for _, opt := range poll.Options {
			n := counted[opt.ID]
			report.TotalVotes += n
			if n == opt.VoteCount {
				continue
			}
			report.Drift = append(report.Drift, domain.OptionDrift{
				OptionID: opt.ID,
				Recorded: opt.VoteCount,
				Counted:  n,
			})
			if repair {
				if err := tx.Polls().SetOptionCount(ctx, pollID, opt.ID, n); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return domain.TallyReport{}, err
	}

	if !report.Consistent() {
		slog.Warn("tally drift detected", "poll_id", pollID, "options", len(report.Drift), "repaired", repair)
	}
	return report, nil
}
