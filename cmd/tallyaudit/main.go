package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("tally audit failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("tallyaudit", flag.ContinueOnError)
	repair := fs.Bool("repair", false, "Rewrite drifted option counters from the vote ledger")
	workers := fs.Int("workers", 4, "Number of polls audited concurrently")
	timeout := fs.Duration("timeout", 5*time.Minute, "Maximum run time")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(fs.Args())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	slog.Info("starting tally audit", "repair", *repair)

	reports, err := services.NewTallyService(store, *workers).ReconcileAll(ctx, *repair)
	if err != nil {
		return err
	}

	var drifted int
	for _, report := range reports {
		if report.Consistent() {
			continue
		}
		drifted++
		slog.Warn("tally drift", "poll_id", report.PollID, "total_votes", report.TotalVotes, "drift", report.Drift)
	}
	slog.Info("tally audit completed", "polls", len(reports), "drifted", drifted, "repaired", *repair && drifted > 0)
	return nil
}
