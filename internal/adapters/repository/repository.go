// Package repository selects and opens the configured storage backend.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type Store interface {
	ports.Store
	Ping(ctx context.Context) error
	Close() error
}

func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Type {
	case config.DatabasePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresURL(), cfg.AutoMigrate)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, nil
	case config.DatabaseSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLiteDataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	case config.DatabaseMemory:
		slog.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}
