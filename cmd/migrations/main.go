package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/livepoll/internal/config"
)

type migrator struct {
	db   *sql.DB
	up   func(context.Context, *sql.DB) (int, error)
	down func(context.Context, *sql.DB) (int, error)
}

func main() {
	if len(os.Args) < 2 || (os.Args[1] != "up" && os.Args[1] != "down") {
		fmt.Fprintln(os.Stderr, "usage: migrations up|down [-t postgres|sqlite] [-d url]")
		os.Exit(2)
	}
	direction := os.Args[1]

	cfg, err := config.Load(os.Args[2:])
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	m, err := open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer m.db.Close()

	run := m.up
	if direction == "down" {
		run = m.down
	}

	version, err := run(ctx, m.db)
	if err != nil {
		slog.Error("migration failed", "direction", direction, "error", err)
		os.Exit(1)
	}
	slog.Info("migrations executed successfully", "direction", direction, "version", version)
}

func open(ctx context.Context, cfg config.DatabaseConfig) (*migrator, error) {
	switch cfg.Type {
	case config.DatabasePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresURL(), false)
		if err != nil {
			return nil, err
		}
		return &migrator{db: store.DB(), up: postgres.Migrate, down: postgres.MigrateDown}, nil
	case config.DatabaseSQLite:
		db, err := sqlite.OpenDB(ctx, cfg.SQLiteDataDir)
		if err != nil {
			return nil, err
		}
		return &migrator{db: db, up: sqlite.Migrate, down: sqlite.MigrateDown}, nil
	default:
		return nil, fmt.Errorf("database type %q has no schema to migrate", cfg.Type)
	}
}
