package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
`

type migration struct {
	version int
	name    string
}

// Migrate applies every pending NNN_name.up.sql file in fsys, in version
// order, each in its own transaction. It returns the resulting version.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, fsys fs.FS) (int, error) {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	ups, err := listMigrations(fsys, ".up.sql")
	if err != nil {
		return 0, err
	}

	for _, m := range ups {
		if m.version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, m.name)
		if err != nil {
			return current, fmt.Errorf("reading migration %s: %w", m.name, err)
		}

		err = applyMigration(ctx, db, string(content), func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, dialect.Rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), m.version)
			return err
		})
		if err != nil {
			return current, fmt.Errorf("executing migration %s: %w", m.name, err)
		}

		slog.Info("migration applied", "dialect", dialect.Name(), "version", m.version, "file", m.name)
		current = m.version
	}
	return current, nil
}

// MigrateDown reverts the most recently applied migration. It returns the
// version left in place, or 0 when nothing was applied.
func MigrateDown(ctx context.Context, db *sql.DB, dialect Dialect, fsys fs.FS) (int, error) {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return 0, err
	}
	if current == 0 {
		return 0, nil
	}

	downs, err := listMigrations(fsys, ".down.sql")
	if err != nil {
		return current, err
	}

	var down *migration
	for i := range downs {
		if downs[i].version == current {
			down = &downs[i]
		}
	}
	if down == nil {
		return current, fmt.Errorf("no down migration for version %d", current)
	}

	content, err := fs.ReadFile(fsys, down.name)
	if err != nil {
		return current, fmt.Errorf("reading migration %s: %w", down.name, err)
	}
	err = applyMigration(ctx, db, string(content), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, dialect.Rebind(`DELETE FROM schema_migrations WHERE version = ?`), current)
		return err
	})
	if err != nil {
		return current, fmt.Errorf("executing migration %s: %w", down.name, err)
	}

	slog.Info("migration reverted", "dialect", dialect.Name(), "version", current, "file", down.name)
	return currentVersion(ctx, db)
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var version int
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("getting current version: %w", err)
	}
	return version, nil
}

func listMigrations(fsys fs.FS, suffix string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		migrations = append(migrations, migration{version: version, name: name})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}

func applyMigration(ctx context.Context, db *sql.DB, content string, record func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, content); err != nil {
		return err
	}
	if err := record(tx); err != nil {
		return err
	}
	return tx.Commit()
}
