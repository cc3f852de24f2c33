package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/storetest"
)

func setupPostgresContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	store, err := Open(ctx, setupPostgresContainer(t), true)
	require.NoError(t, err)
	defer store.Close()

	storetest.Run(t, store)

	version, err := Migrate(ctx, store.DB())
	require.NoError(t, err)
	assert.Equal(t, 1, version, "migrations are applied once")
}

func TestMigrateDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	store, err := Open(ctx, setupPostgresContainer(t), true)
	require.NoError(t, err)
	defer store.Close()

	version, err := MigrateDown(ctx, store.DB())
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	var exists bool
	require.NoError(t, store.DB().QueryRow(`SELECT to_regclass('public.polls') IS NOT NULL`).Scan(&exists))
	assert.False(t, exists)
}

func TestDialect(t *testing.T) {
	d := Dialect{}
	assert.Equal(t, "SELECT * FROM polls WHERE id = $1 AND status = $2", d.Rebind("SELECT * FROM polls WHERE id = ? AND status = ?"))
	assert.False(t, d.IsUniqueViolation(assert.AnError))
	assert.False(t, d.IsRetryable(nil))

	unique := fmt.Errorf("insert: %w", &pq.Error{Code: codeUniqueViolation})
	assert.True(t, d.IsUniqueViolation(unique))
	assert.False(t, d.IsRetryable(unique))
	assert.True(t, d.IsRetryable(&pq.Error{Code: codeDeadlockDetected}))
}
