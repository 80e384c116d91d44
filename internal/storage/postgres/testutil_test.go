package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stakelens/internal/storage/migrations"
	pgstore "stakelens/internal/storage/postgres"
)

// setupTestDB starts a PostgreSQL container and applies the embedded
// schema through the migration runner. The returned cleanup must be called
// after the test.
func setupTestDB(t *testing.T) (*pgstore.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("stakelens"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := pgstore.NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	applied, err := migrations.ApplyPostgres(ctx, pool, log)
	require.NoError(t, err, "failed to apply migrations")
	require.NotEmpty(t, applied)

	// A second run finds nothing to do
	again, err := migrations.ApplyPostgres(ctx, pool, log)
	require.NoError(t, err)
	require.Empty(t, again)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

func ptr[T any](v T) *T {
	return &v
}
