package migrations

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"stakelens/internal/storage/postgres"
)

const postgresVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// ApplyPostgres runs every embedded Postgres migration not yet recorded in
// schema_migrations. Each file and its version row commit in one
// transaction. It returns the versions applied by this call.
func ApplyPostgres(ctx context.Context, pool *postgres.Pool, log logrus.FieldLogger) ([]string, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "migrations").WithField("database", "postgres")

	all, err := load(postgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, postgresVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}

	var done []string
	for _, m := range pending(all, applied) {
		if err := applyPostgres(ctx, pool, m); err != nil {
			return done, err
		}
		log.WithField("version", m.Version).WithField("name", m.Name).Info("migration applied")
		done = append(done, m.Version)
	}
	return done, nil
}

func applyPostgres(ctx context.Context, pool *postgres.Pool, m Migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("apply migration %s_%s: %w", m.Version, m.Name, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return nil
}
