package migrations

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	chstore "stakelens/internal/storage/clickhouse"
)

const clickhouseVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version String,
		name String,
		applied_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(applied_at)
	ORDER BY version
`

var databaseName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ApplyClickhouse creates the DSN's database if needed, runs every embedded
// ClickHouse migration not yet recorded in schema_migrations and returns a
// connection to that database. ClickHouse has no DDL transactions: a file
// that fails halfway is retried from its first statement on the next run,
// so statements must be idempotent.
func ApplyClickhouse(ctx context.Context, dsn string, log logrus.FieldLogger) (*chstore.Conn, []string, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "migrations").WithField("database", "clickhouse")

	all, err := load(clickhouseFS, "clickhouse")
	if err != nil {
		return nil, nil, err
	}
	for _, m := range all {
		if err := checkSplittable(m.SQL); err != nil {
			return nil, nil, fmt.Errorf("migration %s_%s: %w", m.Version, m.Name, err)
		}
	}

	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	done, err := applyClickhouse(ctx, conn, all, log)
	if err != nil {
		conn.Close()
		return nil, done, err
	}
	return conn, done, nil
}

func createDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn, all []Migration, log logrus.FieldLogger) ([]string, error) {
	if err := conn.Exec(ctx, clickhouseVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations FINAL`)
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
		for _, stmt := range splitStatements(m.SQL) {
			if err := conn.Exec(ctx, stmt); err != nil {
				return done, fmt.Errorf("apply migration %s_%s: %w", m.Version, m.Name, err)
			}
		}
		if err := conn.Exec(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			m.Version, m.Name,
		); err != nil {
			return done, fmt.Errorf("record migration %s: %w", m.Version, err)
		}
		log.WithField("version", m.Version).WithField("name", m.Name).Info("migration applied")
		done = append(done, m.Version)
	}
	return done, nil
}

// databaseFromDSN returns the database named by the DSN path. It must be a
// plain identifier since it is interpolated into CREATE DATABASE.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	if !databaseName.MatchString(db) {
		return "", fmt.Errorf("clickhouse database %q is not a plain identifier", db)
	}
	return db, nil
}
