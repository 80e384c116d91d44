// Package migrations applies the embedded schema of the Postgres and
// ClickHouse stores. Applied versions are recorded in schema_migrations on
// each database, so a run only executes files it has not seen.
package migrations

import "embed"

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS
