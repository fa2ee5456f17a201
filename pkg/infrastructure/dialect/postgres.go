package dialect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sqlgate/sqlgate/pkg/models"
)

// Postgres implements Dialect for PostgreSQL via lib/pq.
type Postgres struct{}

func (d *Postgres) Name() string       { return models.ServerTypePostgres }
func (d *Postgres) DriverName() string { return "postgres" }

func (d *Postgres) BuildDSN(info *models.ConnectionInfo) string {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		info.Host, info.Port, info.Database, info.Username, info.Password, info.SSLMode)
	if info.ReadOnly {
		// Startup option, so every pooled connection begins read-only.
		dsn += " options='-c default_transaction_read_only=on'"
	}
	return dsn
}

func (d *Postgres) DefaultSchema(_ *models.ConnectionInfo) string { return "public" }

func (d *Postgres) EnforceReadOnly(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY")
	return err
}

func (d *Postgres) ListTablesQuery(schema string) (string, []any) {
	return `SELECT table_name, table_schema, table_type
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name`, []any{schema}
}

func (d *Postgres) ListSchemasQuery() (string, []any) {
	return `SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY schema_name`, nil
}

func (d *Postgres) ColumnsQuery(schema, table string) (string, []any) {
	return `SELECT column_name, data_type, is_nullable, COALESCE(column_default, ''), ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, []any{schema, table}
}

func (d *Postgres) IndexesQuery(schema, table string) (string, []any) {
	return `SELECT i.relname, a.attname, ix.indisunique, ix.indisprimary
		FROM pg_class t
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_index ix ON ix.indrelid = t.oid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1 AND t.relname = $2
		ORDER BY i.relname, a.attnum`, []any{schema, table}
}

func (d *Postgres) PrimaryKeysQuery(schema, table string) (string, []any) {
	return `SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`, []any{schema, table}
}

func (d *Postgres) TableStatsQuery(schema, table string) (string, []any) {
	return `SELECT GREATEST(c.reltuples::bigint, 0), pg_total_relation_size(c.oid), pg_indexes_size(c.oid)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2`, []any{schema, table}
}

func (d *Postgres) DatabaseSizeQuery(database string) (string, []any) {
	return `SELECT pg_database_size($1)`, []any{database}
}

func (d *Postgres) ExplainQuery(query string, analyze bool) string {
	if analyze {
		return "EXPLAIN (ANALYZE, BUFFERS) " + query
	}
	return "EXPLAIN " + query
}
