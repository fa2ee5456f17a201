package dialect

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sqlgate/sqlgate/pkg/models"
)

// SQLite implements Dialect for SQLite via modernc.org/sqlite, the
// pure-Go driver. The Host field of a connection holds the database
// file path, or ":memory:" for an in-memory database.
type SQLite struct{}

func (d *SQLite) Name() string       { return models.ServerTypeSQLite }
func (d *SQLite) DriverName() string { return "sqlite" }

func (d *SQLite) BuildDSN(info *models.ConnectionInfo) string {
	dsn := info.Host
	if info.ReadOnly && dsn != ":memory:" && !strings.Contains(dsn, "mode=") {
		// The pragma rides in the DSN so every pooled connection
		// opens query-only, not just the first one.
		if strings.Contains(dsn, "?") {
			return dsn + "&mode=ro&_pragma=query_only(1)"
		}
		return dsn + "?mode=ro&_pragma=query_only(1)"
	}
	return dsn
}

func (d *SQLite) DefaultSchema(_ *models.ConnectionInfo) string { return "main" }

func (d *SQLite) EnforceReadOnly(ctx context.Context, db *sql.DB) error {
	// mode=ro in the DSN is the primary guard; the pragma covers
	// in-memory databases where mode=ro cannot apply.
	_, err := db.ExecContext(ctx, "PRAGMA query_only = ON")
	return err
}

func (d *SQLite) ListTablesQuery(_ string) (string, []any) {
	return `SELECT name, 'main', CASE type WHEN 'view' THEN 'VIEW' ELSE 'BASE TABLE' END
		FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`, nil
}

func (d *SQLite) ListSchemasQuery() (string, []any) {
	return `SELECT name FROM pragma_database_list ORDER BY name`, nil
}

func (d *SQLite) ColumnsQuery(_, table string) (string, []any) {
	return `SELECT name, type, CASE "notnull" WHEN 1 THEN 'NO' ELSE 'YES' END, COALESCE(dflt_value, ''), cid + 1
		FROM pragma_table_info(?)
		ORDER BY cid`, []any{table}
}

func (d *SQLite) IndexesQuery(_, table string) (string, []any) {
	return `SELECT il.name, ii.name, il."unique", il.origin = 'pk'
		FROM pragma_index_list(?) AS il
		JOIN pragma_index_info(il.name) AS ii
		ORDER BY il.name, ii.seqno`, []any{table}
}

func (d *SQLite) PrimaryKeysQuery(_, table string) (string, []any) {
	return `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`, []any{table}
}

// TableStatsQuery counts rows directly; SQLite keeps no per-table
// storage accounting, so byte columns report zero.
func (d *SQLite) TableStatsQuery(_, table string) (string, []any) {
	return `SELECT COUNT(*), 0, 0 FROM ` + quoteIdent(table), nil
}

func (d *SQLite) DatabaseSizeQuery(_ string) (string, []any) {
	return `SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`, nil
}

func (d *SQLite) ExplainQuery(query string, _ bool) string {
	return "EXPLAIN QUERY PLAN " + query
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
