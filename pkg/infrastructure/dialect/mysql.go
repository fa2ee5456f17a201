package dialect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sqlgate/sqlgate/pkg/models"
)

// MySQL implements Dialect for MySQL via go-sql-driver/mysql.
type MySQL struct{}

func (d *MySQL) Name() string       { return models.ServerTypeMySQL }
func (d *MySQL) DriverName() string { return "mysql" }

func (d *MySQL) BuildDSN(info *models.ConnectionInfo) string {
	// parseTime makes DATE/DATETIME columns scan as time.Time.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		info.Username, info.Password, info.Host, info.Port, info.Database)
	if info.SSLMode != "" && info.SSLMode != "disable" {
		dsn += "&tls=true"
	}
	if info.ReadOnly {
		// The driver applies unknown parameters as session system
		// variables on each new connection, so the whole pool is
		// read-only, not just one session.
		dsn += "&transaction_read_only=1"
	}
	return dsn
}

// DefaultSchema is the database itself; MySQL treats schema and
// database as the same namespace.
func (d *MySQL) DefaultSchema(info *models.ConnectionInfo) string { return info.Database }

func (d *MySQL) EnforceReadOnly(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY")
	return err
}

func (d *MySQL) ListTablesQuery(schema string) (string, []any) {
	return `SELECT table_name, table_schema, table_type
		FROM information_schema.tables
		WHERE table_schema = ?
		ORDER BY table_name`, []any{schema}
}

func (d *MySQL) ListSchemasQuery() (string, []any) {
	return `SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
		ORDER BY schema_name`, nil
}

func (d *MySQL) ColumnsQuery(schema, table string) (string, []any) {
	return `SELECT column_name, data_type, is_nullable, COALESCE(column_default, ''), ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, []any{schema, table}
}

func (d *MySQL) IndexesQuery(schema, table string) (string, []any) {
	return `SELECT index_name, column_name, non_unique = 0, index_name = 'PRIMARY'
		FROM information_schema.statistics
		WHERE table_schema = ? AND table_name = ?
		ORDER BY index_name, seq_in_index`, []any{schema, table}
}

func (d *MySQL) PrimaryKeysQuery(schema, table string) (string, []any) {
	return `SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND table_name = ? AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`, []any{schema, table}
}

func (d *MySQL) TableStatsQuery(schema, table string) (string, []any) {
	return `SELECT COALESCE(table_rows, 0), COALESCE(data_length + index_length, 0), COALESCE(index_length, 0)
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?`, []any{schema, table}
}

func (d *MySQL) DatabaseSizeQuery(database string) (string, []any) {
	return `SELECT COALESCE(SUM(data_length + index_length), 0)
		FROM information_schema.tables
		WHERE table_schema = ?`, []any{database}
}

func (d *MySQL) ExplainQuery(query string, analyze bool) string {
	if analyze {
		return "EXPLAIN ANALYZE " + query
	}
	return "EXPLAIN " + query
}
