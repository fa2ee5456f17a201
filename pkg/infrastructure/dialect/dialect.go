// Package dialect abstracts the engine-specific parts of talking to a
// database: DSN construction, catalog queries, explain syntax, and
// read-only session enforcement. Everything else in the gateway works
// against database/sql and this interface.
package dialect

import (
	"context"
	"database/sql"

	"github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/models"
)

// Dialect is implemented once per supported engine. Catalog queries
// return SQL plus bind arguments; all of them produce a fixed column
// shape so the repository can scan them uniformly:
//
//	ListTablesQuery    -> (name, schema, type)
//	ListSchemasQuery   -> (schema_name)
//	ColumnsQuery       -> (name, data_type, is_nullable, default, ordinal)
//	IndexesQuery       -> (index_name, column_name, unique, primary), one row per column
//	PrimaryKeysQuery   -> (column_name)
//	TableStatsQuery    -> (row_estimate, total_bytes, index_bytes)
//	DatabaseSizeQuery  -> (bytes)
type Dialect interface {
	Name() string
	DriverName() string

	// BuildDSN renders the driver connection string for info.
	BuildDSN(info *models.ConnectionInfo) string

	// DefaultSchema is the schema searched when a request omits one.
	DefaultSchema(info *models.ConnectionInfo) string

	// EnforceReadOnly pins one session to read-only statements and
	// verifies the server accepts the restriction. It only reaches
	// the single pooled connection that runs it; BuildDSN carries the
	// read-only setting for the rest of the pool.
	EnforceReadOnly(ctx context.Context, db *sql.DB) error

	ListTablesQuery(schema string) (string, []any)
	ListSchemasQuery() (string, []any)
	ColumnsQuery(schema, table string) (string, []any)
	IndexesQuery(schema, table string) (string, []any)
	PrimaryKeysQuery(schema, table string) (string, []any)
	TableStatsQuery(schema, table string) (string, []any)
	DatabaseSizeQuery(database string) (string, []any)

	// ExplainQuery wraps a statement in the engine's plan syntax.
	// With analyze the statement is actually executed.
	ExplainQuery(query string, analyze bool) string
}

// ForServerType returns the dialect registered for a server type.
func ForServerType(serverType string) (Dialect, error) {
	switch serverType {
	case models.ServerTypePostgres:
		return &Postgres{}, nil
	case models.ServerTypeMySQL:
		return &MySQL{}, nil
	case models.ServerTypeSQLite:
		return &SQLite{}, nil
	default:
		return nil, errors.Newf(errors.CodeInvalidRequest, "unsupported server type %q", serverType)
	}
}
