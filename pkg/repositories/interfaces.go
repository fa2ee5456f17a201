// Package repositories defines interfaces for data access operations.
// Implementations are stateless; the database handle and dialect of
// the target connection are supplied per call.
package repositories

import (
	"context"
	"database/sql"

	"github.com/sqlgate/sqlgate/pkg/infrastructure/dialect"
	"github.com/sqlgate/sqlgate/pkg/models"
)

// QueryRepository executes statements against an open database pool.
type QueryRepository interface {
	// ExecuteQuery runs a row-returning statement. Results are capped
	// at maxRows when maxRows > 0; the result reports truncation.
	ExecuteQuery(ctx context.Context, db *sql.DB, query string, params []any, maxRows int) (*models.QueryResult, error)

	// ExecuteUpdate runs a write statement and reports affected rows.
	ExecuteUpdate(ctx context.Context, db *sql.DB, statement string, params []any) (*models.UpdateResult, error)

	// ExecuteTransaction runs the statements in order on one session,
	// committing only if every statement succeeds.
	ExecuteTransaction(ctx context.Context, db *sql.DB, statements []models.TransactionStatement) (*models.TransactionResult, error)

	// ExecuteBatch runs one statement once per parameter set, in
	// order, stopping at the first failure.
	ExecuteBatch(ctx context.Context, db *sql.DB, statement string, paramSets [][]any) (*models.BatchResult, error)

	// Explain returns the engine's plan for a statement. With analyze
	// the statement is executed.
	Explain(ctx context.Context, db *sql.DB, d dialect.Dialect, query string, analyze bool) (*models.ExplainResult, error)
}

// MetadataRepository answers catalog questions about a connection.
type MetadataRepository interface {
	ListTables(ctx context.Context, db *sql.DB, d dialect.Dialect, schema string) ([]models.TableInfo, error)
	ListSchemas(ctx context.Context, db *sql.DB, d dialect.Dialect) ([]string, error)
	DescribeTable(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string) (*models.TableSchema, error)
	TableStats(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string) (*models.TableStats, error)
	DatabaseSize(ctx context.Context, db *sql.DB, d dialect.Dialect, database string) (*models.DatabaseSize, error)
}
