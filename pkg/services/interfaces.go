// Package services contains business logic implementations.
package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/sqlgate/sqlgate/pkg/infrastructure/dialect"
	"github.com/sqlgate/sqlgate/pkg/models"
)

// ResolvedConnection is what the registry hands the executor for one
// operation: the live pool, the dialect, and the immutable info.
type ResolvedConnection struct {
	DB      *sql.DB
	Dialect dialect.Dialect
	Info    *models.ConnectionInfo
}

// ConnectionService owns the registry of live database connections.
type ConnectionService interface {
	// Add validates the info, opens a pool, and registers the entry.
	// The id must not already be present.
	Add(ctx context.Context, info *models.ConnectionInfo) (*models.ConnectionSummary, error)

	// Test pings the connection and reports round-trip latency,
	// updating the entry's status either way.
	Test(ctx context.Context, id string) (time.Duration, error)

	// Remove closes the pool and deletes the entry.
	Remove(ctx context.Context, id string) error

	// Resolve returns the live handle for query execution and bumps
	// the entry's last-accessed timestamp.
	Resolve(ctx context.Context, id string) (*ResolvedConnection, error)

	// MarkError records a failure against the entry without removing it.
	MarkError(id string, err error)

	// List enumerates every entry; ListHealthy only connected ones.
	List() []models.ConnectionSummary
	ListHealthy() []models.ConnectionSummary

	// StartHealthLoop pings all entries every interval until the
	// context is cancelled or Close is called.
	StartHealthLoop(ctx context.Context, interval time.Duration)

	// Close stops the health loop and releases every pool.
	Close() error
}

// QueryService executes validated statements against registered
// connections.
type QueryService interface {
	ExecuteQuery(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error)
	ExecuteUpdate(ctx context.Context, req *models.UpdateRequest) (*models.UpdateResult, error)
	ExecuteTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TransactionResult, error)
	ExecuteBatch(ctx context.Context, req *models.BatchRequest) (*models.BatchResult, error)
	Explain(ctx context.Context, req *models.ExplainRequest) (*models.ExplainResult, error)

	// History returns the most recent executions, newest first.
	History(limit int) []models.QueryExecution
}

// SchemaService answers read-only catalog questions.
type SchemaService interface {
	GetTableSchema(ctx context.Context, connectionID, table, schema string) (*models.TableSchema, error)
	ListTables(ctx context.Context, connectionID, schema string) ([]models.TableInfo, error)
	ListSchemas(ctx context.Context, connectionID string) ([]string, error)
	GetTableStats(ctx context.Context, connectionID, table, schema string) (*models.TableStats, error)
	GetDatabaseSize(ctx context.Context, connectionID string) (*models.DatabaseSize, error)
}

// Logger defines logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector defines metrics collection interface.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop() time.Duration
}
