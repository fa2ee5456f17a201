package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sqlgate/sqlgate/pkg/errors"
)

// QueryType classifies a statement by its leading keyword.
type QueryType string

const (
	QueryTypeSelect QueryType = "SELECT"
	QueryTypeInsert QueryType = "INSERT"
	QueryTypeUpdate QueryType = "UPDATE"
	QueryTypeDelete QueryType = "DELETE"
	QueryTypeDDL    QueryType = "DDL"
	QueryTypeOther  QueryType = "OTHER"
)

// InferQueryType derives the QueryType from the statement's leading keyword.
// WITH is treated as SELECT since CTEs head read queries.
func InferQueryType(statement string) QueryType {
	trimmed := strings.ToUpper(strings.TrimSpace(statement))
	switch {
	case strings.HasPrefix(trimmed, "SELECT"), strings.HasPrefix(trimmed, "WITH"):
		return QueryTypeSelect
	case strings.HasPrefix(trimmed, "INSERT"):
		return QueryTypeInsert
	case strings.HasPrefix(trimmed, "UPDATE"):
		return QueryTypeUpdate
	case strings.HasPrefix(trimmed, "DELETE"):
		return QueryTypeDelete
	case strings.HasPrefix(trimmed, "CREATE"), strings.HasPrefix(trimmed, "ALTER"), strings.HasPrefix(trimmed, "DROP"):
		return QueryTypeDDL
	default:
		return QueryTypeOther
	}
}

// QueryStatus is the execution state of a QueryExecution record.
type QueryStatus string

const (
	QueryStatusPending   QueryStatus = "pending"
	QueryStatusExecuting QueryStatus = "executing"
	QueryStatusCompleted QueryStatus = "completed"
	QueryStatusFailed    QueryStatus = "failed"
	QueryStatusCancelled QueryStatus = "cancelled"
)

// QueryExecution is the per-call audit record. It lives for a single
// operation (or in the bounded execution history) and enforces its own
// state machine: Pending -> Executing -> Completed|Failed, with Cancel
// allowed only before a terminal state.
type QueryExecution struct {
	ID           string        `json:"id"`
	ConnectionID string        `json:"connection_id"`
	Query        string        `json:"query"`
	Parameters   []any         `json:"parameters,omitempty"`
	Type         QueryType     `json:"type"`
	Status       QueryStatus   `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  time.Time     `json:"completed_at,omitempty"`
	ErrorMessage string        `json:"error,omitempty"`
	RowCount     int           `json:"row_count,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
}

// NewQueryExecution creates a pending execution record.
func NewQueryExecution(connectionID, query string, params []any) *QueryExecution {
	return &QueryExecution{
		ID:           uuid.New().String(),
		ConnectionID: connectionID,
		Query:        query,
		Parameters:   params,
		Type:         InferQueryType(query),
		Status:       QueryStatusPending,
		StartedAt:    time.Now(),
	}
}

// MarkStarted transitions Pending -> Executing.
func (q *QueryExecution) MarkStarted() error {
	if q.Status != QueryStatusPending {
		return errors.Newf(errors.CodeInternal, "cannot start execution in status %q", q.Status)
	}
	q.Status = QueryStatusExecuting
	q.StartedAt = time.Now()
	return nil
}

// MarkCompleted transitions Executing -> Completed.
func (q *QueryExecution) MarkCompleted(rowCount int) error {
	if q.Status != QueryStatusExecuting {
		return errors.Newf(errors.CodeInternal, "cannot complete execution in status %q", q.Status)
	}
	q.Status = QueryStatusCompleted
	q.RowCount = rowCount
	q.CompletedAt = time.Now()
	q.Duration = q.CompletedAt.Sub(q.StartedAt)
	return nil
}

// MarkFailed transitions Executing -> Failed.
func (q *QueryExecution) MarkFailed(message string) error {
	if q.Status != QueryStatusExecuting {
		return errors.Newf(errors.CodeInternal, "cannot fail execution in status %q", q.Status)
	}
	q.Status = QueryStatusFailed
	q.ErrorMessage = message
	q.CompletedAt = time.Now()
	q.Duration = q.CompletedAt.Sub(q.StartedAt)
	return nil
}

// Cancel transitions any non-terminal state -> Cancelled.
func (q *QueryExecution) Cancel() error {
	if q.Status == QueryStatusCompleted || q.Status == QueryStatusFailed {
		return errors.Newf(errors.CodeInternal, "cannot cancel execution in status %q", q.Status)
	}
	q.Status = QueryStatusCancelled
	q.CompletedAt = time.Now()
	q.Duration = q.CompletedAt.Sub(q.StartedAt)
	return nil
}

// IsTerminal returns true once the execution reached a final state.
func (q *QueryExecution) IsTerminal() bool {
	switch q.Status {
	case QueryStatusCompleted, QueryStatusFailed, QueryStatusCancelled:
		return true
	}
	return false
}

// QuerySummary returns the statement truncated for logging.
func (q *QueryExecution) QuerySummary() string {
	if len(q.Query) > 100 {
		return q.Query[:100] + "..."
	}
	return q.Query
}

// QueryRequest carries one read query.
type QueryRequest struct {
	ConnectionID string
	Query        string
	Parameters   []any
	MaxRows      int
	Timeout      time.Duration
}

// UpdateRequest carries one write statement.
type UpdateRequest struct {
	ConnectionID string
	Statement    string
	Parameters   []any
	Timeout      time.Duration
}

// TransactionStatement is one entry of a multi-statement transaction.
type TransactionStatement struct {
	Query      string
	Parameters []any
}

// TransactionRequest carries an ordered list of statements executed
// atomically on a single session.
type TransactionRequest struct {
	ConnectionID string
	Statements   []TransactionStatement
	Timeout      time.Duration
}

// BatchRequest carries one statement executed once per parameter set.
type BatchRequest struct {
	ConnectionID string
	Statement    string
	ParamSets    [][]any
	Timeout      time.Duration
}

// ExplainRequest carries a statement to plan-explain. Analyze executes
// the statement for real timings and is therefore not read-only.
type ExplainRequest struct {
	ConnectionID string
	Query        string
	Analyze      bool
	Timeout      time.Duration
}

// QueryResult is the uniform, immutable shape of a read query's outcome.
// Row order is whatever the driver returned.
type QueryResult struct {
	Columns       []string         `json:"columns"`
	Rows          []map[string]any `json:"rows"`
	RowCount      int              `json:"row_count"`
	Truncated     bool             `json:"truncated,omitempty"`
	ExecutionTime time.Duration    `json:"-"`
}

// UpdateResult reports a write statement's outcome.
type UpdateResult struct {
	RowsAffected  int64         `json:"rows_affected"`
	ExecutionTime time.Duration `json:"-"`
}

// StatementResult is the per-statement outcome inside a transaction.
// Exactly one of Rows or RowsAffected is meaningful, keyed by Type.
type StatementResult struct {
	Index        int              `json:"index"`
	Type         QueryType        `json:"type"`
	Rows         []map[string]any `json:"rows,omitempty"`
	RowCount     int              `json:"row_count,omitempty"`
	RowsAffected int64            `json:"rows_affected,omitempty"`
}

// TransactionResult reports an atomically committed transaction.
type TransactionResult struct {
	Results       []StatementResult `json:"results"`
	ExecutionTime time.Duration     `json:"-"`
}

// BatchResult reports a fail-fast batch execution. On failure,
// AffectedCounts holds one entry per parameter set completed before the
// failing set and FailedIndex is the zero-based index of that set;
// FailedIndex is -1 when every set succeeded.
type BatchResult struct {
	AffectedCounts []int64       `json:"affected_counts"`
	Completed      int           `json:"completed"`
	FailedIndex    int           `json:"failed_index"`
	ExecutionTime  time.Duration `json:"-"`
}

// ExplainResult carries the driver's plan text.
type ExplainResult struct {
	Plan          string        `json:"plan"`
	Analyzed      bool          `json:"analyzed"`
	ExecutionTime time.Duration `json:"-"`
}
