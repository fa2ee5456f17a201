package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/models"
	"github.com/sqlgate/sqlgate/pkg/repositories"
)

// DefaultQueryTimeout applies when a request carries no timeout.
const DefaultQueryTimeout = 30 * time.Second

type queryService struct {
	conns          ConnectionService
	repo           repositories.QueryRepository
	validator      *Validator
	history        *ExecutionHistory
	defaultTimeout time.Duration
	logger         Logger
	metrics        MetricsCollector
}

// NewQueryService creates the query executor. defaultTimeout applies
// to requests that carry no timeout of their own; zero means
// DefaultQueryTimeout.
func NewQueryService(
	conns ConnectionService,
	repo repositories.QueryRepository,
	validator *Validator,
	history *ExecutionHistory,
	defaultTimeout time.Duration,
	logger Logger,
	metrics MetricsCollector,
) QueryService {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultQueryTimeout
	}
	return &queryService{
		conns:          conns,
		repo:           repo,
		validator:      validator,
		history:        history,
		defaultTimeout: defaultTimeout,
		logger:         logger,
		metrics:        metrics,
	}
}

// ExecuteQuery runs a single read query.
func (s *queryService) ExecuteQuery(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error) {
	timer := s.metrics.StartTimer("execute_query")
	defer timer.Stop()

	conn, exec, err := s.admit(ctx, req.ConnectionID, req.Query, req.Parameters)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := s.withTimeout(ctx, req.Timeout)
	defer cancel()

	result, err := s.repo.ExecuteQuery(queryCtx, conn.DB, req.Query, req.Parameters, req.MaxRows)
	if err != nil {
		s.finishFailed(exec, err)
		return nil, s.normalizeTimeout(queryCtx, err)
	}

	s.finishCompleted(exec, result.RowCount)
	s.logger.Debug("query executed",
		"connection_id", req.ConnectionID,
		"rows", result.RowCount,
		"truncated", result.Truncated,
		"duration", result.ExecutionTime)
	return result, nil
}

// ExecuteUpdate runs a single write statement.
func (s *queryService) ExecuteUpdate(ctx context.Context, req *models.UpdateRequest) (*models.UpdateResult, error) {
	timer := s.metrics.StartTimer("execute_update")
	defer timer.Stop()

	conn, exec, err := s.admit(ctx, req.ConnectionID, req.Statement, req.Parameters)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := s.withTimeout(ctx, req.Timeout)
	defer cancel()

	result, err := s.repo.ExecuteUpdate(queryCtx, conn.DB, req.Statement, req.Parameters)
	if err != nil {
		s.finishFailed(exec, err)
		return nil, s.normalizeTimeout(queryCtx, err)
	}

	s.finishCompleted(exec, int(result.RowsAffected))
	return result, nil
}

// ExecuteTransaction runs the statements atomically. Every statement
// is validated before any of them executes.
func (s *queryService) ExecuteTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TransactionResult, error) {
	timer := s.metrics.StartTimer("execute_transaction")
	defer timer.Stop()

	if len(req.Statements) == 0 {
		return nil, errors.New(errors.CodeInvalidRequest, "transaction requires at least one statement")
	}
	for i, stmt := range req.Statements {
		if err := s.validate(stmt.Query, false); err != nil {
			s.metrics.IncrementCounter("validation_rejections")
			return nil, errors.Wrapf(err, errors.CodePolicyRejected, "statement %d rejected", i).
				WithDetail("failed_index", i)
		}
	}

	conn, err := s.conns.Resolve(ctx, req.ConnectionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkWritable(conn, req.Statements); err != nil {
		return nil, err
	}

	exec := s.track(req.ConnectionID, fmt.Sprintf("transaction of %d statements", len(req.Statements)), nil)

	queryCtx, cancel := s.withTimeout(ctx, req.Timeout)
	defer cancel()

	result, err := s.repo.ExecuteTransaction(queryCtx, conn.DB, req.Statements)
	if err != nil {
		s.finishFailed(exec, err)
		s.metrics.IncrementCounter("transactions_aborted")
		return nil, s.normalizeTimeout(queryCtx, err)
	}

	s.finishCompleted(exec, len(result.Results))
	s.metrics.IncrementCounter("transactions_committed")
	return result, nil
}

// ExecuteBatch runs one statement per parameter set, fail-fast. On
// failure the partial result is returned alongside the error so
// callers can report how far the batch got.
func (s *queryService) ExecuteBatch(ctx context.Context, req *models.BatchRequest) (*models.BatchResult, error) {
	timer := s.metrics.StartTimer("execute_batch")
	defer timer.Stop()

	conn, exec, err := s.admit(ctx, req.ConnectionID, req.Statement, nil)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := s.withTimeout(ctx, req.Timeout)
	defer cancel()

	result, err := s.repo.ExecuteBatch(queryCtx, conn.DB, req.Statement, req.ParamSets)
	if err != nil {
		s.finishFailed(exec, err)
		s.metrics.IncrementCounter("batches_failed")
		return result, s.normalizeTimeout(queryCtx, err)
	}

	s.finishCompleted(exec, result.Completed)
	return result, nil
}

// Explain returns the execution plan. The inner statement must pass
// validation; with analyze it really executes, so read-only
// connections only get plain explain.
func (s *queryService) Explain(ctx context.Context, req *models.ExplainRequest) (*models.ExplainResult, error) {
	timer := s.metrics.StartTimer("explain")
	defer timer.Stop()

	if err := s.validate(req.Query, false); err != nil {
		s.metrics.IncrementCounter("validation_rejections")
		return nil, err
	}

	conn, err := s.conns.Resolve(ctx, req.ConnectionID)
	if err != nil {
		return nil, err
	}
	if req.Analyze && conn.Info.ReadOnly && !isReadOnlyStatement(req.Query) {
		return nil, errors.New(errors.CodePolicyRejected, "explain analyze executes the statement and is not allowed on a read-only connection").
			WithDetail("reason", errors.ReasonReadonlyViolation)
	}

	// With analyze the statement really runs, so the plan request is
	// audited like any other execution.
	exec := s.track(req.ConnectionID, "EXPLAIN "+req.Query, nil)

	queryCtx, cancel := s.withTimeout(ctx, req.Timeout)
	defer cancel()

	result, err := s.repo.Explain(queryCtx, conn.DB, conn.Dialect, req.Query, req.Analyze)
	if err != nil {
		s.finishFailed(exec, err)
		return nil, s.normalizeTimeout(queryCtx, err)
	}

	s.finishCompleted(exec, 0)
	return result, nil
}

// History returns the most recent executions, newest first.
func (s *queryService) History(limit int) []models.QueryExecution {
	return s.history.List(limit)
}

// admit is the shared front half of every execution path: validate
// the statement, resolve the connection, enforce its read-only flag,
// and open the audit record.
func (s *queryService) admit(ctx context.Context, connectionID, statement string, params []any) (*ResolvedConnection, *models.QueryExecution, error) {
	conn, err := s.conns.Resolve(ctx, connectionID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.validate(statement, conn.Info.ReadOnly); err != nil {
		s.metrics.IncrementCounter("validation_rejections")
		s.logger.Warn("statement rejected",
			"connection_id", connectionID,
			"reason", errors.GetDetails(err)["reason"])
		return nil, nil, err
	}

	return conn, s.track(connectionID, statement, params), nil
}

func (s *queryService) validate(statement string, readOnly bool) error {
	if readOnly {
		return s.validator.ValidateReadOnly(statement)
	}
	return s.validator.Validate(statement)
}

func (s *queryService) checkWritable(conn *ResolvedConnection, statements []models.TransactionStatement) error {
	if !conn.Info.ReadOnly {
		return nil
	}
	for i, stmt := range statements {
		if !isReadOnlyStatement(stmt.Query) {
			return errors.Newf(errors.CodePolicyRejected, "statement %d is not allowed on a read-only connection", i).
				WithDetail("reason", errors.ReasonReadonlyViolation).
				WithDetail("failed_index", i)
		}
	}
	return nil
}

func (s *queryService) track(connectionID, statement string, params []any) *models.QueryExecution {
	exec := models.NewQueryExecution(connectionID, statement, params)
	// Admission already happened; the record goes straight to Executing.
	_ = exec.MarkStarted()
	return exec
}

func (s *queryService) finishCompleted(exec *models.QueryExecution, rowCount int) {
	_ = exec.MarkCompleted(rowCount)
	s.history.Append(exec)
	s.metrics.IncrementCounter("queries_total", "type", string(exec.Type), "status", string(exec.Status))
}

// finishFailed closes the audit record and flags the connection, so
// ListHealthy stops advertising it until a ping brings it back. A
// caller cancellation says nothing about connection health and is not
// flagged.
func (s *queryService) finishFailed(exec *models.QueryExecution, err error) {
	_ = exec.MarkFailed(err.Error())
	s.history.Append(exec)
	s.metrics.IncrementCounter("queries_total", "type", string(exec.Type), "status", string(exec.Status))
	if errors.GetCode(err) != errors.CodeCanceled {
		s.conns.MarkError(exec.ConnectionID, err)
	}
}

func (s *queryService) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// normalizeTimeout maps a context deadline hit to the timeout error
// so callers see QueryTimeout rather than a raw driver message.
func (s *queryService) normalizeTimeout(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded && !errors.IsTimeout(err) {
		return errors.Wrap(err, errors.CodeDeadlineExceeded, "query execution timeout")
	}
	return err
}

func isReadOnlyStatement(statement string) bool {
	return readOnlyVerbs[OperationVerb(cleanStatement(statement))]
}
