// Package sqldriver implements the repository interfaces on top of
// database/sql, dialect-agnostic except where the Dialect interface
// fills in engine syntax.
package sqldriver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/infrastructure/dialect"
	"github.com/sqlgate/sqlgate/pkg/models"
	"github.com/sqlgate/sqlgate/pkg/repositories"
)

type queryRepository struct {
	logger zerolog.Logger
}

// NewQueryRepository creates a database/sql-backed query repository.
func NewQueryRepository(logger zerolog.Logger) repositories.QueryRepository {
	return &queryRepository{
		logger: logger.With().Str("component", "query_repository").Logger(),
	}
}

// ExecuteQuery executes a row-returning statement.
func (r *queryRepository) ExecuteQuery(ctx context.Context, db *sql.DB, query string, params []any, maxRows int) (*models.QueryResult, error) {
	r.logger.Debug().
		Str("query", summarize(query)).
		Int("params", len(params)).
		Int("max_rows", maxRows).
		Msg("executing query")

	start := time.Now()
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "query failed")
	}
	defer rows.Close()

	columns, data, truncated, err := materializeRows(rows, maxRows)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "reading result rows failed")
	}

	return &models.QueryResult{
		Columns:       columns,
		Rows:          data,
		RowCount:      len(data),
		Truncated:     truncated,
		ExecutionTime: time.Since(start),
	}, nil
}

// ExecuteUpdate executes a write statement.
func (r *queryRepository) ExecuteUpdate(ctx context.Context, db *sql.DB, statement string, params []any) (*models.UpdateResult, error) {
	r.logger.Debug().
		Str("statement", summarize(statement)).
		Int("params", len(params)).
		Msg("executing update")

	start := time.Now()
	res, err := db.ExecContext(ctx, statement, params...)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "update failed")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report the count; the statement still ran.
		affected = 0
	}

	return &models.UpdateResult{
		RowsAffected:  affected,
		ExecutionTime: time.Since(start),
	}, nil
}

// ExecuteTransaction runs statements in submission order on a single
// session. Any failure rolls back the whole transaction; the error
// carries the zero-based index of the failing statement. A rollback
// failure is reported with a rolled_back=false detail since the
// database state is then unknown.
func (r *queryRepository) ExecuteTransaction(ctx context.Context, db *sql.DB, statements []models.TransactionStatement) (*models.TransactionResult, error) {
	if len(statements) == 0 {
		return nil, errors.New(errors.CodeInvalidRequest, "transaction requires at least one statement")
	}

	start := time.Now()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "begin transaction failed")
	}

	results := make([]models.StatementResult, 0, len(statements))
	for i, stmt := range statements {
		result, execErr := r.executeInTx(ctx, tx, i, stmt)
		if execErr != nil {
			txErr := errors.Wrapf(execErr, errors.CodeTransactionAborted, "statement %d aborted transaction", i).
				WithDetail("failed_index", i)
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error().Err(rbErr).Int("failed_index", i).Msg("rollback failed")
				return nil, txErr.WithDetail("rolled_back", false).WithDetail("rollback_error", rbErr.Error())
			}
			return nil, txErr.WithDetail("rolled_back", true)
		}
		results = append(results, *result)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapDriverError(ctx, err, "commit failed")
	}

	return &models.TransactionResult{
		Results:       results,
		ExecutionTime: time.Since(start),
	}, nil
}

func (r *queryRepository) executeInTx(ctx context.Context, tx *sql.Tx, index int, stmt models.TransactionStatement) (*models.StatementResult, error) {
	qt := models.InferQueryType(stmt.Query)

	if qt == models.QueryTypeSelect {
		rows, err := tx.QueryContext(ctx, stmt.Query, stmt.Parameters...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		_, data, _, err := materializeRows(rows, 0)
		if err != nil {
			return nil, err
		}
		return &models.StatementResult{
			Index:    index,
			Type:     qt,
			Rows:     data,
			RowCount: len(data),
		}, nil
	}

	res, err := tx.ExecContext(ctx, stmt.Query, stmt.Parameters...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return &models.StatementResult{
		Index:        index,
		Type:         qt,
		RowsAffected: affected,
	}, nil
}

// ExecuteBatch runs a statement once per parameter set, in submission
// order, stopping at the first failure. Sets completed before the
// failure stay applied; the error names the zero-based failing set.
func (r *queryRepository) ExecuteBatch(ctx context.Context, db *sql.DB, statement string, paramSets [][]any) (*models.BatchResult, error) {
	if len(paramSets) == 0 {
		return nil, errors.New(errors.CodeInvalidRequest, "batch requires at least one parameter set")
	}

	r.logger.Debug().
		Str("statement", summarize(statement)).
		Int("batch_size", len(paramSets)).
		Msg("executing batch")

	start := time.Now()
	stmt, err := db.PrepareContext(ctx, statement)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "prepare batch statement failed")
	}
	defer stmt.Close()

	counts := make([]int64, 0, len(paramSets))
	for i, params := range paramSets {
		res, execErr := stmt.ExecContext(ctx, params...)
		if execErr != nil {
			return &models.BatchResult{
					AffectedCounts: counts,
					Completed:      len(counts),
					FailedIndex:    i,
					ExecutionTime:  time.Since(start),
				}, wrapDriverError(ctx, execErr, fmt.Sprintf("batch parameter set %d failed", i)).
					WithDetail("failed_index", i).
					WithDetail("completed", len(counts))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = 0
		}
		counts = append(counts, affected)
	}

	return &models.BatchResult{
		AffectedCounts: counts,
		Completed:      len(counts),
		FailedIndex:    -1,
		ExecutionTime:  time.Since(start),
	}, nil
}

// Explain wraps the statement in the dialect's plan syntax and
// collects the plan rows as text.
func (r *queryRepository) Explain(ctx context.Context, db *sql.DB, d dialect.Dialect, query string, analyze bool) (*models.ExplainResult, error) {
	start := time.Now()
	rows, err := db.QueryContext(ctx, d.ExplainQuery(query, analyze))
	if err != nil {
		return nil, wrapDriverError(ctx, err, "explain failed")
	}
	defer rows.Close()

	_, data, _, err := materializeRows(rows, 0)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "reading plan rows failed")
	}

	var plan strings.Builder
	for _, row := range data {
		line := make([]string, 0, len(row))
		for _, v := range row {
			line = append(line, fmt.Sprintf("%v", v))
		}
		plan.WriteString(strings.Join(line, " | "))
		plan.WriteByte('\n')
	}

	return &models.ExplainResult{
		Plan:          plan.String(),
		Analyzed:      analyze,
		ExecutionTime: time.Since(start),
	}, nil
}

// materializeRows scans every row into a column-name keyed map. With
// maxRows > 0 scanning stops after maxRows rows and reports truncation
// when at least one more row was available.
func materializeRows(rows *sql.Rows, maxRows int) ([]string, []map[string]any, bool, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, false, err
	}

	data := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if maxRows > 0 && len(data) >= maxRows {
			truncated = true
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, false, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, err
	}

	return columns, data, truncated, nil
}

// normalizeValue makes driver values JSON-friendly.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}

// wrapDriverError classifies a driver failure, distinguishing timeout
// and cancellation from plain driver errors.
func wrapDriverError(ctx context.Context, err error, message string) *errors.GatewayError {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return errors.Wrap(err, errors.CodeDeadlineExceeded, message)
	case context.Canceled:
		return errors.Wrap(err, errors.CodeCanceled, message)
	}
	return errors.Wrap(err, errors.CodeQueryFailed, message)
}

func summarize(query string) string {
	if len(query) > 100 {
		return query[:100] + "..."
	}
	return query
}
