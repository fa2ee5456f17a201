package sqldriver

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/infrastructure/dialect"
	"github.com/sqlgate/sqlgate/pkg/models"
)

func TestExecuteQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	mock.ExpectQuery("SELECT id, name FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "alice").
			AddRow(2, []byte("bob")))

	result, qerr := repo.ExecuteQuery(context.Background(), db, "SELECT id, name FROM users", nil, 0)
	require.NoError(t, qerr)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.False(t, result.Truncated)
	// Byte slices become strings for JSON output.
	assert.Equal(t, "bob", result.Rows[1]["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteQueryMaxRowsTruncates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	rows := sqlmock.NewRows([]string{"id"})
	for i := 0; i < 5; i++ {
		rows.AddRow(i)
	}
	mock.ExpectQuery("SELECT id FROM big").WillReturnRows(rows)

	result, qerr := repo.ExecuteQuery(context.Background(), db, "SELECT id FROM big", nil, 3)
	require.NoError(t, qerr)
	assert.Equal(t, 3, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestExecuteQueryDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	mock.ExpectQuery("SELECT broken").WillReturnError(fmt.Errorf("syntax error"))

	_, qerr := repo.ExecuteQuery(context.Background(), db, "SELECT broken", nil, 0)
	require.Error(t, qerr)
	assert.Equal(t, pkgerrors.CodeQueryFailed, pkgerrors.GetCode(qerr))
}

func TestExecuteUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	mock.ExpectExec("UPDATE users SET name").
		WithArgs("carol", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, uerr := repo.ExecuteUpdate(context.Background(), db, "UPDATE users SET name = $1 WHERE id = $2", []any{"carol", 1})
	require.NoError(t, uerr)
	assert.Equal(t, int64(1), result.RowsAffected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteTransactionCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO accounts").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT balance FROM accounts").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(100))
	mock.ExpectCommit()

	result, terr := repo.ExecuteTransaction(context.Background(), db, []models.TransactionStatement{
		{Query: "INSERT INTO accounts (balance) VALUES ($1)", Parameters: []any{100}},
		{Query: "SELECT balance FROM accounts"},
	})
	require.NoError(t, terr)
	require.Len(t, result.Results, 2)
	assert.Equal(t, int64(1), result.Results[0].RowsAffected)
	assert.Equal(t, models.QueryTypeInsert, result.Results[0].Type)
	assert.Equal(t, 1, result.Results[1].RowCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteTransactionRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO accounts").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE accounts").WillReturnError(fmt.Errorf("constraint violation"))
	mock.ExpectRollback()

	_, terr := repo.ExecuteTransaction(context.Background(), db, []models.TransactionStatement{
		{Query: "INSERT INTO accounts (balance) VALUES (1)"},
		{Query: "UPDATE accounts SET balance = -1"},
	})
	require.Error(t, terr)
	assert.Equal(t, pkgerrors.CodeTransactionAborted, pkgerrors.GetCode(terr))

	details := pkgerrors.GetDetails(terr)
	assert.Equal(t, 1, details["failed_index"])
	assert.Equal(t, true, details["rolled_back"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteTransactionRollbackFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM accounts").WillReturnError(fmt.Errorf("deadlock"))
	mock.ExpectRollback().WillReturnError(fmt.Errorf("connection lost"))

	_, terr := repo.ExecuteTransaction(context.Background(), db, []models.TransactionStatement{
		{Query: "DELETE FROM accounts"},
	})
	require.Error(t, terr)

	details := pkgerrors.GetDetails(terr)
	assert.Equal(t, false, details["rolled_back"])
	assert.Contains(t, details["rollback_error"], "connection lost")
}

func TestExecuteTransactionEmpty(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	_, terr := repo.ExecuteTransaction(context.Background(), db, nil)
	require.Error(t, terr)
	assert.Equal(t, pkgerrors.CodeInvalidRequest, pkgerrors.GetCode(terr))
}

func TestExecuteBatchAllSucceed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	prep := mock.ExpectPrepare("INSERT INTO events")
	prep.ExpectExec().WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("b").WillReturnResult(sqlmock.NewResult(2, 1))

	result, berr := repo.ExecuteBatch(context.Background(), db, "INSERT INTO events (name) VALUES ($1)", [][]any{{"a"}, {"b"}})
	require.NoError(t, berr)
	assert.Equal(t, []int64{1, 1}, result.AffectedCounts)
	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, -1, result.FailedIndex)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteBatchFailFast(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	prep := mock.ExpectPrepare("INSERT INTO events")
	prep.ExpectExec().WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("b").WillReturnResult(sqlmock.NewResult(2, 1))
	prep.ExpectExec().WithArgs("c").WillReturnError(fmt.Errorf("duplicate key"))

	// Sets after the failing one are never attempted.
	result, berr := repo.ExecuteBatch(context.Background(), db, "INSERT INTO events (name) VALUES ($1)",
		[][]any{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}})
	require.Error(t, berr)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 2, result.FailedIndex)
	assert.Equal(t, []int64{1, 1}, result.AffectedCounts)

	details := pkgerrors.GetDetails(berr)
	assert.Equal(t, 2, details["failed_index"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExplain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQueryRepository(zerolog.Nop())

	mock.ExpectQuery("EXPLAIN SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"QUERY PLAN"}).
			AddRow("Seq Scan on users").
			AddRow("  Filter: (id > 1)"))

	result, eerr := repo.Explain(context.Background(), db, &dialect.Postgres{}, "SELECT * FROM users WHERE id > 1", false)
	require.NoError(t, eerr)
	assert.False(t, result.Analyzed)
	assert.Contains(t, result.Plan, "Seq Scan on users")
	assert.Contains(t, result.Plan, "Filter")
}
