package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlgate/sqlgate/pkg/errors"
)

func TestNewConnectionInfo(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		info, err := NewConnectionInfo("primary", "db.internal", 5432, "orders", "app", "secret", 10, false, "", "")
		require.NoError(t, err)
		assert.Equal(t, "primary", info.ConnectionID)
		assert.Equal(t, ServerTypePostgres, info.ServerType)
		assert.Equal(t, "disable", info.SSLMode)
		assert.False(t, info.CreatedAt.IsZero())
	})

	t.Run("blank fields rejected", func(t *testing.T) {
		cases := []struct {
			name string
			fn   func() (*ConnectionInfo, error)
		}{
			{"id", func() (*ConnectionInfo, error) {
				return NewConnectionInfo("  ", "h", 5432, "d", "u", "p", 10, false, "", "")
			}},
			{"host", func() (*ConnectionInfo, error) {
				return NewConnectionInfo("c", "", 5432, "d", "u", "p", 10, false, "", "")
			}},
			{"database", func() (*ConnectionInfo, error) {
				return NewConnectionInfo("c", "h", 5432, " ", "u", "p", 10, false, "", "")
			}},
			{"username", func() (*ConnectionInfo, error) {
				return NewConnectionInfo("c", "h", 5432, "d", "", "p", 10, false, "", "")
			}},
			{"password", func() (*ConnectionInfo, error) {
				return NewConnectionInfo("c", "h", 5432, "d", "u", "", 10, false, "", "")
			}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := tc.fn()
				require.Error(t, err)
				assert.Equal(t, errors.CodeInvalidRequest, errors.GetCode(err))
			})
		}
	})

	t.Run("port bounds", func(t *testing.T) {
		_, err := NewConnectionInfo("c", "h", 0, "d", "u", "p", 10, false, "", "")
		require.Error(t, err)
		_, err = NewConnectionInfo("c", "h", 65536, "d", "u", "p", 10, false, "", "")
		require.Error(t, err)
		_, err = NewConnectionInfo("c", "h", 65535, "d", "u", "p", 10, false, "", "")
		require.NoError(t, err)
	})

	t.Run("pool size bounds", func(t *testing.T) {
		_, err := NewConnectionInfo("c", "h", 5432, "d", "u", "p", 0, false, "", "")
		require.Error(t, err)
		_, err = NewConnectionInfo("c", "h", 5432, "d", "u", "p", 101, false, "", "")
		require.Error(t, err)
		_, err = NewConnectionInfo("c", "h", 5432, "d", "u", "p", 100, false, "", "")
		require.NoError(t, err)
	})

	t.Run("server type lowercased", func(t *testing.T) {
		info, err := NewConnectionInfo("c", "h", 3306, "d", "u", "p", 5, true, "MySQL", "")
		require.NoError(t, err)
		assert.Equal(t, ServerTypeMySQL, info.ServerType)
		assert.True(t, info.ReadOnly)
	})
}

func TestConnectionStatusIsHealthy(t *testing.T) {
	assert.True(t, StatusConnected.IsHealthy())
	for _, s := range []ConnectionStatus{StatusCreated, StatusConnecting, StatusDisconnected, StatusError, StatusTimeout} {
		assert.False(t, s.IsHealthy(), string(s))
	}
}

func TestInferQueryType(t *testing.T) {
	cases := map[string]QueryType{
		"SELECT * FROM t":                 QueryTypeSelect,
		"  select 1":                      QueryTypeSelect,
		"WITH cte AS (SELECT 1) SELECT *": QueryTypeSelect,
		"INSERT INTO t VALUES (1)":        QueryTypeInsert,
		"update t set a = 1":              QueryTypeUpdate,
		"DELETE FROM t":                   QueryTypeDelete,
		"CREATE TABLE t (id int)":         QueryTypeDDL,
		"ALTER TABLE t ADD c int":         QueryTypeDDL,
		"DROP TABLE t":                    QueryTypeDDL,
		"VACUUM":                          QueryTypeOther,
		"":                                QueryTypeOther,
	}
	for stmt, want := range cases {
		assert.Equal(t, want, InferQueryType(stmt), stmt)
	}
}

func TestQueryExecutionLifecycle(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		exec := NewQueryExecution("primary", "SELECT 1", nil)
		require.NotEmpty(t, exec.ID)
		assert.Equal(t, QueryStatusPending, exec.Status)
		assert.Equal(t, QueryTypeSelect, exec.Type)
		assert.False(t, exec.IsTerminal())

		require.NoError(t, exec.MarkStarted())
		assert.Equal(t, QueryStatusExecuting, exec.Status)

		require.NoError(t, exec.MarkCompleted(42))
		assert.Equal(t, QueryStatusCompleted, exec.Status)
		assert.Equal(t, 42, exec.RowCount)
		assert.True(t, exec.IsTerminal())
		assert.False(t, exec.CompletedAt.IsZero())
	})

	t.Run("failure path", func(t *testing.T) {
		exec := NewQueryExecution("primary", "SELECT 1", nil)
		require.NoError(t, exec.MarkStarted())
		require.NoError(t, exec.MarkFailed("relation does not exist"))
		assert.Equal(t, QueryStatusFailed, exec.Status)
		assert.Equal(t, "relation does not exist", exec.ErrorMessage)
		assert.True(t, exec.IsTerminal())
	})

	t.Run("invalid transitions", func(t *testing.T) {
		exec := NewQueryExecution("primary", "SELECT 1", nil)
		require.Error(t, exec.MarkCompleted(1), "complete before start")
		require.Error(t, exec.MarkFailed("x"), "fail before start")

		require.NoError(t, exec.MarkStarted())
		require.Error(t, exec.MarkStarted(), "double start")
		require.NoError(t, exec.MarkCompleted(0))
		require.Error(t, exec.MarkFailed("x"), "fail after complete")
	})

	t.Run("cancel", func(t *testing.T) {
		exec := NewQueryExecution("primary", "SELECT pg_sleep(60)", nil)
		require.NoError(t, exec.MarkStarted())
		require.NoError(t, exec.Cancel())
		assert.Equal(t, QueryStatusCancelled, exec.Status)
		assert.True(t, exec.IsTerminal())

		done := NewQueryExecution("primary", "SELECT 1", nil)
		require.NoError(t, done.MarkStarted())
		require.NoError(t, done.MarkCompleted(1))
		require.Error(t, done.Cancel(), "cancel after complete")
	})
}

func TestQuerySummaryTruncation(t *testing.T) {
	long := "SELECT " + string(make([]byte, 200))
	exec := NewQueryExecution("c", long, nil)
	summary := exec.QuerySummary()
	assert.Len(t, summary, 103)
	assert.Contains(t, summary, "...")

	short := NewQueryExecution("c", "SELECT 1", nil)
	assert.Equal(t, "SELECT 1", short.QuerySummary())
}
