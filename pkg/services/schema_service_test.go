package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/infrastructure/dialect"
	"github.com/sqlgate/sqlgate/pkg/models"
)

// mockMetadataRepo records the schema each call was routed to.
type mockMetadataRepo struct {
	lastSchema string
	lastTable  string
	lastDB     string

	tableSchema *models.TableSchema
	tables      []models.TableInfo
	schemas     []string
	stats       *models.TableStats
	size        *models.DatabaseSize
	err         error
}

func (m *mockMetadataRepo) ListTables(ctx context.Context, db *sql.DB, d dialect.Dialect, schema string) ([]models.TableInfo, error) {
	m.lastSchema = schema
	return m.tables, m.err
}

func (m *mockMetadataRepo) ListSchemas(ctx context.Context, db *sql.DB, d dialect.Dialect) ([]string, error) {
	return m.schemas, m.err
}

func (m *mockMetadataRepo) DescribeTable(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string) (*models.TableSchema, error) {
	m.lastSchema = schema
	m.lastTable = table
	return m.tableSchema, m.err
}

func (m *mockMetadataRepo) TableStats(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string) (*models.TableStats, error) {
	m.lastSchema = schema
	m.lastTable = table
	return m.stats, m.err
}

func (m *mockMetadataRepo) DatabaseSize(ctx context.Context, db *sql.DB, d dialect.Dialect, database string) (*models.DatabaseSize, error) {
	m.lastDB = database
	return m.size, m.err
}

func newSchemaFixture(t *testing.T, serverType string) (*mockMetadataRepo, SchemaService) {
	t.Helper()
	info, err := models.NewConnectionInfo("primary", "db", 5432, "appdb", "u", "p", 5, false, serverType, "")
	require.NoError(t, err)

	d, err := dialect.ForServerType(serverType)
	require.NoError(t, err)

	conns := newStubConns(&ResolvedConnection{Dialect: d, Info: info})
	repo := &mockMetadataRepo{}
	return repo, NewSchemaService(conns, repo, &mockLogger{}, newMockMetrics())
}

func TestSchemaServiceDefaultSchema(t *testing.T) {
	tests := []struct {
		serverType string
		want       string
	}{
		{models.ServerTypePostgres, "public"},
		{models.ServerTypeMySQL, "appdb"},
		{models.ServerTypeSQLite, "main"},
	}

	for _, tt := range tests {
		t.Run(tt.serverType, func(t *testing.T) {
			repo, svc := newSchemaFixture(t, tt.serverType)
			repo.tables = []models.TableInfo{}

			_, err := svc.ListTables(context.Background(), "primary", "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, repo.lastSchema)
		})
	}
}

func TestSchemaServiceExplicitSchemaWins(t *testing.T) {
	repo, svc := newSchemaFixture(t, models.ServerTypePostgres)

	_, err := svc.ListTables(context.Background(), "primary", "reporting")
	require.NoError(t, err)
	assert.Equal(t, "reporting", repo.lastSchema)
}

func TestSchemaServiceGetTableSchema(t *testing.T) {
	repo, svc := newSchemaFixture(t, models.ServerTypePostgres)
	repo.tableSchema = &models.TableSchema{
		Schema: "public",
		Table:  "users",
		Columns: []models.ColumnInfo{
			{Name: "id", DataType: "integer", OrdinalPosition: 1},
		},
		PrimaryKeys: []string{"id"},
	}

	result, err := svc.GetTableSchema(context.Background(), "primary", "users", "")
	require.NoError(t, err)
	assert.Equal(t, "users", repo.lastTable)
	assert.Equal(t, "public", repo.lastSchema)
	assert.Len(t, result.Columns, 1)
}

func TestSchemaServiceBlankTable(t *testing.T) {
	_, svc := newSchemaFixture(t, models.ServerTypePostgres)

	_, err := svc.GetTableSchema(context.Background(), "primary", "  ", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidRequest, errors.GetCode(err))

	_, err = svc.GetTableStats(context.Background(), "primary", "", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidRequest, errors.GetCode(err))
}

func TestSchemaServiceConnectionNotFound(t *testing.T) {
	info, err := models.NewConnectionInfo("primary", "db", 5432, "appdb", "u", "p", 5, false, models.ServerTypePostgres, "")
	require.NoError(t, err)
	conns := newStubConns(&ResolvedConnection{Dialect: &dialect.Postgres{}, Info: info})
	conns.resolveErr = errors.Newf(errors.CodeNotFound, "connection %q not found", "ghost")
	svc := NewSchemaService(conns, &mockMetadataRepo{}, &mockLogger{}, newMockMetrics())

	_, err = svc.ListSchemas(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSchemaServiceDatabaseSize(t *testing.T) {
	repo, svc := newSchemaFixture(t, models.ServerTypePostgres)
	repo.size = &models.DatabaseSize{Database: "appdb", Bytes: 1024, Pretty: "1.0 KB"}

	result, err := svc.GetDatabaseSize(context.Background(), "primary")
	require.NoError(t, err)
	assert.Equal(t, "appdb", repo.lastDB)
	assert.Equal(t, "1.0 KB", result.Pretty)
}
