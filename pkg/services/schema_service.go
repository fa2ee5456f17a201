package services

import (
	"context"
	"strings"

	"github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/models"
	"github.com/sqlgate/sqlgate/pkg/repositories"
)

type schemaService struct {
	conns   ConnectionService
	repo    repositories.MetadataRepository
	logger  Logger
	metrics MetricsCollector
}

// NewSchemaService creates the schema inspector. Its catalog queries
// are engine-generated SELECTs and bypass the statement validator by
// construction; nothing here takes caller SQL.
func NewSchemaService(
	conns ConnectionService,
	repo repositories.MetadataRepository,
	logger Logger,
	metrics MetricsCollector,
) SchemaService {
	return &schemaService{
		conns:   conns,
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

// GetTableSchema describes one table: columns, indexes, primary keys,
// and a row estimate.
func (s *schemaService) GetTableSchema(ctx context.Context, connectionID, table, schema string) (*models.TableSchema, error) {
	timer := s.metrics.StartTimer("get_table_schema")
	defer timer.Stop()

	if strings.TrimSpace(table) == "" {
		return nil, errors.New(errors.CodeInvalidRequest, "table name cannot be blank")
	}

	conn, err := s.conns.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	schema = s.resolveSchema(conn, schema)

	return s.repo.DescribeTable(ctx, conn.DB, conn.Dialect, schema, table)
}

// ListTables lists the tables and views of a schema.
func (s *schemaService) ListTables(ctx context.Context, connectionID, schema string) ([]models.TableInfo, error) {
	timer := s.metrics.StartTimer("list_tables")
	defer timer.Stop()

	conn, err := s.conns.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	schema = s.resolveSchema(conn, schema)

	return s.repo.ListTables(ctx, conn.DB, conn.Dialect, schema)
}

// ListSchemas lists the non-system schemas of the database.
func (s *schemaService) ListSchemas(ctx context.Context, connectionID string) ([]string, error) {
	timer := s.metrics.StartTimer("list_schemas")
	defer timer.Stop()

	conn, err := s.conns.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	return s.repo.ListSchemas(ctx, conn.DB, conn.Dialect)
}

// GetTableStats reports row estimate and storage usage for a table.
func (s *schemaService) GetTableStats(ctx context.Context, connectionID, table, schema string) (*models.TableStats, error) {
	timer := s.metrics.StartTimer("get_table_stats")
	defer timer.Stop()

	if strings.TrimSpace(table) == "" {
		return nil, errors.New(errors.CodeInvalidRequest, "table name cannot be blank")
	}

	conn, err := s.conns.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	schema = s.resolveSchema(conn, schema)

	return s.repo.TableStats(ctx, conn.DB, conn.Dialect, schema, table)
}

// GetDatabaseSize reports the total on-disk size of the database.
func (s *schemaService) GetDatabaseSize(ctx context.Context, connectionID string) (*models.DatabaseSize, error) {
	timer := s.metrics.StartTimer("get_database_size")
	defer timer.Stop()

	conn, err := s.conns.Resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	return s.repo.DatabaseSize(ctx, conn.DB, conn.Dialect, conn.Info.Database)
}

func (s *schemaService) resolveSchema(conn *ResolvedConnection, schema string) string {
	if strings.TrimSpace(schema) != "" {
		return schema
	}
	return conn.Dialect.DefaultSchema(conn.Info)
}
