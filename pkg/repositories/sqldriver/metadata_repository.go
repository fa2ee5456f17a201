package sqldriver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/infrastructure/dialect"
	"github.com/sqlgate/sqlgate/pkg/models"
	"github.com/sqlgate/sqlgate/pkg/repositories"
)

type metadataRepository struct {
	logger zerolog.Logger
}

// NewMetadataRepository creates a database/sql-backed metadata repository.
func NewMetadataRepository(logger zerolog.Logger) repositories.MetadataRepository {
	return &metadataRepository{
		logger: logger.With().Str("component", "metadata_repository").Logger(),
	}
}

// ListTables returns the tables and views visible in a schema.
func (r *metadataRepository) ListTables(ctx context.Context, db *sql.DB, d dialect.Dialect, schema string) ([]models.TableInfo, error) {
	query, args := d.ListTablesQuery(schema)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "list tables failed")
	}
	defer rows.Close()

	tables := make([]models.TableInfo, 0)
	for rows.Next() {
		var t models.TableInfo
		if err := rows.Scan(&t.Name, &t.Schema, &t.Type); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan table row")
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverError(ctx, err, "list tables failed")
	}
	return tables, nil
}

// ListSchemas returns the non-system schemas of the database.
func (r *metadataRepository) ListSchemas(ctx context.Context, db *sql.DB, d dialect.Dialect) ([]string, error) {
	query, args := d.ListSchemasQuery()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "list schemas failed")
	}
	defer rows.Close()

	schemas := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan schema row")
		}
		schemas = append(schemas, name)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverError(ctx, err, "list schemas failed")
	}
	return schemas, nil
}

// DescribeTable assembles columns, indexes, primary keys, and a row
// estimate for one table. A table with no columns is treated as
// missing.
func (r *metadataRepository) DescribeTable(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string) (*models.TableSchema, error) {
	columns, err := r.tableColumns(ctx, db, d, schema, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errors.Newf(errors.CodeNotFound, "table %q not found in schema %q", table, schema)
	}

	indexes, err := r.tableIndexes(ctx, db, d, schema, table)
	if err != nil {
		return nil, err
	}

	pks, err := r.primaryKeys(ctx, db, d, schema, table)
	if err != nil {
		return nil, err
	}

	stats, err := r.TableStats(ctx, db, d, schema, table)
	rowEstimate := int64(0)
	if err == nil {
		rowEstimate = stats.RowEstimate
	} else {
		r.logger.Warn().Err(err).Str("table", table).Msg("row estimate unavailable")
	}

	return &models.TableSchema{
		Schema:      schema,
		Table:       table,
		Columns:     columns,
		Indexes:     indexes,
		PrimaryKeys: pks,
		RowEstimate: rowEstimate,
	}, nil
}

func (r *metadataRepository) tableColumns(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string) ([]models.ColumnInfo, error) {
	query, args := d.ColumnsQuery(schema, table)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "list columns failed")
	}
	defer rows.Close()

	columns := make([]models.ColumnInfo, 0)
	for rows.Next() {
		var (
			col      models.ColumnInfo
			nullable string
		)
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.Default, &col.OrdinalPosition); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan column row")
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverError(ctx, err, "list columns failed")
	}
	return columns, nil
}

// tableIndexes aggregates the per-column index rows into one
// IndexInfo per index, preserving column order.
func (r *metadataRepository) tableIndexes(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string) ([]models.IndexInfo, error) {
	query, args := d.IndexesQuery(schema, table)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "list indexes failed")
	}
	defer rows.Close()

	indexes := make([]models.IndexInfo, 0)
	byName := make(map[string]int)
	for rows.Next() {
		var (
			name, column    string
			unique, primary bool
		)
		if err := rows.Scan(&name, &column, &unique, &primary); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan index row")
		}
		pos, seen := byName[name]
		if !seen {
			pos = len(indexes)
			byName[name] = pos
			indexes = append(indexes, models.IndexInfo{Name: name, Unique: unique, Primary: primary})
		}
		indexes[pos].Columns = append(indexes[pos].Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverError(ctx, err, "list indexes failed")
	}
	return indexes, nil
}

func (r *metadataRepository) primaryKeys(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string) ([]string, error) {
	query, args := d.PrimaryKeysQuery(schema, table)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDriverError(ctx, err, "list primary keys failed")
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan primary key row")
		}
		keys = append(keys, name)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverError(ctx, err, "list primary keys failed")
	}
	return keys, nil
}

// TableStats reports the row estimate and storage usage of a table.
func (r *metadataRepository) TableStats(ctx context.Context, db *sql.DB, d dialect.Dialect, schema, table string) (*models.TableStats, error) {
	query, args := d.TableStatsQuery(schema, table)

	stats := &models.TableStats{Schema: schema, Table: table}
	err := db.QueryRowContext(ctx, query, args...).Scan(&stats.RowEstimate, &stats.TotalBytes, &stats.IndexBytes)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.CodeNotFound, "table %q not found in schema %q", table, schema)
	}
	if err != nil {
		return nil, wrapDriverError(ctx, err, "table stats failed")
	}
	return stats, nil
}

// DatabaseSize reports the total on-disk size of the database.
func (r *metadataRepository) DatabaseSize(ctx context.Context, db *sql.DB, d dialect.Dialect, database string) (*models.DatabaseSize, error) {
	query, args := d.DatabaseSizeQuery(database)

	var bytes int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&bytes); err != nil {
		return nil, wrapDriverError(ctx, err, "database size failed")
	}

	return &models.DatabaseSize{
		Database: database,
		Bytes:    bytes,
		Pretty:   prettyBytes(bytes),
	}, nil
}

func prettyBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
