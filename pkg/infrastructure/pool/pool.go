// Package pool opens and manages per-connection database/sql pools.
// Each registered connection owns one Handle; database/sql does the
// actual connection pooling underneath.
package pool

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	pkgerrors "github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/infrastructure/dialect"
	"github.com/sqlgate/sqlgate/pkg/models"
)

// Config tunes the sql.DB pool behind each handle.
type Config struct {
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `json:"conn_max_idle_time"`
	ConnectTimeout     time.Duration `json:"connect_timeout"`
}

// DefaultConfig returns the pool tuning used when none is supplied.
func DefaultConfig() Config {
	return Config{
		MaxIdleConnections: 2,
		ConnMaxLifetime:    30 * time.Minute,
		ConnMaxIdleTime:    5 * time.Minute,
		ConnectTimeout:     10 * time.Second,
	}
}

// Handle is an open pool for one registered connection.
type Handle interface {
	// DB exposes the underlying pool for query execution.
	DB() *sql.DB
	// Dialect returns the engine adapter the handle was opened with.
	Dialect() dialect.Dialect
	// Ping verifies liveness and reports round-trip latency.
	Ping(ctx context.Context) (time.Duration, error)
	// Stats reports the sql.DB pool counters.
	Stats() sql.DBStats
	// Close releases every pooled connection.
	Close() error
}

// Opener dials a database described by a ConnectionInfo. Implemented
// by Factory for real engines and by test fakes.
type Opener interface {
	Open(ctx context.Context, info *models.ConnectionInfo) (Handle, error)
}

// Factory opens handles using the dialect registry.
type Factory struct {
	cfg    Config
	logger zerolog.Logger
}

// NewFactory builds an Opener with the given pool tuning.
func NewFactory(cfg Config, logger zerolog.Logger) *Factory {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	return &Factory{cfg: cfg, logger: logger.With().Str("component", "pool").Logger()}
}

// Open dials the database, applies pool limits, and verifies the
// connection with a ping before returning the handle. Read-only
// connections carry the restriction in the DSN so it reaches every
// pooled connection; EnforceReadOnly additionally confirms the server
// honors it before the handle is handed out.
func (f *Factory) Open(ctx context.Context, info *models.ConnectionInfo) (Handle, error) {
	d, err := dialect.ForServerType(info.ServerType)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.DriverName(), d.BuildDSN(info))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.CodeConnectionFailed, "open %s pool for %q", info.ServerType, info.ConnectionID)
	}

	db.SetMaxOpenConns(info.PoolSize)
	maxIdle := f.cfg.MaxIdleConnections
	if maxIdle > info.PoolSize {
		maxIdle = info.PoolSize
	}
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(f.cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(f.cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, f.cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		if pingCtx.Err() != nil {
			return nil, pkgerrors.Wrapf(err, pkgerrors.CodeDeadlineExceeded, "connect to %q timed out", info.ConnectionID)
		}
		return nil, pkgerrors.Wrapf(err, pkgerrors.CodeConnectionFailed, "connect to %q", info.ConnectionID)
	}

	if info.ReadOnly {
		if err := d.EnforceReadOnly(pingCtx, db); err != nil {
			_ = db.Close()
			return nil, pkgerrors.Wrapf(err, pkgerrors.CodeConnectionFailed, "enforce read-only on %q", info.ConnectionID)
		}
	}

	f.logger.Debug().
		Str("connection_id", info.ConnectionID).
		Str("server_type", info.ServerType).
		Int("pool_size", info.PoolSize).
		Msg("opened connection pool")

	return &handle{db: db, dialect: d}, nil
}

type handle struct {
	db      *sql.DB
	dialect dialect.Dialect
}

func (h *handle) DB() *sql.DB              { return h.db }
func (h *handle) Dialect() dialect.Dialect { return h.dialect }
func (h *handle) Stats() sql.DBStats       { return h.db.Stats() }
func (h *handle) Close() error             { return h.db.Close() }

func (h *handle) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "ping failed")
	}
	return time.Since(start), nil
}
