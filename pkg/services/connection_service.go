package services

import (
	"context"
	"sync"
	"time"

	"github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/infrastructure/pool"
	"github.com/sqlgate/sqlgate/pkg/models"
)

// connEntry is one registry slot. The registry map is only touched
// for insert and delete; everything else mutates the entry under its
// own lock so unrelated connections never contend.
type connEntry struct {
	mu             sync.Mutex
	info           *models.ConnectionInfo
	handle         pool.Handle
	status         models.ConnectionStatus
	lastError      string
	createdAt      time.Time
	lastAccessedAt time.Time
}

func (e *connEntry) summary(id string) models.ConnectionSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.ConnectionSummary{
		ConnectionID:   id,
		Host:           e.info.Host,
		Port:           e.info.Port,
		Database:       e.info.Database,
		Username:       e.info.Username,
		PoolSize:       e.info.PoolSize,
		ReadOnly:       e.info.ReadOnly,
		ServerType:     e.info.ServerType,
		Status:         e.status,
		LastError:      e.lastError,
		CreatedAt:      e.createdAt,
		LastAccessedAt: e.lastAccessedAt,
	}
}

type connectionService struct {
	opener  pool.Opener
	logger  Logger
	metrics MetricsCollector

	entries sync.Map // string -> *connEntry

	loopOnce  sync.Once
	closeOnce sync.Once
	loopStop  chan struct{}
}

// NewConnectionService creates the connection registry.
func NewConnectionService(opener pool.Opener, logger Logger, metrics MetricsCollector) ConnectionService {
	return &connectionService{
		opener:   opener,
		logger:   logger,
		metrics:  metrics,
		loopStop: make(chan struct{}),
	}
}

// Add registers a new connection. The id is reserved first so that
// concurrent adds of the same id fail fast; the dial happens outside
// any lock and a failed dial releases the reservation.
func (s *connectionService) Add(ctx context.Context, info *models.ConnectionInfo) (*models.ConnectionSummary, error) {
	timer := s.metrics.StartTimer("connection_add")
	defer timer.Stop()

	now := time.Now()
	entry := &connEntry{
		info:           info,
		status:         models.StatusConnecting,
		createdAt:      now,
		lastAccessedAt: now,
	}

	if _, loaded := s.entries.LoadOrStore(info.ConnectionID, entry); loaded {
		s.metrics.IncrementCounter("connection_add_conflicts")
		return nil, errors.Newf(errors.CodeAlreadyExists, "connection %q already exists", info.ConnectionID)
	}

	handle, err := s.opener.Open(ctx, info)
	if err != nil {
		s.entries.Delete(info.ConnectionID)
		s.metrics.IncrementCounter("connection_add_failures")
		s.logger.Error("failed to open connection", "connection_id", info.ConnectionID, "error", err)
		return nil, err
	}

	entry.mu.Lock()
	entry.handle = handle
	entry.status = models.StatusConnected
	entry.mu.Unlock()

	s.metrics.IncrementCounter("connections_added")
	s.logger.Info("connection added",
		"connection_id", info.ConnectionID,
		"server_type", info.ServerType,
		"host", info.Host,
		"database", info.Database)

	summary := entry.summary(info.ConnectionID)
	return &summary, nil
}

// Test pings the connection. A failed ping marks the entry Error (or
// Timeout) but never removes it; decommissioning is explicit.
func (s *connectionService) Test(ctx context.Context, id string) (time.Duration, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	handle := entry.handle
	entry.mu.Unlock()
	if handle == nil {
		return 0, errors.Newf(errors.CodeConnectionFailed, "connection %q has no live handle", id)
	}

	latency, pingErr := handle.Ping(ctx)

	entry.mu.Lock()
	entry.lastAccessedAt = time.Now()
	if pingErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			entry.status = models.StatusTimeout
		} else {
			entry.status = models.StatusError
		}
		entry.lastError = pingErr.Error()
	} else {
		entry.status = models.StatusConnected
		entry.lastError = ""
	}
	entry.mu.Unlock()

	if pingErr != nil {
		s.metrics.IncrementCounter("connection_test_failures", "connection_id", id)
		return 0, errors.Wrapf(pingErr, errors.CodeConnectionFailed, "test of connection %q failed", id)
	}

	s.metrics.RecordHistogram("connection_ping_seconds", latency.Seconds(), "connection_id", id)
	return latency, nil
}

// Remove deletes the entry and closes its pool. In-flight operations
// holding the handle finish against it; later lookups of the id fail
// with not-found.
func (s *connectionService) Remove(_ context.Context, id string) error {
	value, loaded := s.entries.LoadAndDelete(id)
	if !loaded {
		return errors.Newf(errors.CodeNotFound, "connection %q not found", id)
	}

	entry := value.(*connEntry)
	entry.mu.Lock()
	handle := entry.handle
	entry.handle = nil
	entry.status = models.StatusDisconnected
	entry.mu.Unlock()

	if handle != nil {
		if err := handle.Close(); err != nil {
			s.logger.Warn("closing pool failed", "connection_id", id, "error", err)
		}
	}

	s.metrics.IncrementCounter("connections_removed")
	s.logger.Info("connection removed", "connection_id", id)
	return nil
}

// Resolve hands out the live handle for one operation.
func (s *connectionService) Resolve(_ context.Context, id string) (*ResolvedConnection, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.handle == nil {
		return nil, errors.Newf(errors.CodeNotFound, "connection %q not found", id)
	}
	entry.lastAccessedAt = time.Now()

	return &ResolvedConnection{
		DB:      entry.handle.DB(),
		Dialect: entry.handle.Dialect(),
		Info:    entry.info,
	}, nil
}

// MarkError records a failure against the entry.
func (s *connectionService) MarkError(id string, err error) {
	value, ok := s.entries.Load(id)
	if !ok {
		return
	}
	entry := value.(*connEntry)
	entry.mu.Lock()
	entry.status = models.StatusError
	entry.lastError = err.Error()
	entry.mu.Unlock()
	s.metrics.IncrementCounter("connection_errors", "connection_id", id)
}

// List enumerates every registered connection.
func (s *connectionService) List() []models.ConnectionSummary {
	summaries := make([]models.ConnectionSummary, 0)
	s.entries.Range(func(key, value any) bool {
		summaries = append(summaries, value.(*connEntry).summary(key.(string)))
		return true
	})
	return summaries
}

// ListHealthy enumerates only connected entries.
func (s *connectionService) ListHealthy() []models.ConnectionSummary {
	summaries := make([]models.ConnectionSummary, 0)
	s.entries.Range(func(key, value any) bool {
		summary := value.(*connEntry).summary(key.(string))
		if summary.Status.IsHealthy() {
			summaries = append(summaries, summary)
		}
		return true
	})
	return summaries
}

// StartHealthLoop pings every entry on the given interval until the
// context is cancelled or the service is closed. At most one loop
// runs per service.
func (s *connectionService) StartHealthLoop(ctx context.Context, interval time.Duration) {
	s.loopOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-s.loopStop:
					return
				case <-ticker.C:
					s.healthCheckAll(ctx)
				}
			}
		}()
	})
}

func (s *connectionService) healthCheckAll(ctx context.Context) {
	healthy := 0
	s.entries.Range(func(key, _ any) bool {
		id := key.(string)
		if _, err := s.Test(ctx, id); err != nil {
			s.logger.Warn("health check failed", "connection_id", id, "error", err)
		} else {
			healthy++
		}
		return true
	})
	s.metrics.RecordGauge("connections_healthy", float64(healthy))
}

// Close stops the health loop and releases every pool.
func (s *connectionService) Close() error {
	s.closeOnce.Do(func() { close(s.loopStop) })

	var firstErr error
	s.entries.Range(func(key, value any) bool {
		entry := value.(*connEntry)
		entry.mu.Lock()
		handle := entry.handle
		entry.handle = nil
		entry.status = models.StatusDisconnected
		entry.mu.Unlock()
		if handle != nil {
			if err := handle.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		s.entries.Delete(key)
		return true
	})
	return firstErr
}

func (s *connectionService) lookup(id string) (*connEntry, error) {
	value, ok := s.entries.Load(id)
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "connection %q not found", id)
	}
	return value.(*connEntry), nil
}
