package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/infrastructure/dialect"
	"github.com/sqlgate/sqlgate/pkg/infrastructure/pool"
	"github.com/sqlgate/sqlgate/pkg/models"
)

// mockLogger implements Logger and remembers nothing.
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// mockMetrics implements MetricsCollector and counts calls.
type mockMetrics struct {
	mu       sync.Mutex
	counters map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{counters: make(map[string]int)}
}

func (m *mockMetrics) IncrementCounter(name string, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

func (m *mockMetrics) RecordHistogram(name string, value float64, labels ...string) {}
func (m *mockMetrics) RecordGauge(name string, value float64, labels ...string)     {}

func (m *mockMetrics) StartTimer(name string) Timer { return &mockTimer{start: time.Now()} }

func (m *mockMetrics) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

type mockTimer struct{ start time.Time }

func (t *mockTimer) Stop() time.Duration { return time.Since(t.start) }

// mockHandle implements pool.Handle over an injected *sql.DB.
type mockHandle struct {
	db      *sql.DB
	dialect dialect.Dialect
	pingErr error
	closed  bool
	mu      sync.Mutex
}

func (h *mockHandle) DB() *sql.DB              { return h.db }
func (h *mockHandle) Dialect() dialect.Dialect { return h.dialect }
func (h *mockHandle) Stats() sql.DBStats       { return sql.DBStats{} }

func (h *mockHandle) Ping(ctx context.Context) (time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pingErr != nil {
		return 0, h.pingErr
	}
	return time.Microsecond, nil
}

func (h *mockHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *mockHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// mockOpener implements pool.Opener, handing out mockHandles.
type mockOpener struct {
	mu      sync.Mutex
	openErr error
	delay   time.Duration
	opened  int
	handles []*mockHandle
}

func (o *mockOpener) Open(ctx context.Context, info *models.ConnectionInfo) (pool.Handle, error) {
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened++
	if o.openErr != nil {
		return nil, o.openErr
	}
	h := &mockHandle{dialect: &dialect.Postgres{}}
	o.handles = append(o.handles, h)
	return h, nil
}

func (o *mockOpener) openedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened
}

// stubConns implements ConnectionService with a single canned entry.
type stubConns struct {
	conn       *ResolvedConnection
	resolveErr error
	errored    map[string]error
}

func newStubConns(conn *ResolvedConnection) *stubConns {
	return &stubConns{conn: conn, errored: make(map[string]error)}
}

func (s *stubConns) Add(ctx context.Context, info *models.ConnectionInfo) (*models.ConnectionSummary, error) {
	return nil, errors.New(errors.CodeInternal, "not implemented")
}

func (s *stubConns) Test(ctx context.Context, id string) (time.Duration, error) { return 0, nil }
func (s *stubConns) Remove(ctx context.Context, id string) error                { return nil }

func (s *stubConns) Resolve(ctx context.Context, id string) (*ResolvedConnection, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return s.conn, nil
}

func (s *stubConns) MarkError(id string, err error) { s.errored[id] = err }

func (s *stubConns) List() []models.ConnectionSummary        { return nil }
func (s *stubConns) ListHealthy() []models.ConnectionSummary { return nil }

func (s *stubConns) StartHealthLoop(ctx context.Context, interval time.Duration) {}
func (s *stubConns) Close() error                                                { return nil }
