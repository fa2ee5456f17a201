package mcpserver

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sqlgate/sqlgate/pkg/models"
	"github.com/sqlgate/sqlgate/pkg/services"
)

func callReq(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

type mockLogger struct{}

func (l *mockLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (l *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (l *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockTimer struct{}

func (t *mockTimer) Stop() time.Duration { return 0 }

type mockMetrics struct {
	counters map[string]int
}

func newMockMetrics() *mockMetrics { return &mockMetrics{counters: make(map[string]int)} }

func (m *mockMetrics) IncrementCounter(name string, labels ...string)               { m.counters[name]++ }
func (m *mockMetrics) RecordHistogram(name string, value float64, labels ...string) {}
func (m *mockMetrics) RecordGauge(name string, value float64, labels ...string)     {}
func (m *mockMetrics) StartTimer(name string) services.Timer                        { return &mockTimer{} }

// mockConnService records calls and returns canned values.
type mockConnService struct {
	summary   *models.ConnectionSummary
	summaries []models.ConnectionSummary
	latency   time.Duration
	err       error

	addedInfo *models.ConnectionInfo
	removedID string
	testedID  string
}

func (m *mockConnService) Add(ctx context.Context, info *models.ConnectionInfo) (*models.ConnectionSummary, error) {
	m.addedInfo = info
	return m.summary, m.err
}

func (m *mockConnService) Test(ctx context.Context, id string) (time.Duration, error) {
	m.testedID = id
	return m.latency, m.err
}

func (m *mockConnService) Remove(ctx context.Context, id string) error {
	m.removedID = id
	return m.err
}

func (m *mockConnService) Resolve(ctx context.Context, id string) (*services.ResolvedConnection, error) {
	return nil, m.err
}

func (m *mockConnService) MarkError(id string, err error) {}

func (m *mockConnService) List() []models.ConnectionSummary        { return m.summaries }
func (m *mockConnService) ListHealthy() []models.ConnectionSummary { return m.summaries }

func (m *mockConnService) StartHealthLoop(ctx context.Context, interval time.Duration) {}
func (m *mockConnService) Close() error                                                { return nil }

// mockQueryService records the last request of each shape.
type mockQueryService struct {
	queryResult *models.QueryResult
	updateRes   *models.UpdateResult
	txResult    *models.TransactionResult
	batchRes    *models.BatchResult
	explainRes  *models.ExplainResult
	history     []models.QueryExecution
	err         error

	lastQueryReq *models.QueryRequest
	lastTxReq    *models.TransactionRequest
	lastBatchReq *models.BatchRequest
}

func (m *mockQueryService) ExecuteQuery(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error) {
	m.lastQueryReq = req
	return m.queryResult, m.err
}

func (m *mockQueryService) ExecuteUpdate(ctx context.Context, req *models.UpdateRequest) (*models.UpdateResult, error) {
	return m.updateRes, m.err
}

func (m *mockQueryService) ExecuteTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TransactionResult, error) {
	m.lastTxReq = req
	return m.txResult, m.err
}

func (m *mockQueryService) ExecuteBatch(ctx context.Context, req *models.BatchRequest) (*models.BatchResult, error) {
	m.lastBatchReq = req
	return m.batchRes, m.err
}

func (m *mockQueryService) Explain(ctx context.Context, req *models.ExplainRequest) (*models.ExplainResult, error) {
	return m.explainRes, m.err
}

func (m *mockQueryService) History(limit int) []models.QueryExecution { return m.history }

type mockSchemaService struct {
	tableSchema *models.TableSchema
	tables      []models.TableInfo
	schemas     []string
	stats       *models.TableStats
	size        *models.DatabaseSize
	err         error

	lastSchemaArg string
}

func (m *mockSchemaService) GetTableSchema(ctx context.Context, connectionID, table, schema string) (*models.TableSchema, error) {
	m.lastSchemaArg = schema
	return m.tableSchema, m.err
}

func (m *mockSchemaService) ListTables(ctx context.Context, connectionID, schema string) ([]models.TableInfo, error) {
	m.lastSchemaArg = schema
	return m.tables, m.err
}

func (m *mockSchemaService) ListSchemas(ctx context.Context, connectionID string) ([]string, error) {
	return m.schemas, m.err
}

func (m *mockSchemaService) GetTableStats(ctx context.Context, connectionID, table, schema string) (*models.TableStats, error) {
	return m.stats, m.err
}

func (m *mockSchemaService) GetDatabaseSize(ctx context.Context, connectionID string) (*models.DatabaseSize, error) {
	return m.size, m.err
}

func newTestServer(conns *mockConnService, queries *mockQueryService, schemas *mockSchemaService) *Server {
	return New("test", Deps{
		Connections: conns,
		Queries:     queries,
		Schemas:     schemas,
		Logger:      &mockLogger{},
		Metrics:     newMockMetrics(),
	})
}
