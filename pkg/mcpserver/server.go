package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sqlgate/sqlgate/pkg/services"
)

// Server exposes the gateway over the Model Context Protocol. Every
// tool is registered explicitly at construction; there is no runtime
// discovery.
type Server struct {
	mcp     *server.MCPServer
	conns   services.ConnectionService
	queries services.QueryService
	schemas services.SchemaService
	logger  services.Logger
	metrics services.MetricsCollector

	defaultPoolSize int
	forceReadOnly   bool
}

// Deps holds the services the tool handlers delegate to.
type Deps struct {
	Connections services.ConnectionService
	Queries     services.QueryService
	Schemas     services.SchemaService
	Logger      services.Logger
	Metrics     services.MetricsCollector

	// DefaultPoolSize is used when add_connection omits pool_size.
	DefaultPoolSize int
	// ForceReadOnly makes every registered connection read-only
	// regardless of the caller's read_only argument.
	ForceReadOnly bool
}

// New creates and configures the MCP server with all tools and
// resources registered.
func New(version string, deps Deps) *Server {
	s := &Server{
		conns:           deps.Connections,
		queries:         deps.Queries,
		schemas:         deps.Schemas,
		logger:          deps.Logger,
		metrics:         deps.Metrics,
		defaultPoolSize: deps.DefaultPoolSize,
		forceReadOnly:   deps.ForceReadOnly,
	}
	if s.defaultPoolSize <= 0 {
		s.defaultPoolSize = DefaultPoolSize
	}

	s.mcp = server.NewMCPServer(
		"sqlgate",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerConnectionTools()
	s.registerQueryTools()
	s.registerSchemaTools()
	s.registerResources()

	return s
}

// ServeStdio runs the server on stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	return server.ServeStdio(s.mcp)
}

type toolHandler = server.ToolHandlerFunc

// wrap is the shared handler shell: panic recovery, timing, and
// normalization of every failure into the error envelope. Handlers
// never return a bare Go error to the protocol layer.
func (s *Server) wrap(name string, handler toolHandler) toolHandler {
	return func(ctx context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		timer := s.metrics.StartTimer("tool_" + name)
		defer timer.Stop()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("tool handler panicked", "tool", name, "panic", r)
				s.metrics.IncrementCounter("tool_panics", "tool", name)
				result = errorResult(fmt.Errorf("internal error in %s", name))
				err = nil
			}
		}()

		result, err = handler(ctx, req)
		if err != nil {
			s.logger.Warn("tool failed", "tool", name, "error", err.Error())
			s.metrics.IncrementCounter("tool_errors", "tool", name)
			return errorResult(err), nil
		}
		return result, nil
	}
}
