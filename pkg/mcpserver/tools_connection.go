package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sqlgate/sqlgate/pkg/models"
)

// DefaultPoolSize is used when add_connection omits pool_size.
const DefaultPoolSize = 10

func (s *Server) registerConnectionTools() {
	s.mcp.AddTool(mcp.NewTool("add_connection",
		mcp.WithDescription("Register a database connection and open its pool"),
		mcp.WithString("connection_id", mcp.Description("Unique identifier for the connection"), mcp.Required()),
		mcp.WithString("host", mcp.Description("Database host (file path for sqlite)"), mcp.Required()),
		mcp.WithNumber("port", mcp.Description("Database port"), mcp.Required()),
		mcp.WithString("database", mcp.Description("Database name"), mcp.Required()),
		mcp.WithString("username", mcp.Description("Database user"), mcp.Required()),
		mcp.WithString("password", mcp.Description("Database password"), mcp.Required()),
		mcp.WithNumber("pool_size", mcp.Description("Connection pool size (default 10)")),
		mcp.WithBoolean("read_only", mcp.Description("Reject write statements on this connection")),
		mcp.WithString("server_type", mcp.Description("postgres, mysql, or sqlite (default postgres)")),
		mcp.WithString("ssl_mode", mcp.Description("SSL mode (default disable)")),
	), s.wrap("add_connection", s.handleAddConnection))

	s.mcp.AddTool(mcp.NewTool("test_connection",
		mcp.WithDescription("Ping a registered connection and report latency"),
		mcp.WithString("connection_id", mcp.Description("Connection to test"), mcp.Required()),
	), s.wrap("test_connection", s.handleTestConnection))

	s.mcp.AddTool(mcp.NewTool("remove_connection",
		mcp.WithDescription("Close a connection's pool and remove it from the registry"),
		mcp.WithString("connection_id", mcp.Description("Connection to remove"), mcp.Required()),
	), s.wrap("remove_connection", s.handleRemoveConnection))

	s.mcp.AddTool(mcp.NewTool("list_connections",
		mcp.WithDescription("List all registered connections with their status"),
	), s.wrap("list_connections", s.handleListConnections))

	s.mcp.AddTool(mcp.NewTool("list_healthy_connections",
		mcp.WithDescription("List only connections currently in a healthy state"),
	), s.wrap("list_healthy_connections", s.handleListHealthyConnections))
}

func (s *Server) handleAddConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, err := requireString(args, "connection_id")
	if err != nil {
		return nil, err
	}
	host, err := requireString(args, "host")
	if err != nil {
		return nil, err
	}
	database, err := requireString(args, "database")
	if err != nil {
		return nil, err
	}
	username, _ := args["username"].(string)
	password, _ := args["password"].(string)

	info, err := models.NewConnectionInfo(
		id,
		host,
		argInt(args, "port", 0),
		database,
		username,
		password,
		argInt(args, "pool_size", s.defaultPoolSize),
		argBool(args, "read_only", false) || s.forceReadOnly,
		req.GetString("server_type", ""),
		req.GetString("ssl_mode", ""),
	)
	if err != nil {
		return nil, err
	}

	summary, err := s.conns.Add(ctx, info)
	if err != nil {
		return nil, err
	}
	return okResult(fmt.Sprintf("connection %q added (%s)", id, info.ServerType), summary)
}

func (s *Server) handleTestConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req.GetArguments(), "connection_id")
	if err != nil {
		return nil, err
	}

	latency, err := s.conns.Test(ctx, id)
	if err != nil {
		return nil, err
	}
	return okResult(
		fmt.Sprintf("connection %q is healthy (%.1fms)", id, float64(latency.Microseconds())/1000),
		map[string]any{
			"connection_id": id,
			"status":        string(models.StatusConnected),
			"latency_ms":    float64(latency.Microseconds()) / 1000,
		},
	)
}

func (s *Server) handleRemoveConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req.GetArguments(), "connection_id")
	if err != nil {
		return nil, err
	}

	if err := s.conns.Remove(ctx, id); err != nil {
		return nil, err
	}
	return okResult(fmt.Sprintf("connection %q removed", id), map[string]any{"connection_id": id})
}

func (s *Server) handleListConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries := s.conns.List()
	return okResult(fmt.Sprintf("%d connection(s) registered", len(summaries)), summaries)
}

func (s *Server) handleListHealthyConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries := s.conns.ListHealthy()
	return okResult(fmt.Sprintf("%d healthy connection(s)", len(summaries)), summaries)
}
