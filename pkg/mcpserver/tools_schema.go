package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSchemaTools() {
	s.mcp.AddTool(mcp.NewTool("get_table_schema",
		mcp.WithDescription("Describe a table: columns, indexes, primary keys, and row estimate"),
		mcp.WithString("connection_id", mcp.Description("Connection to inspect"), mcp.Required()),
		mcp.WithString("table_name", mcp.Description("Table to describe"), mcp.Required()),
		mcp.WithString("schema_name", mcp.Description("Schema (defaults to the engine's default schema)")),
	), s.wrap("get_table_schema", s.handleGetTableSchema))

	s.mcp.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List tables and views in a schema"),
		mcp.WithString("connection_id", mcp.Description("Connection to inspect"), mcp.Required()),
		mcp.WithString("schema_name", mcp.Description("Schema (defaults to the engine's default schema)")),
	), s.wrap("list_tables", s.handleListTables))

	s.mcp.AddTool(mcp.NewTool("list_schemas",
		mcp.WithDescription("List the non-system schemas of the database"),
		mcp.WithString("connection_id", mcp.Description("Connection to inspect"), mcp.Required()),
	), s.wrap("list_schemas", s.handleListSchemas))

	s.mcp.AddTool(mcp.NewTool("get_table_stats",
		mcp.WithDescription("Report row estimate and storage usage for a table"),
		mcp.WithString("connection_id", mcp.Description("Connection to inspect"), mcp.Required()),
		mcp.WithString("table_name", mcp.Description("Table to measure"), mcp.Required()),
		mcp.WithString("schema_name", mcp.Description("Schema (defaults to the engine's default schema)")),
	), s.wrap("get_table_stats", s.handleGetTableStats))

	s.mcp.AddTool(mcp.NewTool("get_database_size",
		mcp.WithDescription("Report the total on-disk size of the database"),
		mcp.WithString("connection_id", mcp.Description("Connection to inspect"), mcp.Required()),
	), s.wrap("get_database_size", s.handleGetDatabaseSize))
}

func (s *Server) handleGetTableSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "connection_id")
	if err != nil {
		return nil, err
	}
	table, err := requireString(args, "table_name")
	if err != nil {
		return nil, err
	}

	schema, err := s.schemas.GetTableSchema(ctx, id, table, req.GetString("schema_name", ""))
	if err != nil {
		return nil, err
	}
	return okResult(
		fmt.Sprintf("%s.%s: %d column(s), %d index(es)", schema.Schema, schema.Table, len(schema.Columns), len(schema.Indexes)),
		schema,
	)
}

func (s *Server) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "connection_id")
	if err != nil {
		return nil, err
	}

	tables, err := s.schemas.ListTables(ctx, id, req.GetString("schema_name", ""))
	if err != nil {
		return nil, err
	}
	return okResult(fmt.Sprintf("%d table(s)", len(tables)), tables)
}

func (s *Server) handleListSchemas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req.GetArguments(), "connection_id")
	if err != nil {
		return nil, err
	}

	schemas, err := s.schemas.ListSchemas(ctx, id)
	if err != nil {
		return nil, err
	}
	return okResult(fmt.Sprintf("%d schema(s)", len(schemas)), schemas)
}

func (s *Server) handleGetTableStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "connection_id")
	if err != nil {
		return nil, err
	}
	table, err := requireString(args, "table_name")
	if err != nil {
		return nil, err
	}

	stats, err := s.schemas.GetTableStats(ctx, id, table, req.GetString("schema_name", ""))
	if err != nil {
		return nil, err
	}
	return okResult(
		fmt.Sprintf("%s.%s: ~%d row(s), %d byte(s)", stats.Schema, stats.Table, stats.RowEstimate, stats.TotalBytes),
		stats,
	)
}

func (s *Server) handleGetDatabaseSize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(req.GetArguments(), "connection_id")
	if err != nil {
		return nil, err
	}

	size, err := s.schemas.GetDatabaseSize(ctx, id)
	if err != nil {
		return nil, err
	}
	return okResult(fmt.Sprintf("%s is %s", size.Database, size.Pretty), size)
}
