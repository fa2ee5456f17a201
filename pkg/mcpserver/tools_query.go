package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sqlgate/sqlgate/pkg/errors"
	"github.com/sqlgate/sqlgate/pkg/models"
)

func (s *Server) registerQueryTools() {
	s.mcp.AddTool(mcp.NewTool("execute_query",
		mcp.WithDescription("Run a read query against a registered connection"),
		mcp.WithString("connection_id", mcp.Description("Connection to query"), mcp.Required()),
		mcp.WithString("query", mcp.Description("SQL statement"), mcp.Required()),
		mcp.WithArray("params", mcp.Description("Positional query parameters")),
		mcp.WithNumber("max_rows", mcp.Description("Cap on returned rows; excess rows are truncated")),
		mcp.WithNumber("timeout", mcp.Description("Timeout in seconds (default 30)")),
	), s.wrap("execute_query", s.handleExecuteQuery))

	s.mcp.AddTool(mcp.NewTool("execute_update",
		mcp.WithDescription("Run a write statement (INSERT/UPDATE/DELETE) and report affected rows"),
		mcp.WithString("connection_id", mcp.Description("Connection to write to"), mcp.Required()),
		mcp.WithString("query", mcp.Description("SQL statement"), mcp.Required()),
		mcp.WithArray("params", mcp.Description("Positional statement parameters")),
		mcp.WithNumber("timeout", mcp.Description("Timeout in seconds (default 30)")),
	), s.wrap("execute_update", s.handleExecuteUpdate))

	s.mcp.AddTool(mcp.NewTool("execute_transaction",
		mcp.WithDescription("Run multiple statements atomically; any failure rolls back all of them"),
		mcp.WithString("connection_id", mcp.Description("Connection to use"), mcp.Required()),
		mcp.WithArray("queries", mcp.Description("Statements, each a string or an object {query, params}"), mcp.Required()),
		mcp.WithNumber("timeout", mcp.Description("Timeout in seconds (default 30)")),
	), s.wrap("execute_transaction", s.handleExecuteTransaction))

	s.mcp.AddTool(mcp.NewTool("execute_batch",
		mcp.WithDescription("Run one statement once per parameter set, fail-fast and non-atomic"),
		mcp.WithString("connection_id", mcp.Description("Connection to use"), mcp.Required()),
		mcp.WithString("query", mcp.Description("SQL statement with parameter placeholders"), mcp.Required()),
		mcp.WithArray("params_list", mcp.Description("One parameter array per execution"), mcp.Required()),
		mcp.WithNumber("timeout", mcp.Description("Timeout in seconds (default 30)")),
	), s.wrap("execute_batch", s.handleExecuteBatch))

	s.mcp.AddTool(mcp.NewTool("explain_query",
		mcp.WithDescription("Return the execution plan for a statement without running it (unless analyze)"),
		mcp.WithString("connection_id", mcp.Description("Connection to use"), mcp.Required()),
		mcp.WithString("query", mcp.Description("SQL statement to explain"), mcp.Required()),
		mcp.WithBoolean("analyze", mcp.Description("Actually execute the statement and report real timings")),
	), s.wrap("explain_query", s.handleExplainQuery))
}

func (s *Server) handleExecuteQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "connection_id")
	if err != nil {
		return nil, err
	}
	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}

	result, err := s.queries.ExecuteQuery(ctx, &models.QueryRequest{
		ConnectionID: id,
		Query:        query,
		Parameters:   argParams(args, "params"),
		MaxRows:      argInt(args, "max_rows", 0),
		Timeout:      argTimeout(args, "timeout"),
	})
	if err != nil {
		return nil, err
	}

	content := fmt.Sprintf("%d row(s) in %s", result.RowCount, result.ExecutionTime)
	if result.Truncated {
		content += " (truncated)"
	}
	return okResult(content, result)
}

func (s *Server) handleExecuteUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "connection_id")
	if err != nil {
		return nil, err
	}
	statement, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}

	result, err := s.queries.ExecuteUpdate(ctx, &models.UpdateRequest{
		ConnectionID: id,
		Statement:    statement,
		Parameters:   argParams(args, "params"),
		Timeout:      argTimeout(args, "timeout"),
	})
	if err != nil {
		return nil, err
	}
	return okResult(fmt.Sprintf("%d row(s) affected", result.RowsAffected), result)
}

func (s *Server) handleExecuteTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "connection_id")
	if err != nil {
		return nil, err
	}

	statements, err := parseTransactionStatements(args["queries"])
	if err != nil {
		return nil, err
	}

	result, err := s.queries.ExecuteTransaction(ctx, &models.TransactionRequest{
		ConnectionID: id,
		Statements:   statements,
		Timeout:      argTimeout(args, "timeout"),
	})
	if err != nil {
		return nil, err
	}
	return okResult(fmt.Sprintf("transaction committed, %d statement(s)", len(result.Results)), result)
}

func (s *Server) handleExecuteBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "connection_id")
	if err != nil {
		return nil, err
	}
	statement, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}
	paramSets, err := parseParamSets(args["params_list"])
	if err != nil {
		return nil, err
	}

	result, err := s.queries.ExecuteBatch(ctx, &models.BatchRequest{
		ConnectionID: id,
		Statement:    statement,
		ParamSets:    paramSets,
		Timeout:      argTimeout(args, "timeout"),
	})
	if err != nil {
		// Fail-fast batches still report how far they got.
		if result != nil {
			return partialBatchResult(err, result), nil
		}
		return nil, err
	}
	return okResult(fmt.Sprintf("batch completed, %d set(s)", result.Completed), result)
}

func (s *Server) handleExplainQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "connection_id")
	if err != nil {
		return nil, err
	}
	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}

	result, err := s.queries.Explain(ctx, &models.ExplainRequest{
		ConnectionID: id,
		Query:        query,
		Analyze:      argBool(args, "analyze", false),
		Timeout:      argTimeout(args, "timeout"),
	})
	if err != nil {
		return nil, err
	}

	content := "execution plan"
	if result.Analyzed {
		content = "execution plan (analyzed)"
	}
	return okResult(content, result)
}

// parseTransactionStatements accepts each element as either a bare
// SQL string or an object {query, params}.
func parseTransactionStatements(raw any) ([]models.TransactionStatement, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, errors.New(errors.CodeInvalidRequest, "queries must be a non-empty array")
	}

	statements := make([]models.TransactionStatement, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			statements = append(statements, models.TransactionStatement{Query: v})
		case map[string]any:
			query, _ := v["query"].(string)
			if query == "" {
				return nil, errors.Newf(errors.CodeInvalidRequest, "queries[%d] is missing query", i)
			}
			params, _ := v["params"].([]any)
			statements = append(statements, models.TransactionStatement{Query: query, Parameters: params})
		default:
			return nil, errors.Newf(errors.CodeInvalidRequest, "queries[%d] must be a string or an object", i)
		}
	}
	return statements, nil
}

func parseParamSets(raw any) ([][]any, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, errors.New(errors.CodeInvalidRequest, "params_list must be a non-empty array")
	}

	sets := make([][]any, 0, len(items))
	for i, item := range items {
		set, ok := item.([]any)
		if !ok {
			return nil, errors.Newf(errors.CodeInvalidRequest, "params_list[%d] must be an array", i)
		}
		sets = append(sets, set)
	}
	return sets, nil
}
