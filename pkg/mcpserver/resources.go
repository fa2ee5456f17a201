package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sqlgate/sqlgate/pkg/models"
)

// historyResourceLimit caps how many executions a resource read
// returns.
const historyResourceLimit = 100

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(
		"sqlgate://connections",
		"Registered Connections",
		mcp.WithMIMEType("application/json"),
	), s.handleConnectionsResource)

	s.mcp.AddResource(mcp.NewResource(
		"sqlgate://history",
		"Query Execution History",
		mcp.WithMIMEType("application/json"),
	), s.handleHistoryResource)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"sqlgate://history/{connection_id}",
			"Query Execution History for a Connection",
		),
		s.handleHistoryResource,
	)
}

func (s *Server) handleConnectionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.conns.List(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleHistoryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	history := s.queries.History(historyResourceLimit)
	if connID := historyConnectionID(req.Params.URI); connID != "" {
		filtered := make([]models.QueryExecution, 0, len(history))
		for _, exec := range history {
			if exec.ConnectionID == connID {
				filtered = append(filtered, exec)
			}
		}
		history = filtered
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// historyConnectionID extracts the connection id from
// "sqlgate://history/{connection_id}", empty for the bare history URI.
func historyConnectionID(uri string) string {
	const prefix = "sqlgate://history/"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimSuffix(uri[len(prefix):], "/")
}
