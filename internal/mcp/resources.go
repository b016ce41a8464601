package mcpserver

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
)

const runsResourceURI = "barrel://runs"

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(
		runsResourceURI,
		"Recent Seed Runs",
		mcp.WithResourceDescription("The 20 most recent seed runs across all plans"),
		mcp.WithMIMEType("application/json"),
	), s.handleRunsResource)
}

func (s *Server) handleRunsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runs, err := s.seeds.History("", 20)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      runsResourceURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
