package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("write_seed_plan",
		mcp.WithPromptDescription("Guide through writing a YAML seed plan for an existing database schema"),
		mcp.WithArgument("description",
			mcp.ArgumentDescription("The tables to seed and how they relate"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("driver",
			mcp.ArgumentDescription("Target driver: postgres, mysql, sqlite, mongodb or memory (default memory)"),
		),
	), s.handleSeedPlanPrompt)
}

func (s *Server) handleSeedPlanPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	description := req.Params.Arguments["description"]
	driver := req.Params.Arguments["driver"]
	if driver == "" {
		driver = "memory"
	}
	return &mcp.GetPromptResult{
		Description: "Write a seed plan",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Write a barrel seed plan for: %s. Follow these steps:

1. Start the file with a connection block using driver "%s"
2. Add one entry under tables per table. List columns in the order they should be generated
3. Give every column a value spec: "value" for a literal, or "gen" with one of
   uuid, sequence (start, step), now, cycle (choices), copy (from an earlier column)
4. For foreign keys use "ref: table.column"; barrel inserts one referenced row per record, before the record
5. Add generate steps for the leaf tables only; referenced tables are generated on demand
6. Check the plan with preview_plan, then seed it with run_plan (dryRun first)`, description, driver),
				},
			},
		},
	}, nil
}
