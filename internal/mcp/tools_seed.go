package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"barrel/internal/plan"
	"barrel/internal/service"
)

func (s *Server) registerSeedTools() {
	s.mcp.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List the tables a seed plan defines, with each column's value spec, in declaration order"),
		mcp.WithString("planPath", mcp.Description("Path to the YAML seed plan"), mcp.Required()),
	), s.handleListTables)

	s.mcp.AddTool(mcp.NewTool("preview_plan",
		mcp.WithDescription("Generate a seed plan in memory and return the batches and rows it would insert. Nothing is written."),
		mcp.WithString("planPath", mcp.Description("Path to the YAML seed plan"), mcp.Required()),
	), s.handlePreviewPlan)

	s.mcp.AddTool(mcp.NewTool("run_plan",
		mcp.WithDescription("🛑 DESTRUCTIVE: Seed the plan's target database. Set dryRun to insert into memory only."),
		mcp.WithString("planPath", mcp.Description("Path to the YAML seed plan"), mcp.Required()),
		mcp.WithBoolean("dryRun", mcp.Description("Insert into an in-memory store instead of the plan's connection (default false)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRunPlan)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent seed runs, newest first"),
		mcp.WithString("planPath", mcp.Description("Only runs of this plan (optional)")),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20)")),
	), s.handleListRuns)
}

// tableInfo is the list_tables view of one plan table.
type tableInfo struct {
	Name    string        `json:"name"`
	Table   string        `json:"table"`
	Columns []plan.Column `json:"columns"`
}

func (s *Server) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("planPath", "")
	if path == "" {
		return nil, fmt.Errorf("planPath is required")
	}
	p, err := plan.Load(path)
	if err != nil {
		return nil, err
	}

	tables := make([]tableInfo, len(p.Tables))
	for i, t := range p.Tables {
		table := t.Table
		if table == "" {
			table = t.Name
		}
		tables[i] = tableInfo{Name: t.Name, Table: table, Columns: t.Columns}
	}
	return jsonResult(tables)
}

func (s *Server) handlePreviewPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("planPath", "")
	if path == "" {
		return nil, fmt.Errorf("planPath is required")
	}
	result, err := s.seeds.Preview(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	return jsonResult(result)
}

func (s *Server) handleRunPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("planPath", "")
	if path == "" {
		return nil, fmt.Errorf("planPath is required")
	}
	dryRun := req.GetBool("dryRun", false)

	result, err := s.seeds.RunWithTrigger(ctx, path, dryRun, service.TriggerMCP)
	if err != nil {
		if result == nil {
			return nil, fmt.Errorf("run plan: %w", err)
		}
		// partial results are still useful to the agent
		out, jerr := jsonResult(result)
		if jerr != nil {
			return nil, jerr
		}
		out.IsError = true
		out.Content = append(out.Content, mcp.TextContent{Type: "text", Text: err.Error()})
		return out, nil
	}
	return jsonResult(result)
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("planPath", "")
	limit := req.GetInt("limit", 20)

	runs, err := s.seeds.History(path, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		return textResult("No runs recorded"), nil
	}
	return jsonResult(runs)
}
