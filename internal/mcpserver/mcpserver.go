// Package mcpserver exposes the RPC facade as an MCP stdio tool server,
// so an agent runtime can manage cron jobs as ordinary tool calls instead
// of needing its own crontab-shaped client.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/JakkuSakura/openclaw/internal/cron"
	"github.com/JakkuSakura/openclaw/internal/rpc"
	"github.com/JakkuSakura/openclaw/internal/security"
)

// Server wraps an rpc.Facade as a set of MCP tools, served over stdio.
type Server struct {
	facade *rpc.Facade
	logger *slog.Logger
	mcp    *server.MCPServer
}

// New builds a Server around facade. logger may be nil (falls back to
// slog.Default()).
func New(facade *rpc.Facade, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		facade: facade,
		logger: logger,
		mcp:    server.NewMCPServer("openclaw-cron", "1.0.0"),
	}
	s.registerTools()
	return s
}

// ServeStdio runs the MCP server over stdin/stdout until the transport
// closes. It blocks.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("cron_list",
		mcp.WithDescription("List cron jobs, optionally filtered and paginated."),
		mcp.WithString("query", mcp.Description("Case-insensitive substring match against job name")),
		mcp.WithString("enabled", mcp.Description("Filter by state: all, enabled, disabled")),
		mcp.WithNumber("limit", mcp.Description("Maximum jobs to return (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Offset into the sorted result set")),
		mcp.WithString("sortBy", mcp.Description("nextRunAtMs, updatedAtMs, or name")),
		mcp.WithString("sortDir", mcp.Description("asc or desc")),
	), s.handleList)

	s.mcp.AddTool(mcp.NewTool("cron_add",
		mcp.WithDescription("Create a new cron job from a JSON job specification."),
		mcp.WithString("job", mcp.Required(), mcp.Description("JSON object: name, description, enabled, agentId, sessionKey, deleteAfterRun, schedule{kind,expr,tz,everyMs,anchorMs,at}, sessionTarget, wakeMode, payload{kind,text,message,...}, delivery{mode,channel,to,bestEffort}")),
	), s.handleAdd)

	s.mcp.AddTool(mcp.NewTool("cron_update",
		mcp.WithDescription("Apply a partial patch to an existing job."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job ID")),
		mcp.WithString("patch", mcp.Required(), mcp.Description("JSON object with the same shape as cron_add's job, any subset of fields")),
	), s.handleUpdate)

	s.mcp.AddTool(mcp.NewTool("cron_remove",
		mcp.WithDescription("Delete a cron job by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job ID")),
	), s.handleRemove)

	s.mcp.AddTool(mcp.NewTool("cron_run",
		mcp.WithDescription("Force-run a job immediately, bypassing its schedule."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job ID")),
	), s.handleRun)

	s.mcp.AddTool(mcp.NewTool("cron_runs",
		mcp.WithDescription("Fetch best-effort run history for a job, reconstructed from system logs."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job ID")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 50)")),
	), s.handleRuns)

	s.mcp.AddTool(mcp.NewTool("cron_status",
		mcp.WithDescription("Summarize the crontab's overall state: whether it is enabled and how many jobs it holds."),
	), s.handleStatus)

	s.mcp.AddTool(mcp.NewTool("scheduler_status",
		mcp.WithDescription("Capture the host's scheduling diagnostics: crontab -l plus systemctl timer and unit listings."),
	), s.handleSchedulerStatus)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func numberArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// validateJSONArg bounds a JSON document argument before it is decoded,
// so an oversized or pathologically nested tool call is rejected up
// front rather than handed to json.Unmarshal.
func validateJSONArg(raw []byte) error {
	if err := security.ValidateMessageSize(raw, 0); err != nil {
		return err
	}
	return security.ValidateJSONDepth(raw, 0)
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	result, rpcErr := s.facade.List(ctx, rpc.ListParams{
		Query:   stringArg(args, "query"),
		Enabled: stringArg(args, "enabled"),
		Limit:   numberArg(args, "limit"),
		Offset:  numberArg(args, "offset"),
		SortBy:  stringArg(args, "sortBy"),
		SortDir: stringArg(args, "sortDir"),
	})
	if rpcErr != nil {
		return mcp.NewToolResultError(rpcErr.Error()), nil
	}
	return jsonResult(result)
}

// jobSpec mirrors the JSON shape of rpc.AddParams/JobPatch for tool
// inputs, since MCP tool arguments arrive as a single decoded JSON
// document rather than typed Go values.
type jobSpec struct {
	Name           *string             `json:"name,omitempty"`
	Description    *string             `json:"description,omitempty"`
	Enabled        *bool               `json:"enabled,omitempty"`
	AgentID        *string             `json:"agentId,omitempty"`
	SessionKey     *string             `json:"sessionKey,omitempty"`
	DeleteAfterRun *bool               `json:"deleteAfterRun,omitempty"`
	Schedule       *cron.Schedule      `json:"schedule,omitempty"`
	SessionTarget  *cron.SessionTarget `json:"sessionTarget,omitempty"`
	WakeMode       *cron.WakeMode      `json:"wakeMode,omitempty"`
	Payload        *cron.Payload       `json:"payload,omitempty"`
	Delivery       *cron.Delivery      `json:"delivery,omitempty"`
}

func (s *Server) handleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	raw := []byte(stringArg(args, "job"))
	if err := validateJSONArg(raw); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid job JSON: %v", err)), nil
	}
	var spec jobSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid job JSON: %v", err)), nil
	}

	params := rpc.AddParams{}
	if spec.Name != nil {
		params.Name = *spec.Name
	}
	if spec.Description != nil {
		params.Description = *spec.Description
	}
	params.Enabled = spec.Enabled
	if spec.AgentID != nil {
		params.AgentID = *spec.AgentID
	}
	if spec.SessionKey != nil {
		params.SessionKey = *spec.SessionKey
	}
	if spec.DeleteAfterRun != nil {
		params.DeleteAfterRun = *spec.DeleteAfterRun
	}
	if spec.Schedule != nil {
		params.Schedule = *spec.Schedule
	}
	if spec.SessionTarget != nil {
		params.SessionTarget = *spec.SessionTarget
	}
	if spec.WakeMode != nil {
		params.WakeMode = *spec.WakeMode
	}
	if spec.Payload != nil {
		params.Payload = *spec.Payload
	}
	params.Delivery = spec.Delivery

	job, rpcErr := s.facade.Add(ctx, params)
	if rpcErr != nil {
		return mcp.NewToolResultError(rpcErr.Error()), nil
	}
	return jsonResult(job)
}

func (s *Server) handleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := stringArg(args, "id")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	raw := []byte(stringArg(args, "patch"))
	if err := validateJSONArg(raw); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid patch JSON: %v", err)), nil
	}
	var spec jobSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid patch JSON: %v", err)), nil
	}

	patch := rpc.JobPatch{
		Name:           spec.Name,
		Description:    spec.Description,
		Enabled:        spec.Enabled,
		AgentID:        spec.AgentID,
		SessionKey:     spec.SessionKey,
		DeleteAfterRun: spec.DeleteAfterRun,
		Schedule:       spec.Schedule,
		SessionTarget:  spec.SessionTarget,
		WakeMode:       spec.WakeMode,
		Payload:        spec.Payload,
		Delivery:       spec.Delivery,
	}

	job, rpcErr := s.facade.Update(ctx, rpc.UpdateParams{ID: id, Patch: patch})
	if rpcErr != nil {
		return mcp.NewToolResultError(rpcErr.Error()), nil
	}
	return jsonResult(job)
}

func (s *Server) handleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	result, rpcErr := s.facade.Remove(ctx, stringArg(args, "id"))
	if rpcErr != nil {
		return mcp.NewToolResultError(rpcErr.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	result, rpcErr := s.facade.Run(ctx, rpc.RunParams{ID: stringArg(args, "id"), Mode: cron.RunModeForce})
	if rpcErr != nil {
		return mcp.NewToolResultError(rpcErr.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	result, rpcErr := s.facade.Runs(ctx, rpc.RunsParams{ID: stringArg(args, "id"), Limit: numberArg(args, "limit")})
	if rpcErr != nil {
		return mcp.NewToolResultError(rpcErr.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, rpcErr := s.facade.Status(ctx)
	if rpcErr != nil {
		return mcp.NewToolResultError(rpcErr.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleSchedulerStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.facade.SchedulerStatus(ctx))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
