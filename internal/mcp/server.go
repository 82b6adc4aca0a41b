// Package mcp exposes the timer lifecycle as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mpolski/tm/internal/timer"
)

// Server wraps the timer service and exposes it as MCP tools.
type Server struct {
	timers *timer.Service
}

// NewServer creates the MCP server wrapper around svc.
func NewServer(svc *timer.Service) *Server {
	return &Server{timers: svc}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("tm", "1.0.0", server.WithToolCapabilities(true))

	// Register all tools
	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.getCurrentTimerTool())
	srv.AddTool(s.startTimerTool())
	srv.AddTool(s.stopTimerTool())
	srv.AddTool(s.deleteTimeEntryTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// errorPayload is the structured failure shape every tool returns.
type errorPayload struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Timer   *timer.Info `json:"timer,omitempty"`
}

// toolError renders a failure as the structured payload callers expect.
// Domain errors keep their code (and the conflicting timer, when one is
// attached); anything else becomes INTERNAL_ERROR.
func toolError(err error) *mcp.CallToolResult {
	out := errorPayload{Error: timer.CodeInternalError, Message: err.Error()}
	var terr *timer.Error
	if errors.As(err, &terr) {
		out.Error = terr.Code
		out.Message = terr.Message
		out.Timer = terr.Timer
	}
	data, merr := json.Marshal(out)
	if merr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", out.Error, out.Message))
	}
	return mcp.NewToolResultError(string(data))
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("list_projects",
		mcp.WithDescription("List all projects available for time tracking. Returns a JSON array of projects with id and name. Use the id as project_id when starting a timer."),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.timers.Projects(ctx)
	if err != nil {
		return toolError(err), nil
	}

	type projectOut struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	out := make([]projectOut, len(projects))
	for i, p := range projects {
		out[i] = projectOut{ID: p.ID, Name: p.Name}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal projects: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// get_current_timer
func (s *Server) getCurrentTimerTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("get_current_timer",
		mcp.WithDescription("Get the currently running timer, if any. Returns is_running plus the timer's task, project, start time, and elapsed time when one is active. State is read fresh from TMetric on every call."),
	)
	return tool, s.handleGetCurrentTimer
}

func (s *Server) handleGetCurrentTimer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.timers.CurrentTimer(ctx)
	if err != nil {
		return toolError(err), nil
	}

	data, err := json.Marshal(info)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal timer info: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// start_timer
func (s *Server) startTimerTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("start_timer",
		mcp.WithDescription("Start a new timer on a project. Fails with TIMER_ALREADY_RUNNING (including the running timer's details) if a timer is active; stop it first. When task_url points at a GitHub or GitLab issue, the entry is linked to that issue."),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project id from list_projects")),
		mcp.WithString("task_name", mcp.Required(), mcp.Description("Short description of the task being worked on")),
		mcp.WithString("task_url", mcp.Description("Optional issue URL (GitHub or GitLab) to link the entry to")),
	)
	return tool, s.handleStartTimer
}

func (s *Server) handleStartTimer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawID, ok := request.GetArguments()["project_id"]
	if !ok {
		return mcp.NewToolResultError("missing required parameter: project_id"), nil
	}
	// JSON numbers arrive as float64; reject fractional ids instead of truncating.
	idNum, ok := rawID.(float64)
	if !ok || idNum != math.Trunc(idNum) {
		return mcp.NewToolResultError("invalid project_id: expected a whole number"), nil
	}

	taskName, err := request.RequireString("task_name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: task_name"), nil
	}
	taskURL := request.GetString("task_url", "")

	res, err := s.timers.Start(ctx, int(idNum), taskName, taskURL)
	if err != nil {
		return toolError(err), nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal start result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stop_timer
func (s *Server) stopTimerTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("stop_timer",
		mcp.WithDescription("Stop the currently running timer. Returns the time spent (e.g. \"1h30m\") along with start and end times. Fails with NO_TIMER_RUNNING if no timer is active."),
	)
	return tool, s.handleStopTimer
}

func (s *Server) handleStopTimer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.timers.Stop(ctx)
	if err != nil {
		return toolError(err), nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal stop result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// delete_time_entry
func (s *Server) deleteTimeEntryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("delete_time_entry",
		mcp.WithDescription("Delete a time entry. Mode \"current\" (default) deletes the running timer. Mode \"last\" deletes today's most recently started entry, but only within 5 minutes of it stopping; older entries must be removed in the TMetric web app."),
		mcp.WithString("mode",
			mcp.Description("Which entry to delete: \"current\" for the running timer, \"last\" for today's most recent entry"),
			mcp.Enum(timer.DeleteModeCurrent, timer.DeleteModeLast),
			mcp.DefaultString(timer.DeleteModeCurrent),
		),
	)
	return tool, s.handleDeleteTimeEntry
}

func (s *Server) handleDeleteTimeEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode := request.GetString("mode", timer.DeleteModeCurrent)

	res, err := s.timers.Delete(ctx, mode)
	if err != nil {
		return toolError(err), nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal delete result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
