// Package mcpserver exposes deltime to MCP clients over stdio. It is another
// task producer next to the configuration file, removable media and the
// HTTP gateway.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/deltime/internal/history"
	"github.com/flemzord/deltime/internal/task"
)

// Tasks lists the registered jobs.
type Tasks interface {
	List() []*task.Job
}

// Producer arms task definitions.
type Producer interface {
	Register(ctx context.Context, defs []task.Definition, source string) (task.Summary, error)
}

// HistoryReader returns recent history entries.
type HistoryReader interface {
	Recent(ctx context.Context, n int) ([]history.Entry, error)
}

// Deps are the collaborators the tools operate on. A nil History hides the
// recent_history tool.
type Deps struct {
	Tasks    Tasks
	Producer Producer
	History  HistoryReader
	Version  string
	Logger   *slog.Logger
}

// Server is the MCP server.
type Server struct {
	deps   Deps
	logger *slog.Logger
	mcp    *server.MCPServer
}

// New creates a Server with its tools registered.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deps:   deps,
		logger: logger,
		mcp: server.NewMCPServer("deltime", deps.Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
			server.WithInstructions("deltime deletes files and directories on a schedule. "+
				"Use list_tasks to inspect armed deletions and schedule_deletion to add one."),
		),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP over in and out until ctx is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(slogWriter{s.logger}, "", 0))

	s.logger.Info("mcp server listening on stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List every deletion task known to deltime with its status and next target."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("status",
			mcp.Description("Only return tasks in this status."),
			mcp.Enum(statusNames()...),
		),
	), s.handleListTasks)

	s.mcp.AddTool(mcp.NewTool("schedule_deletion",
		mcp.WithDescription("Schedule the deletion of a file or directory, either every N minutes or at a date."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File or directory to delete."),
		),
		mcp.WithNumber("interval_minutes",
			mcp.Description("Delete after this many minutes. Exclusive with date."),
			mcp.Min(1),
		),
		mcp.WithString("date",
			mcp.Description("Delete at this local date, e.g. 2026-10-26T13:23:52. Exclusive with interval_minutes."),
		),
		mcp.WithString("repeat",
			mcp.Description("once, daily, forever or monthly. Defaults to once."),
			mcp.Enum("once", "daily", "forever", "monthly"),
		),
		mcp.WithString("mask",
			mcp.Description("Glob applied to the files of a directory; the directory itself is kept."),
		),
		mcp.WithBoolean("visible",
			mcp.Description("Show the path next to the progress bar."),
		),
	), s.handleScheduleDeletion)

	if s.deps.History != nil {
		s.mcp.AddTool(mcp.NewTool("recent_history",
			mcp.WithDescription("Return the most recent deletions, newest first."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of entries. Defaults to 20."),
				mcp.Min(1),
			),
		), s.handleRecentHistory)
	}
}

func statusNames() []string {
	return []string{
		string(task.StatusPending),
		string(task.StatusArmed),
		string(task.StatusMissing),
		string(task.StatusDone),
		string(task.StatusFailed),
		string(task.StatusExpired),
	}
}

// slogWriter forwards the stdio server's error log lines to slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Write(p []byte) (int, error) {
	w.logger.Error("mcp stdio error", "detail", string(p))
	return len(p), nil
}
