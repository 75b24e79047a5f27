package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flemzord/deltime/internal/task"
)

const defaultHistoryLimit = 20

// scheduleResult is the structured result of schedule_deletion.
type scheduleResult struct {
	Armed     bool   `json:"armed"`
	Duplicate bool   `json:"duplicate"`
	Missing   bool   `json:"missing"`
	Hash      string `json:"hash"`
}

func (s *Server) handleListTasks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := task.Status(req.GetString("status", ""))

	out := []task.Snapshot{}
	if s.deps.Tasks != nil {
		for _, job := range s.deps.Tasks.List() {
			snap := job.Snapshot()
			if filter != "" && snap.Status != filter {
				continue
			}
			out = append(out, snap)
		}
	}
	return mcp.NewToolResultJSON(struct {
		Tasks []task.Snapshot `json:"tasks"`
	}{out})
}

func (s *Server) handleScheduleDeletion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.deps.Producer == nil {
		return mcp.NewToolResultError("task submission is disabled"), nil
	}

	def, err := definitionFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := def.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sum, err := s.deps.Producer.Register(ctx, []task.Definition{def}, task.SourceMCP)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("registering task", err), nil
	}

	res := scheduleResult{
		Armed:     sum.Armed == 1,
		Duplicate: sum.Duplicates == 1,
		Missing:   sum.Missing == 1,
		Hash:      def.Hash(),
	}
	s.logger.Info("mcp: task submitted", "path", def.Path, "armed", res.Armed, "duplicate", res.Duplicate)

	var text string
	switch {
	case res.Armed:
		text = fmt.Sprintf("deletion of %s scheduled", def.Path)
	case res.Duplicate:
		text = fmt.Sprintf("deletion of %s is already scheduled", def.Path)
	case res.Missing:
		text = fmt.Sprintf("file `%s` does not exist", def.Path)
	default:
		text = fmt.Sprintf("deletion of %s not scheduled", def.Path)
	}
	return mcp.NewToolResultStructured(res, text), nil
}

func (s *Server) handleRecentHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}
	entries, err := s.deps.History.Recent(ctx, limit)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("reading history", err), nil
	}
	return mcp.NewToolResultJSON(map[string]any{"entries": entries})
}

// definitionFromRequest decodes the schedule_deletion arguments.
func definitionFromRequest(req mcp.CallToolRequest) (task.Definition, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return task.Definition{}, err
	}
	def := task.Definition{
		Path:    path,
		Mask:    req.GetString("mask", ""),
		Visible: req.GetBool("visible", false),
	}

	if minutes := req.GetFloat("interval_minutes", 0); minutes != 0 {
		if minutes < 1 || minutes > math.MaxUint32 || minutes != math.Trunc(minutes) {
			return task.Definition{}, errors.New("interval_minutes must be a whole number of minutes")
		}
		def.Interval = uint32(minutes)
	}
	if raw := req.GetString("date", ""); raw != "" {
		date, err := task.ParseDate(raw)
		if err != nil {
			return task.Definition{}, err
		}
		def.Date = date
	}
	if raw := req.GetString("repeat", ""); raw != "" {
		if err := def.Repeat.UnmarshalText([]byte(raw)); err != nil {
			return task.Definition{}, err
		}
	}
	return def, nil
}
