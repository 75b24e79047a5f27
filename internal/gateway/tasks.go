package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/flemzord/deltime/internal/history"
	"github.com/flemzord/deltime/internal/security"
	"github.com/flemzord/deltime/internal/task"
)

const (
	maxBodyBytes        = 64 << 10
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// handleListTasks returns a snapshot of every registered job.
func (g *Gateway) handleListTasks() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := []task.Snapshot{}
		if g.deps.Tasks != nil {
			for _, job := range g.deps.Tasks.List() {
				out = append(out, job.Snapshot())
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createTaskResponse reports what happened to a submitted definition.
type createTaskResponse struct {
	Armed     bool   `json:"armed"`
	Duplicate bool   `json:"duplicate"`
	Missing   bool   `json:"missing"`
	Hash      string `json:"hash"`
}

// handleCreateTask arms the task definition in the request body.
func (g *Gateway) handleCreateTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.deps.Producer == nil {
			http.Error(w, "task submission disabled", http.StatusServiceUnavailable)
			return
		}

		var def task.Definition
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			http.Error(w, "invalid task definition: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := def.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		sum, err := g.deps.Producer.Register(r.Context(), []task.Definition{def}, task.SourceGateway)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, task.ErrNoPath) || errors.Is(err, task.ErrNoTrigger) || errors.Is(err, task.ErrBothTriggers) ||
				errors.Is(err, security.ErrProtectedPath) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), status)
			return
		}

		resp := createTaskResponse{
			Armed:     sum.Armed == 1,
			Duplicate: sum.Duplicates == 1,
			Missing:   sum.Missing == 1,
			Hash:      def.Hash(),
		}
		status := http.StatusCreated
		if !resp.Armed {
			status = http.StatusOK
		}
		g.logger.Info("gateway: task submitted", "path", def.Path, "armed", resp.Armed, "duplicate", resp.Duplicate)
		writeJSON(w, status, resp)
	}
}

// handleHistory returns the most recent history entries, newest first.
func (g *Gateway) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.deps.History == nil {
			writeJSON(w, http.StatusOK, []history.Entry{})
			return
		}

		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		entries, err := g.deps.History.Recent(r.Context(), limit)
		if err != nil {
			g.logger.Error("gateway: history query failed", "error", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []history.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
