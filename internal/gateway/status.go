package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/deltime/internal/task"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version     string              `json:"version,omitempty"`
	Uptime      int64               `json:"uptime_seconds"`
	Armed       int                 `json:"armed"`
	Passes      uint64              `json:"passes"`
	Jobs        map[task.Status]int `json:"jobs"`
	Subscribers int                 `json:"subscribers"`
	Dropped     uint64              `json:"dropped_notices"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Version:     g.deps.Version,
			Uptime:      int64(time.Since(g.startedAt) / time.Second),
			Jobs:        map[task.Status]int{},
			Subscribers: g.deps.Hub.Subscribers(),
			Dropped:     g.deps.Hub.Dropped(),
		}
		if g.deps.Scheduler != nil {
			resp.Armed = g.deps.Scheduler.Len()
			resp.Passes = g.deps.Scheduler.Passes()
		}
		if g.deps.Tasks != nil {
			for _, job := range g.deps.Tasks.List() {
				resp.Jobs[job.Status()]++
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
