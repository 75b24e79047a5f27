package handler

import (
	"time"

	"github.com/flemzord/deltime/internal/history"
	"github.com/flemzord/deltime/internal/remover"
	"github.com/flemzord/deltime/internal/scheduler"
	"github.com/flemzord/deltime/internal/task"
)

// Notice is the serialisable view of a handled event, streamed to gateway
// clients.
type Notice struct {
	Kind    string     `json:"kind"`
	At      time.Time  `json:"at"`
	TaskID  uint64     `json:"task_id,omitempty"`
	Path    string     `json:"path"`
	Mask    string     `json:"mask,omitempty"`
	Source  string     `json:"source,omitempty"`
	Hash    string     `json:"hash,omitempty"`
	Next    *time.Time `json:"next,omitempty"`
	Current uint64     `json:"current"`
	Total   uint64     `json:"total"`
	Result  string     `json:"result,omitempty"`
	Removed int        `json:"removed,omitempty"`
	Error   string     `json:"error,omitempty"`
}

func newNotice(ev scheduler.Event[*task.Job], at time.Time) Notice {
	job := ev.Payload
	n := Notice{
		Kind:    ev.Kind.String(),
		At:      at,
		TaskID:  uint64(ev.TaskID),
		Path:    job.Def.Path,
		Mask:    job.Def.Mask,
		Source:  job.Source,
		Hash:    job.Hash,
		Current: ev.Progress.Current,
		Total:   ev.Progress.Total,
	}
	if ev.HasNext() {
		next := ev.Next
		n.Next = &next
	}
	return n
}

func (n *Notice) setResult(res remover.Result, err error) {
	n.Removed = res.Removed
	if err != nil {
		n.Result = string(history.ResultError)
		n.Error = err.Error()
		return
	}
	n.Result = string(history.ResultOK)
}
