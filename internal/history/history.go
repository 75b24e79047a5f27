package history

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of one recorded attempt.
type Result string

const (
	ResultOK      Result = "ok"
	ResultError   Result = "error"
	ResultMissing Result = "missing"
	ResultExpired Result = "expired"
)

// Entry is one row of the history.
type Entry struct {
	ID      int64     `json:"id"`
	At      time.Time `json:"at"`
	TaskID  uint64    `json:"task_id,omitempty"`
	JobHash string    `json:"job_hash,omitempty"`
	Path    string    `json:"path"`
	Mask    string    `json:"mask,omitempty"`
	Source  string    `json:"source,omitempty"`
	Event   string    `json:"event"`
	Result  Result    `json:"result"`
	Removed int       `json:"removed"`
	Error   string    `json:"error,omitempty"`
}

// Record appends e. A zero At is set to the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO removals (at_ms, task_id, job_hash, path, mask, source, event, result, removed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.At.UnixMilli(), int64(e.TaskID), e.JobHash, e.Path, e.Mask, e.Source,
		e.Event, string(e.Result), e.Removed, e.Error,
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", e.Path, err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, at_ms, task_id, job_hash, path, mask, source, event, result, removed, error
		FROM removals
		ORDER BY id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			atMS   int64
			taskID int64
			result string
		)
		if err := rows.Scan(&e.ID, &atMS, &taskID, &e.JobHash, &e.Path, &e.Mask, &e.Source,
			&e.Event, &result, &e.Removed, &e.Error); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.At = time.UnixMilli(atMS)
		e.TaskID = uint64(taskID)
		e.Result = Result(result)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent rows: %w", err)
	}
	return out, nil
}

// Prune deletes entries recorded before the given time and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM removals WHERE at_ms < ?", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: prune rows: %w", err)
	}
	return n, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM removals").Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}
