package task

import (
	"sync"
)

// Registry holds every job submitted by any producer, keyed by definition
// hash, in submission order.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]*Job
	order []*Job
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]*Job)}
}

// Claim stores job unless a job with the same hash exists. It returns the
// stored job and whether job was the one stored.
func (r *Registry) Claim(job *Job) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKey[job.Hash]; ok {
		return existing, false
	}
	r.byKey[job.Hash] = job
	r.order = append(r.order, job)
	return job, true
}

// Get returns the job with the given hash.
func (r *Registry) Get(hash string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byKey[hash]
	return job, ok
}

// List returns every job in submission order.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Job, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Count returns the number of jobs per status.
func (r *Registry) Count() map[Status]int {
	out := make(map[Status]int)
	for _, job := range r.List() {
		out[job.Status()]++
	}
	return out
}
