package upload

import "sync"

// Registry owns one Batch per project for the life of the process.
type Registry struct {
	limits Limits
	deps   Deps

	mu      sync.Mutex
	batches map[string]*Batch
}

func NewRegistry(limits Limits, deps Deps) *Registry {
	return &Registry{
		limits:  limits,
		deps:    deps,
		batches: make(map[string]*Batch),
	}
}

// Get returns the batch for projectID, creating an empty one on first use.
func (r *Registry) Get(projectID string) *Batch {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.batches[projectID]
	if !ok {
		b = NewBatch(projectID, r.limits, r.deps)
		r.batches[projectID] = b
	}
	return b
}

// Drop clears and forgets a project's batch, e.g. when the project is deleted.
// A batch that is mid-submission is left alone.
func (r *Registry) Drop(projectID string) bool {
	r.mu.Lock()
	b, ok := r.batches[projectID]
	if !ok || b.Uploading() {
		r.mu.Unlock()
		return false
	}
	delete(r.batches, projectID)
	r.mu.Unlock()

	b.Clear()
	return true
}
