package executor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors.
var (
	ErrExecutorExists   = errors.New("executor already registered")
	ErrExecutorNotFound = errors.New("executor not found")
)

// Registry maps identifiers to executors. It is written during startup and
// read on every dispatch.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register adds e. A second executor under the same identifier is rejected.
func (r *Registry) Register(e Executor) error {
	if e == nil {
		return fmt.Errorf("executor is nil")
	}
	id := e.Identifier()
	if id == "" {
		return ErrIdentifierRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[id]; exists {
		return fmt.Errorf("%w: %s", ErrExecutorExists, id)
	}
	r.executors[id] = e
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(executors ...Executor) {
	for _, e := range executors {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
}

// Unregister removes the executor for identifier, if present.
func (r *Registry) Unregister(identifier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.executors, identifier)
}

// Resolve returns the executor that owns namespace.
func (r *Registry) Resolve(namespace string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[namespace]
	return e, ok
}

// List returns all executors sorted by identifier.
func (r *Registry) List() []Executor {
	r.mu.RLock()
	out := make([]Executor, 0, len(r.executors))
	for _, e := range r.executors {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier() < out[j].Identifier()
	})
	return out
}

// Identifiers returns registered identifiers sorted for deterministic output.
func (r *Registry) Identifiers() []string {
	all := r.List()
	out := make([]string, 0, len(all))
	for _, e := range all {
		out = append(out, e.Identifier())
	}
	return out
}
