package tool

import (
	"context"
	"sync"
)

// Registry is the process-wide dispatch table of registered operations.
// Registration order is preserved; re-registering a name replaces it in place.
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]Operation
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds a batch of operations.
func (r *Registry) Register(ops ...Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]Operation, len(ops))
	}
	for _, op := range ops {
		if _, exists := r.ops[op.Name]; !exists {
			r.order = append(r.order, op.Name)
		}
		r.ops[op.Name] = op
	}
}

// registrySnapshot is a copy of the registry contents, used to undo a
// partial registration.
type registrySnapshot struct {
	ops   map[string]Operation
	order []string
}

func (r *Registry) snapshot() registrySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make(map[string]Operation, len(r.ops))
	for name, op := range r.ops {
		ops[name] = op
	}
	return registrySnapshot{ops: ops, order: append([]string(nil), r.order...)}
}

func (r *Registry) restore(s registrySnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = s.ops
	r.order = s.order
}

// ListRegistered returns operation names in registration order.
func (r *Registry) ListRegistered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Get returns an operation by name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Operations returns all operations in registration order.
func (r *Registry) Operations() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Operation, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.ops[name])
	}
	return out
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Invoke dispatches by name. An unknown name yields a failed result.
func (r *Registry) Invoke(ctx context.Context, name string, args Args) Result {
	op, ok := r.Get(name)
	if !ok {
		return Failure(NewToolError(ToolErrorCodeActionNotFound, "unknown tool: "+name, false, nil))
	}
	return op.Invoke(ctx, args)
}
