// Package worker runs queued tasks: a registry maps task kinds to handlers,
// a pool consumes deliveries from the broker, and a reaper fails jobs
// abandoned by crashed workers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kiranshivaraju/elasticbot/internal/queue"
)

// ErrUnknownKind is returned for a task whose kind has no handler.
var ErrUnknownKind = errors.New("no handler registered for task kind")

// HandlerFunc handles one task.
type HandlerFunc func(ctx context.Context, t queue.Task) error

// Registry maps task kinds to handlers. It is shared by the worker pool and
// the synchronous dispatch path so both run the same code.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds kind to h, replacing any earlier handler.
func (r *Registry) Register(kind string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (r *Registry) Handle(ctx context.Context, t queue.Task) error {
	r.mu.RLock()
	h, ok := r.handlers[t.Kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, t.Kind)
	}
	return h(ctx, t)
}
