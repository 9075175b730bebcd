package service

import (
	"context"
	"sort"
	"sync"

	"github.com/buddyhq/webhook-ingest/internal/domain/model"
)

// ProcessorFunc handles one validated event envelope. Returning nil
// marks the delivery processed; a returned error is categorized to
// decide between retry retention and DLQ routing.
type ProcessorFunc func(ctx context.Context, envelope *model.EventEnvelope, deliveryID string) error

// Processor binds an event kind to its handler and to the downstream
// dependency it calls. The dependency name selects the circuit breaker
// that guards the handler, so kinds sharing a dependency share a
// breaker and kinds on different dependencies fail independently.
type Processor struct {
	Kind       model.EventKind
	Dependency string
	Fn         ProcessorFunc
}

// ProcessorRegistry maps event kinds to processors. Registration
// happens at startup; lookups are concurrent-safe.
type ProcessorRegistry struct {
	mu    sync.RWMutex
	procs map[model.EventKind]Processor
}

// NewProcessorRegistry creates an empty registry.
func NewProcessorRegistry() *ProcessorRegistry {
	return &ProcessorRegistry{procs: make(map[model.EventKind]Processor)}
}

// Register adds a processor for an event kind. Registering the same
// kind twice replaces the previous processor.
func (r *ProcessorRegistry) Register(kind model.EventKind, dependency string, fn ProcessorFunc) {
	if fn == nil {
		panic("processor function is required")
	}
	if dependency == "" {
		panic("processor dependency name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[kind] = Processor{Kind: kind, Dependency: dependency, Fn: fn}
}

// Lookup returns the processor for a kind, or false when the kind is
// not registered.
func (r *ProcessorRegistry) Lookup(kind model.EventKind) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[kind]
	return p, ok
}

// Kinds returns the registered event kinds, sorted.
func (r *ProcessorRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.procs))
	for k := range r.procs {
		kinds = append(kinds, k.String())
	}
	sort.Strings(kinds)
	return kinds
}
