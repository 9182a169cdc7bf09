package eventhandler

import (
	"fmt"
	"sort"
	"sync"
)

// IEventRegistry is a registry of event handlers. It allows you to retrieve handlers by name.
type IEventRegistry interface {
	GetHandler(name string) (EventHandler[any], error)
}

// Registry is a concurrency safe IEventRegistry
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler[any]
}

var _ IEventRegistry = (*Registry)(nil)

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]EventHandler[any]),
	}
}

// Register stores h under name, replacing any previous handler
func (r *Registry) Register(name string, h EventHandler[any]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// RegisterHandler stores a typed handler under name. Payloads that are not a T
// are dropped when the handler is called.
func RegisterHandler[T any](r *Registry, name string, h EventHandler[T]) {
	r.Register(name, Erase(h))
}

// GetHandler returns the handler registered under name
func (r *Registry) GetHandler(name string) (EventHandler[any], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return EventHandler[any]{}, fmt.Errorf("%w: %s", ErrHandlerNotFound, name)
	}
	return h, nil
}

// Names returns the registered handler names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
