package eventhandler

import "sync"

// EventHandler is a handle to a single mutable callback accepting a payload of type T.
//
// Copies of an EventHandler share the same underlying callback. Two handlers are
// equal only when they refer to the same callback cell, so handlers built from two
// identical closures are never equal.
//
// The callback is guarded against overlapping invocation. Calling a handler while
// its callback is already running, recursively or from another goroutine, panics
// with a *ReentrantCallError.
//
// The zero EventHandler has no callback and panics when called.
type EventHandler[T any] struct {
	cell *callbackCell[T]
}

// callbackCell is the shared, exclusively invoked storage behind a handler
type callbackCell[T any] struct {
	busy     sync.Mutex
	callback func(T)
}

// HandlerFunc lets a plain func be turned into an EventHandler
type HandlerFunc[T any] func(T)

// Handler wraps f in a new EventHandler
func (f HandlerFunc[T]) Handler() EventHandler[T] {
	return New[T](f)
}

// New wraps callback in a new EventHandler. It panics if callback is nil.
func New[T any](callback func(T)) EventHandler[T] {
	if callback == nil {
		panic("eventhandler: New called with nil callback")
	}
	return EventHandler[T]{
		cell: &callbackCell[T]{callback: callback},
	}
}

// Call invokes the wrapped callback with value and returns once it (and every
// handler it delegates to) has finished.
func (h EventHandler[T]) Call(value T) {
	c := h.cell
	if c == nil {
		panic("eventhandler: Call on zero EventHandler")
	}

	if !c.busy.TryLock() {
		panic(newReentrantCallError[T]())
	}
	defer c.busy.Unlock()

	c.callback(value)
}

// Clone returns a handle sharing the same callback. It is the same as copying h.
func (h EventHandler[T]) Clone() EventHandler[T] {
	return EventHandler[T]{cell: h.cell}
}

// Equal reports whether h and other refer to the same callback
func (h EventHandler[T]) Equal(other EventHandler[T]) bool {
	return h.cell == other.cell
}

// IsZero reports whether h was never initialised with New
func (h EventHandler[T]) IsZero() bool {
	return h.cell == nil
}

// Map returns a handler over U that applies transform to each value and forwards
// the result to h. transform runs under the new handler's guard, so it may keep
// state between calls.
func Map[T, U any](h EventHandler[T], transform func(U) T) EventHandler[U] {
	if transform == nil {
		panic(errNilTransform)
	}
	return New(func(value U) {
		h.Call(transform(value))
	})
}

// FilterMap returns a handler over U that forwards transform's result to h only
// when transform reports ok. Declined values are dropped without calling h.
func FilterMap[T, U any](h EventHandler[T], transform func(U) (T, bool)) EventHandler[U] {
	if transform == nil {
		panic(errNilTransform)
	}
	return New(func(value U) {
		if v, ok := transform(value); ok {
			h.Call(v)
		}
	})
}

// MapSome returns a handler over Option[U]. None is dropped, Some(u) forwards
// transform(u) to h.
func MapSome[T, U any](h EventHandler[T], transform func(U) T) EventHandler[Option[U]] {
	if transform == nil {
		panic(errNilTransform)
	}
	return New(func(value Option[U]) {
		if v, ok := value.Get(); ok {
			h.Call(transform(v))
		}
	})
}

// Erase adapts h to accept any payload. Payloads that are not a T are dropped.
func Erase[T any](h EventHandler[T]) EventHandler[any] {
	return FilterMap(h, func(value any) (T, bool) {
		v, ok := value.(T)
		return v, ok
	})
}
