package eventhandler

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrReentrantCall is matched by the panic value raised when a handler's
	// callback is invoked while it is already running.
	ErrReentrantCall = errors.New("event handler called while already executing")

	// ErrHandlerNotFound is returned when a registry has no handler under a name
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrLoopPaused is returned when scheduling on a paused event loop
	ErrLoopPaused = errors.New("event loop is paused")

	// ErrCatchingUp is returned when scheduling while past events are replayed
	ErrCatchingUp = errors.New("currently catching up with past events")

	errNilTransform = errors.New("eventhandler: nil transform")
)

// ReentrantCallError is the panic value raised by EventHandler.Call when the
// callback is already borrowed. Event handlers are expected to always be
// callable, so this is a programming error and is never returned.
type ReentrantCallError struct {
	// PayloadType is the handler's payload type, for diagnostics
	PayloadType string
}

func newReentrantCallError[T any]() *ReentrantCallError {
	return &ReentrantCallError{
		PayloadType: reflect.TypeOf((*T)(nil)).Elem().String(),
	}
}

func (e *ReentrantCallError) Error() string {
	return fmt.Sprintf("eventhandler: EventHandler[%s]: %s", e.PayloadType, ErrReentrantCall)
}

func (e *ReentrantCallError) Unwrap() error {
	return ErrReentrantCall
}

// AsReentrantCall reports whether a recovered panic value is a reentrant call
// violation.
func AsReentrantCall(recovered any) (*ReentrantCallError, bool) {
	err, ok := recovered.(error)
	if !ok {
		return nil, false
	}
	var rce *ReentrantCallError
	if errors.As(err, &rce) {
		return rce, true
	}
	return nil, false
}
