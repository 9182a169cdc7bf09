package eventhandler

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// EventLoop schedules calls of named handlers and runs them on a single goroutine.
//
// Handlers fire in timestamp order, one at a time, so a handler reached only
// through the loop is never invoked concurrently.
type EventLoop struct {
	storage      *eventStorage
	stopChan     chan struct{}
	doneChan     chan struct{}
	startOnce    sync.Once
	stopOnce     sync.Once
	started      atomic.Bool
	dispatching  atomic.Bool
	isCatchingUp bool
	catchUpMu    sync.RWMutex
	isPaused     bool
	pauseMu      sync.RWMutex
	registry     IEventRegistry
	tickInterval time.Duration
	logger       logrus.FieldLogger
	logWriter    io.Closer
	metrics      *loopMetrics
}

// DefaultTickInterval is used when NewEventLoop is given a non-positive interval
const DefaultTickInterval = 100 * time.Millisecond

// LoopOption configures an EventLoop
type LoopOption func(*EventLoop)

// WithMetrics registers the loop's prometheus collectors on reg
func WithMetrics(reg prometheus.Registerer) LoopOption {
	return func(el *EventLoop) {
		el.metrics = newLoopMetrics(reg)
	}
}

// WithLogger makes the loop log to logger instead of the one built from LogConfig
func WithLogger(logger logrus.FieldLogger) LoopOption {
	return func(el *EventLoop) {
		el.logger = logger
	}
}

// NewEventLoop creates a new event loop with the specified tick interval,
// DefaultTickInterval when it is not positive.
// logConfig is optional - pass nil to disable logging
func NewEventLoop(tickInterval time.Duration, registry IEventRegistry, logConfig *LogConfig, opts ...LoopOption) *EventLoop {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	el := &EventLoop{
		storage:      newEventStorage(),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
		registry:     registry,
		tickInterval: tickInterval,
	}

	logger, writer, err := newLogger(logConfig)
	el.logger = logger
	el.logWriter = writer

	for _, opt := range opts {
		opt(el)
	}

	if err != nil {
		el.logger.WithError(err).Error("event loop logging disabled")
	}

	return el
}

// Start begins the event loop processing. Calling it again has no effect.
func (el *EventLoop) Start() {
	el.startOnce.Do(func() {
		el.started.Store(true)
		el.logger.WithField("tickInterval", el.tickInterval).Info("event loop started")
		go el.run()
	})
}

// Stop stops the event loop. An idle loop is waited for. While a handler is
// being dispatched, which includes Stop being called by that handler, Stop
// returns at once and the loop exits when the handler returns, skipping the
// rest of its batch.
func (el *EventLoop) Stop() {
	el.stopOnce.Do(func() {
		el.logger.Info("event loop stopping")
		close(el.stopChan)
		if !el.started.Load() {
			el.closeLog()
			return
		}
		if !el.dispatching.Load() {
			<-el.doneChan
		}
	})
}

func (el *EventLoop) closeLog() {
	if el.logWriter != nil {
		el.logWriter.Close()
	}
}

func (el *EventLoop) stopped() bool {
	select {
	case <-el.stopChan:
		return true
	default:
		return false
	}
}

// ScheduleEvent schedules a call of the named handler with payload at timestamp + duration
// (unix seconds). Events cannot be scheduled while the loop is paused or catching up.
func (el *EventLoop) ScheduleEvent(timestamp int64, duration int64, handlername string, payload any) (uuid.UUID, error) {
	log := el.logger.WithFields(logrus.Fields{"handler": handlername, "timestamp": timestamp})

	if el.IsPaused() {
		el.metrics.observeRejected(reasonPaused)
		log.Error("event scheduling failed - loop is paused")
		return uuid.Nil, ErrLoopPaused
	}

	if el.IsCatchingUp() {
		el.metrics.observeRejected(reasonCatchingUp)
		log.Error("event scheduling failed - currently catching up")
		return uuid.Nil, ErrCatchingUp
	}

	handler, err := el.registry.GetHandler(handlername)
	if err != nil {
		el.metrics.observeRejected(reasonNotFound)
		log.WithError(err).Error("event scheduling failed - handler not found")
		return uuid.Nil, err
	}

	event := Event{
		ID:        uuid.New(),
		Timestamp: timestamp,
		Duration:  duration,
		handler:   handler,
		Handler:   handlername,
		Payload:   payload,
	}
	el.storage.add(event)
	el.metrics.observeScheduled(handlername)
	log.WithFields(logrus.Fields{"event": event.ID, "duration": duration}).Info("event scheduled")
	return event.ID, nil
}

// Post schedules a call of the named handler for the current second
func (el *EventLoop) Post(handlername string, payload any) (uuid.UUID, error) {
	return el.ScheduleEvent(time.Now().Unix(), 0, handlername, payload)
}

// Poster returns a handler that posts its payload to the named handler through
// the loop. Rejected posts are logged and dropped.
func (el *EventLoop) Poster(handlername string) EventHandler[any] {
	return New(func(payload any) {
		if _, err := el.Post(handlername, payload); err != nil {
			el.logger.WithError(err).WithField("handler", handlername).Warn("post dropped")
		}
	})
}

// Cancel removes a pending event. It reports false if the event already fired
// or was never scheduled.
func (el *EventLoop) Cancel(id uuid.UUID) bool {
	if !el.storage.remove(id) {
		return false
	}
	el.metrics.observeCancelled()
	el.logger.WithField("event", id).Info("event cancelled")
	return true
}

// Pending returns the number of events waiting to fire
func (el *EventLoop) Pending() int {
	return el.storage.len()
}

// IsCatchingUp returns whether the loop is currently in catch-up mode
func (el *EventLoop) IsCatchingUp() bool {
	el.catchUpMu.RLock()
	defer el.catchUpMu.RUnlock()
	return el.isCatchingUp
}

// IsPaused returns whether the loop is currently paused
func (el *EventLoop) IsPaused() bool {
	el.pauseMu.RLock()
	defer el.pauseMu.RUnlock()
	return el.isPaused
}

// Pause pauses the event loop, preventing event scheduling and processing
func (el *EventLoop) Pause() {
	el.pauseMu.Lock()
	defer el.pauseMu.Unlock()
	if !el.isPaused {
		el.isPaused = true
		el.logger.Info("event loop paused")
	}
}

// Unpause resumes the event loop, allowing event scheduling and processing.
// Events that fell due while paused are replayed in catch-up mode.
func (el *EventLoop) Unpause() {
	el.pauseMu.Lock()
	defer el.pauseMu.Unlock()
	if el.isPaused {
		el.isPaused = false
		el.logger.Info("event loop unpaused")
	}
}

// GetStats returns current statistics about the event loop
func (el *EventLoop) GetStats() string {
	currentTime := time.Now().Unix()
	pastTimestamps := el.storage.getTimestampsUpTo(currentTime - 1)

	return fmt.Sprintf("STATISTICS: Catching up: %v, Paused: %v, Pending events: %d, Past events: %d timestamps",
		el.IsCatchingUp(), el.IsPaused(), el.Pending(), len(pastTimestamps))
}

// setCatchingUp sets the catch-up mode state
func (el *EventLoop) setCatchingUp(state bool) {
	el.catchUpMu.Lock()
	defer el.catchUpMu.Unlock()
	el.isCatchingUp = state
}

// run is the main event loop
func (el *EventLoop) run() {
	defer close(el.doneChan)
	defer el.closeLog()
	ticker := time.NewTicker(el.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return

		case <-ticker.C:
			if !el.IsPaused() {
				el.processTick()
			}
		}
	}
}

// processTick handles the logic for each tick of the event loop
func (el *EventLoop) processTick() {
	currentTime := time.Now().Unix()

	if el.storage.hasPastEvents(currentTime) {
		el.setCatchingUp(true)
		el.processCatchUp(currentTime)
		el.setCatchingUp(false)
	}

	el.processTimestamp(currentTime)
}

// processCatchUp processes all past events in chronological order
func (el *EventLoop) processCatchUp(currentTime int64) {
	timestamps := el.storage.getTimestampsUpTo(currentTime - 1)
	el.logger.WithFields(logrus.Fields{"pastEventCount": len(timestamps), "currentTime": currentTime}).Info("entering catch-up mode")

	for _, ts := range timestamps {
		if el.stopped() {
			return
		}
		el.processTimestamp(ts)
	}

	el.logger.Info("exiting catch-up mode")
}

// processTimestamp fires all events for a specific timestamp in scheduling order
func (el *EventLoop) processTimestamp(timestamp int64) {
	events := el.storage.getAndRemove(timestamp)

	if len(events) == 0 {
		return
	}

	el.logger.WithFields(logrus.Fields{"timestamp": timestamp, "eventCount": len(events)}).Info("processing events")

	for _, event := range events {
		if el.stopped() {
			return
		}
		el.executeHandler(event)
	}
}

// executeHandler calls the event's handler, recovering ordinary panics.
// A reentrant call is a programming error and is re-raised.
func (el *EventLoop) executeHandler(event Event) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		log := el.logger.WithFields(logrus.Fields{"handler": event.Handler, "event": event.ID, "panic": r})
		if rce, ok := AsReentrantCall(r); ok {
			log.Error("handler called reentrantly")
			panic(rce)
		}
		el.metrics.observePanic(event.Handler)
		log.Error("handler panicked")
	}()

	el.dispatching.Store(true)
	defer el.dispatching.Store(false)

	el.metrics.observeDispatched(event.Handler)
	event.handler.Call(event.Payload)
}
