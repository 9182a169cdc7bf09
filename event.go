package eventhandler

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Event represents a scheduled call of a named handler
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Duration  int64       `json:"duration"`
	Payload   interface{} `json:"payload"`
	Handler   string      `json:"handler"`
	handler   EventHandler[any]
}

// FireAt is the unix second the event is due
func (e Event) FireAt() int64 {
	return e.Timestamp + e.Duration
}

// eventStorage provides thread-safe storage for events organized by timestamp
type eventStorage struct {
	mu     sync.RWMutex
	events map[int64][]Event // Map of timestamp to slice of events
}

func newEventStorage() *eventStorage {
	return &eventStorage{
		events: make(map[int64][]Event),
	}
}

// add adds an event to the storage for the given timestamp + duration
func (es *eventStorage) add(event Event) {
	es.mu.Lock()
	defer es.mu.Unlock()
	timestamp := event.FireAt()

	es.events[timestamp] = append(es.events[timestamp], event)
}

// remove drops the pending event with the given id
func (es *eventStorage) remove(id uuid.UUID) bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	for ts, events := range es.events {
		for i, e := range events {
			if e.ID != id {
				continue
			}
			events = append(events[:i], events[i+1:]...)
			if len(events) == 0 {
				delete(es.events, ts)
			} else {
				es.events[ts] = events
			}
			return true
		}
	}
	return false
}

// getAndRemove retrieves all events for a given timestamp and removes them from storage
func (es *eventStorage) getAndRemove(timestamp int64) []Event {
	es.mu.Lock()
	defer es.mu.Unlock()

	events := es.events[timestamp]
	delete(es.events, timestamp)
	return events
}

// getTimestampsUpTo returns all timestamps that are less than or equal to the given time, sorted
func (es *eventStorage) getTimestampsUpTo(currentTime int64) []int64 {
	es.mu.RLock()
	defer es.mu.RUnlock()

	timestamps := make([]int64, 0)
	for ts := range es.events {
		if ts <= currentTime {
			timestamps = append(timestamps, ts)
		}
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	return timestamps
}

// hasPastEvents checks if there are any events with timestamps in the past
func (es *eventStorage) hasPastEvents(currentTime int64) bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	for ts := range es.events {
		if ts < currentTime {
			return true
		}
	}
	return false
}

func (es *eventStorage) len() int {
	es.mu.RLock()
	defer es.mu.RUnlock()

	n := 0
	for _, events := range es.events {
		n += len(events)
	}
	return n
}
