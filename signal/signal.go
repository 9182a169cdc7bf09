// Package signal provides a reactive value that notifies subscribers when it changes.
package signal

import "sync"

// Mutable is a reactive value. Subscribers run synchronously, in subscription
// order, after every Set or Replace.
type Mutable[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	nextID  uint64
	subs    []subscriber
}

type subscriber struct {
	id uint64
	fn func()
}

// New creates a Mutable with an initial value.
func New[T any](initial T) *Mutable[T] {
	return &Mutable[T]{value: initial}
}

// Get returns the current value.
func (m *Mutable[T]) Get() T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

// Set updates the value and notifies all subscribers.
func (m *Mutable[T]) Set(v T) {
	m.mu.Lock()
	m.value = v
	m.version++
	subs := m.snapshot()
	m.mu.Unlock()

	notify(subs)
}

// Replace stores fn(previous) and returns previous.
// fn runs without the lock held, so it may read m. If another write lands
// while fn runs, fn is called again with the newer value.
func (m *Mutable[T]) Replace(fn func(previous T) T) T {
	for {
		m.mu.RLock()
		previous, version := m.value, m.version
		m.mu.RUnlock()

		next := fn(previous)

		m.mu.Lock()
		if m.version != version {
			m.mu.Unlock()
			continue
		}
		m.value = next
		m.version++
		subs := m.snapshot()
		m.mu.Unlock()

		notify(subs)
		return previous
	}
}

// Subscribe registers a callback fired when the value changes.
// The returned func removes it and may be called more than once.
func (m *Mutable[T]) Subscribe(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// must hold m.mu
func (m *Mutable[T]) snapshot() []func() {
	subs := make([]func(), len(m.subs))
	for i, s := range m.subs {
		subs[i] = s.fn
	}
	return subs
}

func notify(subs []func()) {
	for _, fn := range subs {
		fn()
	}
}
