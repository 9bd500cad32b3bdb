// Package state holds published view-model state as an immutable snapshot
// swapped with compare-and-swap, fanned out to latest-value subscribers.
package state

import (
	"sync"
	"sync/atomic"
)

// Observer receives every value that reaches subscribers, in publish order.
// It runs on the publishing goroutine and must not publish back into the store.
type Observer[T any] interface {
	OnPublish(value T, version uint64)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc[T any] func(value T, version uint64)

func (f ObserverFunc[T]) OnPublish(value T, version uint64) { f(value, version) }

type snapshot[T any] struct {
	value   T
	version uint64
}

// Store is safe for concurrent use. Values stored in it must be treated as
// immutable: replace them, never mutate what Load returned.
type Store[T any] struct {
	current atomic.Pointer[snapshot[T]]

	subMu     sync.Mutex // Protects subs, nextSub, delivered
	subs      map[int]chan T
	nextSub   int
	delivered uint64
	observer  Observer[T]
}

// New creates a store holding initial at version 0. observer may be nil.
func New[T any](initial T, observer Observer[T]) *Store[T] {
	s := &Store[T]{subs: make(map[int]chan T), observer: observer}
	s.current.Store(&snapshot[T]{value: initial})
	return s
}

// Load returns the current value
func (s *Store[T]) Load() T {
	return s.current.Load().value
}

// Update applies fn to the current value and publishes the result.
// fn returns false to leave the store untouched; it may run more than once
// when another writer wins the race, so it must be free of side effects.
// Update reports whether a new value was published.
func (s *Store[T]) Update(fn func(current T) (T, bool)) bool {
	for {
		old := s.current.Load()
		next, ok := fn(old.value)
		if !ok {
			return false
		}
		snap := &snapshot[T]{value: next, version: old.version + 1}
		if s.current.CompareAndSwap(old, snap) {
			s.fanout()
			return true
		}
	}
}

// Subscribe returns a channel that always holds the most recent value not yet
// received. The current value is delivered immediately. Call the returned func
// to unsubscribe; the channel is closed afterwards.
func (s *Store[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.current.Load().value
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
}

// fanout delivers the newest snapshot to every subscriber. A snapshot older
// than one already delivered is skipped, so subscribers never go backwards.
func (s *Store[T]) fanout() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	snap := s.current.Load()
	if snap.version <= s.delivered {
		return
	}
	s.delivered = snap.version

	for _, ch := range s.subs {
		offer(ch, snap.value)
	}
	if s.observer != nil {
		s.observer.OnPublish(snap.value, snap.version)
	}
}

// offer replaces whatever is buffered in ch with value
func offer[T any](ch chan T, value T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- value:
	default:
	}
}
