package notice

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Subject delivers values of one type to programmatic subscribers, in the
// order they subscribed. A panicking subscriber is logged and skipped.
type Subject[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe registers fn and returns a function that removes it again.
func (s *Subject[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Subject[T]) Publish(value T) {
	s.mu.RLock()
	subs := make([]subscription[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		deliver(sub.fn, value)
	}
}

// Len reports the number of current subscribers.
func (s *Subject[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

func deliver[T any](fn func(T), value T) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Notice subscriber panicked")
		}
	}()
	fn(value)
}
