package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Listener receives dispatched events. It runs on the channel's read loop
// and should return promptly.
type Listener func(Event)

type listener struct {
	id        string
	eventType string
	fn        Listener
}

// listeners keeps callbacks in registration order.
type listeners struct {
	mu      sync.RWMutex
	entries []listener
	logger  zerolog.Logger
}

func (l *listeners) add(eventType string, fn Listener) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := uuid.NewString()
	l.entries = append(l.entries, listener{id: id, eventType: eventType, fn: fn})
	return id
}

func (l *listeners) remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, entry := range l.entries {
		if entry.id == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (l *listeners) count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *listeners) dispatch(event Event) {
	l.mu.RLock()
	matched := make([]listener, 0, len(l.entries))
	for _, entry := range l.entries {
		if entry.eventType == event.Type || entry.eventType == AnyEvent {
			matched = append(matched, entry)
		}
	}
	l.mu.RUnlock()

	for _, entry := range matched {
		l.call(entry, event)
	}
}

func (l *listeners) call(entry listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Str("event", event.Type).Str("listener", entry.id).Msg("Event listener panicked")
		}
	}()
	entry.fn(event)
}
