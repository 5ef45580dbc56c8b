package realtime

import (
	"sync"
	"time"
)

// recentSet remembers event identities for one debounce window. Entries
// remove themselves when the window closes; lookups also ignore entries that
// are older than the window in case the timer has not fired yet.
type recentSet struct {
	mu      sync.Mutex
	window  time.Duration
	nowFunc func() time.Time
	seen    map[string]*recentEntry
}

type recentEntry struct {
	at    time.Time
	timer *time.Timer
}

func newRecentSet(window time.Duration, nowFunc func() time.Time) *recentSet {
	return &recentSet{window: window, nowFunc: nowFunc, seen: make(map[string]*recentEntry)}
}

// Seen records id and reports whether it was already recorded within the
// window.
func (r *recentSet) Seen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	if entry, ok := r.seen[id]; ok {
		if now.Sub(entry.at) < r.window {
			return true
		}
		entry.timer.Stop()
	}

	entry := &recentEntry{at: now}
	entry.timer = time.AfterFunc(r.window, func() { r.expire(id, entry) })
	r.seen[id] = entry
	return false
}

func (r *recentSet) expire(id string, entry *recentEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[id] == entry {
		delete(r.seen, id)
	}
}

func (r *recentSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// Clear forgets every identity and cancels the pending removals.
func (r *recentSet) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.seen {
		entry.timer.Stop()
	}
	r.seen = make(map[string]*recentEntry)
}
