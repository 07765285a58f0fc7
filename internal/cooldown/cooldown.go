// internal/cooldown/cooldown.go
package cooldown

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// pairKey scopes a cooldown to one sender->receiver direction. (A,B) and
// (B,A) are distinct keys.
type pairKey struct {
	sender   uuid.UUID
	receiver uuid.UUID
}

// Tracker suppresses repeat "added you as a friend" notifications within a
// window. Entries are actively evicted by a timer when the window elapses,
// so an entry's presence is always a reliable "within window" signal.
type Tracker struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[pairKey]*time.Timer
	stopped bool
}

// New returns a tracker with the given suppression window.
func New(window time.Duration) *Tracker {
	return &Tracker{
		window:  window,
		entries: make(map[pairKey]*time.Timer),
	}
}

// ShouldNotify reports whether a notification from sender to receiver may
// be sent now. On true it records the pair and schedules its removal after
// the window; until then every call for the same pair returns false.
func (t *Tracker) ShouldNotify(sender, receiver uuid.UUID) bool {
	key := pairKey{sender: sender, receiver: receiver}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return false
	}
	if _, exists := t.entries[key]; exists {
		return false
	}

	t.entries[key] = time.AfterFunc(t.window, func() {
		t.evict(key)
	})
	return true
}

func (t *Tracker) evict(key pairKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Stop cancels all outstanding eviction timers. The tracker refuses
// further notifications afterwards.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for key, timer := range t.entries {
		timer.Stop()
		delete(t.entries, key)
	}
}
