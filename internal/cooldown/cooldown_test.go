// internal/cooldown/cooldown_test.go
package cooldown

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestShouldNotifyOncePerWindow(t *testing.T) {
	tr := New(60 * time.Millisecond)
	defer tr.Stop()

	a, b := uuid.New(), uuid.New()

	assert.True(t, tr.ShouldNotify(a, b), "first notification passes")
	assert.False(t, tr.ShouldNotify(a, b), "second within window is suppressed")

	time.Sleep(100 * time.Millisecond)
	assert.True(t, tr.ShouldNotify(a, b), "window elapsed, entry evicted")
}

func TestDirectionsAreIndependent(t *testing.T) {
	tr := New(time.Minute)
	defer tr.Stop()

	a, b := uuid.New(), uuid.New()

	assert.True(t, tr.ShouldNotify(a, b))
	assert.True(t, tr.ShouldNotify(b, a), "reverse pair has its own entry")
	assert.False(t, tr.ShouldNotify(a, b))
	assert.False(t, tr.ShouldNotify(b, a))
}

func TestStopCancelsTimersAndRefusesNotifications(t *testing.T) {
	tr := New(time.Minute)
	a, b := uuid.New(), uuid.New()

	assert.True(t, tr.ShouldNotify(a, b))
	tr.Stop()
	assert.False(t, tr.ShouldNotify(a, b))
}

func TestConcurrentShouldNotifySingleWinner(t *testing.T) {
	tr := New(time.Minute)
	defer tr.Stop()

	a, b := uuid.New(), uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.ShouldNotify(a, b) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins, "exactly one concurrent caller may notify")
}
