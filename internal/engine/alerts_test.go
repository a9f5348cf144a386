package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlertTracker_FirstAlertMultiplierOne(t *testing.T) {
	tracker := NewAlertTracker(1.5)

	mult, dup := tracker.Register("mkt-1", "YES")
	assert.False(t, dup)
	assert.Equal(t, 1.0, mult)
}

func TestAlertTracker_SameSideSuppressed(t *testing.T) {
	tracker := NewAlertTracker(1.5)

	tracker.Register("mkt-1", "YES")
	for i := 0; i < 5; i++ {
		mult, dup := tracker.Register("mkt-1", "YES")
		assert.True(t, dup, "consecutive same-side alerts are duplicates")
		assert.Equal(t, 1.0, mult, "duplicates never change the multiplier")
	}
}

func TestAlertTracker_ReversalSequence(t *testing.T) {
	tracker := NewAlertTracker(1.5)

	mult, dup := tracker.Register("mkt-1", "YES")
	assert.False(t, dup)
	assert.Equal(t, 1.0, mult)

	mult, dup = tracker.Register("mkt-1", "NO")
	assert.False(t, dup)
	assert.Equal(t, 1.5, mult)

	mult, dup = tracker.Register("mkt-1", "YES")
	assert.False(t, dup)
	assert.Equal(t, 2.25, mult)
}

func TestAlertTracker_MarketsIndependent(t *testing.T) {
	tracker := NewAlertTracker(2.0)

	tracker.Register("mkt-1", "YES")
	tracker.Register("mkt-1", "NO") // mkt-1 now at 2.0

	mult, dup := tracker.Register("mkt-2", "NO")
	assert.False(t, dup)
	assert.Equal(t, 1.0, mult, "a new market always starts at 1.0")
}

func TestAlertTracker_ResetClearsMultipliers(t *testing.T) {
	tracker := NewAlertTracker(1.5)

	tracker.Register("mkt-1", "YES")
	tracker.Register("mkt-1", "NO")
	assert.Equal(t, 1, tracker.Len())

	tracker.Reset()
	assert.Equal(t, 0, tracker.Len())

	mult, dup := tracker.Register("mkt-1", "NO")
	assert.False(t, dup)
	assert.Equal(t, 1.0, mult, "state from the previous cycle must not leak")
}

func TestAlertTracker_ConcurrentRegistersSingleWinner(t *testing.T) {
	tracker := NewAlertTracker(1.5)

	const n = 32
	var wg sync.WaitGroup
	nonDup := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, dup := tracker.Register("mkt-1", "YES"); !dup {
				nonDup <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(nonDup)

	assert.Len(t, nonDup, 1, "exactly one concurrent tick may pass as non-duplicate")
}
