package engine

import "sync"

// alertState holds the last alerted side and the compounded sizing
// multiplier for one market.
type alertState struct {
	lastSide   string
	multiplier float64
}

// AlertTracker applies per-market deduplication with reversal escalation.
// Consecutive same-side alerts for a market are suppressed; each side flip
// compounds the multiplier by the reversal factor. State lives for one
// lifecycle cycle and is wiped by Reset.
type AlertTracker struct {
	mu     sync.Mutex
	factor float64
	states map[string]*alertState
}

// NewAlertTracker creates a tracker with the given reversal factor (>= 1).
func NewAlertTracker(reversalFactor float64) *AlertTracker {
	return &AlertTracker{
		factor: reversalFactor,
		states: make(map[string]*alertState),
	}
}

// Register records a candidate alert for a market and returns the
// multiplier to emit plus whether the alert is a duplicate. The first alert
// for a market always carries multiplier 1.0; the Nth consecutive reversal
// carries factor^N. The check-and-update is atomic per tracker, so
// concurrent ticks for one market cannot both pass as non-duplicates.
func (t *AlertTracker) Register(marketID, side string) (multiplier float64, duplicate bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[marketID]
	if !ok {
		t.states[marketID] = &alertState{lastSide: side, multiplier: 1.0}
		return 1.0, false
	}
	if st.lastSide == side {
		return st.multiplier, true
	}

	// Reversal: flip the side and compound the multiplier. The emitted
	// value is read after the update.
	st.multiplier *= t.factor
	st.lastSide = side
	return st.multiplier, false
}

// Reset wipes all per-market state. Called on every lifecycle transition so
// the next cycle starts from multiplier 1.0.
func (t *AlertTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[string]*alertState)
}

// Len returns the number of markets with alert state, for logging.
func (t *AlertTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}
