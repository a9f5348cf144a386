// Package notify fans detected opportunities out to notification sinks.
package notify

import (
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/polywatch/internal/engine"
)

// Notifier receives one call per non-duplicate signal. Implementations
// return false on failure; failures are logged by the fan-out and never
// stop the monitoring loop.
type Notifier interface {
	Notify(opp engine.Opportunity, multiplier float64) bool
}

// Multi calls each notifier in order and reports how many succeeded.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a fan-out over the given notifiers.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Add appends a notifier to the fan-out.
func (m *Multi) Add(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Notify delivers the opportunity to every sink. Returns true when at
// least one sink succeeded.
func (m *Multi) Notify(opp engine.Opportunity, multiplier float64) bool {
	sent := 0
	for _, n := range m.notifiers {
		if n.Notify(opp, multiplier) {
			sent++
		} else {
			log.Error().
				Str("market", opp.MarketID).
				Type("notifier", n).
				Msg("Notifier failed")
		}
	}
	return sent > 0
}
