package notify

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/polywatch/internal/engine"
)

// Console prints formatted opportunity lines to stdout.
type Console struct{}

// NewConsole creates a console notifier.
func NewConsole() *Console {
	return &Console{}
}

// Notify prints one line per signal.
func (c *Console) Notify(opp engine.Opportunity, multiplier float64) bool {
	fmt.Printf("🔔 OPPORTUNITY | [%s] $%s x%.2f | Market: %s | %s (%s)\n",
		opp.Side,
		opp.Price.StringFixed(2),
		multiplier,
		truncate(opp.MarketID, 40),
		opp.DetectedAt.Format("15:04:05"),
		opp.Source,
	)
	log.Info().
		Str("market", opp.MarketID).
		Str("side", opp.Side).
		Str("price", opp.Price.String()).
		Float64("multiplier", multiplier).
		Msg("Notified opportunity")
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
