// Package engine turns raw price ticks into deduplicated, multiplier-scaled
// trading signals.
package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Price sources.
const (
	SourceBid       = "bid"
	SourceLastTrade = "last_trade"
)

// Opportunity is a detected trading signal. It is immutable once created.
type Opportunity struct {
	MarketID   string
	TokenID    string
	Side       string // outcome of the ticking token, e.g. "YES" or "NO"
	Price      decimal.Decimal
	Source     string
	NegRisk    bool
	DetectedAt time.Time
}

func (o Opportunity) String() string {
	return fmt.Sprintf("Opportunity(%s @ $%s from %s on %s)", o.Side, o.Price.StringFixed(2), o.Source, o.MarketID)
}

// Detect checks one price against the threshold and returns at most one
// Opportunity. The signal's side is always the outcome of the ticking token
// itself; the opposite outcome token only fires if it independently ticks
// above the threshold too.
func Detect(price, threshold decimal.Decimal, marketID, tokenID string, negRisk bool, outcomeSide, source string) *Opportunity {
	if !validPrice(price) {
		return nil
	}
	if price.LessThan(threshold) {
		log.Debug().
			Str("market", marketID).
			Str("price", price.String()).
			Str("threshold", threshold.String()).
			Msg("No opportunity")
		return nil
	}

	opp := &Opportunity{
		MarketID:   marketID,
		TokenID:    tokenID,
		Side:       outcomeSide,
		Price:      price,
		Source:     source,
		NegRisk:    negRisk,
		DetectedAt: time.Now(),
	}

	log.Debug().
		Str("market", marketID).
		Str("side", outcomeSide).
		Str("source", source).
		Str("price", price.String()).
		Str("threshold", threshold.String()).
		Msg("Price above threshold")

	return opp
}

// validPrice reports whether a price can be compared against the threshold.
// Non-finite values never survive decimal parsing, so only negative prices
// remain to reject here.
func validPrice(p decimal.Decimal) bool {
	return p.Sign() >= 0
}
