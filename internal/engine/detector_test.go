package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestDetect_AboveThreshold(t *testing.T) {
	opp := Detect(d(0.85), d(0.70), "mkt-1", "tok-yes", false, "YES", SourceLastTrade)
	require.NotNil(t, opp)

	assert.Equal(t, "mkt-1", opp.MarketID)
	assert.Equal(t, "tok-yes", opp.TokenID)
	assert.Equal(t, "YES", opp.Side)
	assert.Equal(t, SourceLastTrade, opp.Source)
	assert.True(t, opp.Price.Equal(d(0.85)))
	assert.False(t, opp.DetectedAt.IsZero())
}

func TestDetect_AtThreshold(t *testing.T) {
	assert.NotNil(t, Detect(d(0.70), d(0.70), "mkt-1", "tok", false, "YES", SourceBid))
}

func TestDetect_BelowThreshold(t *testing.T) {
	assert.Nil(t, Detect(d(0.69), d(0.70), "mkt-1", "tok", false, "YES", SourceLastTrade))
}

func TestDetect_NegativePriceInvalid(t *testing.T) {
	assert.Nil(t, Detect(d(-0.5), d(0.70), "mkt-1", "tok", false, "YES", SourceLastTrade))
}

func TestDetect_SideIsTokenOutcome(t *testing.T) {
	// A NO token above threshold fires on NO; there is no derived
	// "which side is winning" judgment.
	opp := Detect(d(0.95), d(0.70), "mkt-1", "tok-no", true, "NO", SourceLastTrade)
	require.NotNil(t, opp)
	assert.Equal(t, "NO", opp.Side)
	assert.True(t, opp.NegRisk)
}
