package gamma

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClosingTime_Basic(t *testing.T) {
	ref := time.Date(2026, 1, 9, 20, 0, 0, 0, time.UTC)
	closing := ParseClosingTime("Bitcoin Up or Down - January 9, 8:15PM-8:30PM ET", ref)
	require.NotNil(t, closing)

	want := time.Date(2026, 1, 9, 20, 30, 0, 0, eastern()).UTC()
	assert.Equal(t, want, *closing)
}

func TestParseClosingTime_MidnightRollover(t *testing.T) {
	ref := time.Date(2026, 12, 31, 23, 50, 0, 0, time.UTC)
	closing := ParseClosingTime("Ethereum Up or Down - December 31, 11:45PM-12:00AM ET", ref)
	require.NotNil(t, closing)

	want := time.Date(2027, 1, 1, 0, 0, 0, 0, eastern()).UTC()
	assert.Equal(t, want, *closing)
}

func TestParseClosingTime_NoonIsNotZero(t *testing.T) {
	ref := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	closing := ParseClosingTime("Solana Up or Down - June 15, 11:45AM-12:00PM ET", ref)
	require.NotNil(t, closing)

	want := time.Date(2026, 6, 15, 12, 0, 0, 0, eastern()).UTC()
	assert.Equal(t, want, *closing)
}

func TestParseClosingTime_Unparseable(t *testing.T) {
	ref := time.Now()
	assert.Nil(t, ParseClosingTime("Will it rain tomorrow?", ref))
	assert.Nil(t, ParseClosingTime("", ref))
	assert.Nil(t, ParseClosingTime("Bitcoin Up or Down - Smarch 9, 8:15PM-8:30PM ET", ref))
}
