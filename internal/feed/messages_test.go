package feed

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseRaw(t *testing.T, raw string) Message {
	t.Helper()
	var env wsEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return parseMessage(&env, json.RawMessage(raw))
}

func TestParseMessage_Book(t *testing.T) {
	raw := `{
		"event_type": "book",
		"asset_id": "token-1",
		"market": "0xcond",
		"timestamp": "1724932800000",
		"hash": "abc",
		"bids": [{"price": "0.48", "size": "100"}, {"price": "0.52", "size": "40"}],
		"asks": [{"price": "0.55", "size": "60"}, {"price": "0.53", "size": "10"}]
	}`

	msg := parseRaw(t, raw)
	require.Equal(t, KindBook, msg.Kind())

	book := msg.(Book)
	assert.Equal(t, "token-1", book.AssetID)
	assert.Equal(t, "0xcond", book.Market)
	assert.Equal(t, int64(1724932800000), book.Timestamp)
	assert.True(t, book.BestBid.Equal(decimal.NewFromFloat(0.52)), "best bid is the highest bid")
	assert.True(t, book.BestAsk.Equal(decimal.NewFromFloat(0.53)), "best ask is the lowest ask")
	assert.Len(t, book.Bids, 2)
}

func TestParseMessage_BookEmptySides(t *testing.T) {
	msg := parseRaw(t, `{"event_type": "book", "asset_id": "token-1"}`)
	book := msg.(Book)
	assert.True(t, book.BestBid.IsZero())
	assert.True(t, book.BestAsk.IsZero())
}

func TestParseMessage_PriceChange(t *testing.T) {
	raw := `{"event_type": "price_change", "asset_id": "token-2", "price": "0.71", "side": "BUY", "size": "25", "timestamp": "1724932800001"}`

	msg := parseRaw(t, raw)
	require.Equal(t, KindPriceChange, msg.Kind())

	pc := msg.(PriceChange)
	assert.True(t, pc.Price.Equal(decimal.NewFromFloat(0.71)))
	assert.Equal(t, "BUY", pc.Side)
	assert.Equal(t, "token-2", pc.Asset())
}

func TestParseMessage_LastTradePrice(t *testing.T) {
	raw := `{"event_type": "last_trade_price", "asset_id": "token-3", "price": "0.85", "timestamp": "1724932800002"}`

	msg := parseRaw(t, raw)
	require.Equal(t, KindLastTradePrice, msg.Kind())

	ltp := msg.(LastTradePrice)
	assert.True(t, ltp.Price.Equal(decimal.NewFromFloat(0.85)))
}

func TestParseMessage_UnknownType(t *testing.T) {
	raw := `{"type": "tick_size_change", "asset_id": "token-4"}`

	msg := parseRaw(t, raw)
	require.Equal(t, KindUnknown, msg.Kind())

	u := msg.(Unknown)
	assert.Equal(t, "tick_size_change", u.EventType)
	assert.NotEmpty(t, u.Raw)
}

func TestParseMessage_BadNumbersDegradeToZero(t *testing.T) {
	raw := `{"event_type": "last_trade_price", "asset_id": "token-5", "price": "garbage", "timestamp": "nope"}`

	ltp := parseRaw(t, raw).(LastTradePrice)
	assert.True(t, ltp.Price.IsZero())
	assert.Equal(t, int64(0), ltp.Timestamp)
}
