package feed

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Kind discriminates feed message variants.
type Kind string

const (
	KindBook           Kind = "book"
	KindPriceChange    Kind = "price_change"
	KindLastTradePrice Kind = "last_trade_price"
	KindUnknown        Kind = "unknown"
)

// Message is a parsed feed event. Consumers dispatch on the concrete type.
type Message interface {
	Kind() Kind
	Asset() string
}

// Level is one price level of an order book side.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Book is an order book snapshot.
type Book struct {
	AssetID   string
	Market    string
	Timestamp int64
	Hash      string
	Bids      []Level
	Asks      []Level
	BestBid   decimal.Decimal // zero when no bids
	BestAsk   decimal.Decimal // zero when no asks
}

func (Book) Kind() Kind      { return KindBook }
func (b Book) Asset() string { return b.AssetID }

// PriceChange is a single price level update.
type PriceChange struct {
	AssetID   string
	Price     decimal.Decimal
	Side      string // "BUY" or "SELL"
	Size      decimal.Decimal
	Timestamp int64
}

func (PriceChange) Kind() Kind      { return KindPriceChange }
func (p PriceChange) Asset() string { return p.AssetID }

// LastTradePrice is the price of the most recent trade.
type LastTradePrice struct {
	AssetID   string
	Price     decimal.Decimal
	Timestamp int64
}

func (LastTradePrice) Kind() Kind      { return KindLastTradePrice }
func (l LastTradePrice) Asset() string { return l.AssetID }

// Unknown carries an event type we do not consume, with its raw payload.
type Unknown struct {
	EventType string
	AssetID   string
	Raw       json.RawMessage
}

func (Unknown) Kind() Kind      { return KindUnknown }
func (u Unknown) Asset() string { return u.AssetID }

// wsEnvelope covers the fields shared by all Polymarket market-channel
// messages. Prices and timestamps arrive as strings.
type wsEnvelope struct {
	EventType string    `json:"event_type"`
	Type      string    `json:"type"`
	AssetID   string    `json:"asset_id"`
	Market    string    `json:"market"`
	Price     string    `json:"price"`
	Side      string    `json:"side"`
	Size      string    `json:"size"`
	Timestamp string    `json:"timestamp"`
	Hash      string    `json:"hash"`
	Sequence  *int64    `json:"sequence,omitempty"`
	Bids      []wsLevel `json:"bids"`
	Asks      []wsLevel `json:"asks"`
}

type wsLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

func (e *wsEnvelope) kind() string {
	if e.EventType != "" {
		return e.EventType
	}
	if e.Type != "" {
		return e.Type
	}
	return "unknown"
}

// parseMessage converts one envelope into a typed Message. The raw payload
// is kept for Unknown so callers can log or inspect it.
func parseMessage(e *wsEnvelope, raw json.RawMessage) Message {
	switch e.kind() {
	case "book":
		return parseBook(e)
	case "price_change":
		return PriceChange{
			AssetID:   e.AssetID,
			Price:     parseDecimal(e.Price),
			Side:      e.Side,
			Size:      parseDecimal(e.Size),
			Timestamp: parseTimestamp(e.Timestamp),
		}
	case "last_trade_price":
		return LastTradePrice{
			AssetID:   e.AssetID,
			Price:     parseDecimal(e.Price),
			Timestamp: parseTimestamp(e.Timestamp),
		}
	default:
		return Unknown{EventType: e.kind(), AssetID: e.AssetID, Raw: raw}
	}
}

func parseBook(e *wsEnvelope) Book {
	b := Book{
		AssetID:   e.AssetID,
		Market:    e.Market,
		Timestamp: parseTimestamp(e.Timestamp),
		Hash:      e.Hash,
		Bids:      parseLevels(e.Bids),
		Asks:      parseLevels(e.Asks),
	}

	// Best bid is the highest bid, best ask the lowest ask.
	for _, l := range b.Bids {
		if l.Price.GreaterThan(b.BestBid) {
			b.BestBid = l.Price
		}
	}
	for i, l := range b.Asks {
		if i == 0 || l.Price.LessThan(b.BestAsk) {
			b.BestAsk = l.Price
		}
	}
	return b
}

func parseLevels(raw []wsLevel) []Level {
	levels := make([]Level, 0, len(raw))
	for _, l := range raw {
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			continue
		}
		levels = append(levels, Level{Price: price, Size: parseDecimal(l.Size)})
	}
	return levels
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTimestamp(s string) int64 {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}
