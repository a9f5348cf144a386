// Package trading turns detected opportunities into CLOB orders.
package trading

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/polywatch/internal/clob"
	"github.com/web3guy0/polywatch/internal/database"
	"github.com/web3guy0/polywatch/internal/engine"
)

// orderTimeout bounds a single FOK submission. Orders this late in a
// window are worthless if they take longer than this to place.
const orderTimeout = 15 * time.Second

// OrderPlacer places buy orders on the exchange.
type OrderPlacer interface {
	BuyFOK(ctx context.Context, tokenID string, price, size decimal.Decimal) (*clob.OrderResponse, error)
}

// Executor buys shares when an opportunity fires. It implements
// notify.Notifier so it can sit in the same fan-out as the alert channels.
// Each trade runs in its own goroutine so order placement never blocks
// the market data path.
type Executor struct {
	client OrderPlacer
	db     *database.Database
	shares decimal.Decimal
	dryRun bool

	wg sync.WaitGroup
}

func NewExecutor(client OrderPlacer, db *database.Database, sharesToTrade decimal.Decimal, dryRun bool) *Executor {
	return &Executor{
		client: client,
		db:     db,
		shares: sharesToTrade,
		dryRun: dryRun,
	}
}

// Notify dispatches a trade for the opportunity and returns immediately.
// The reversal multiplier scales position size: a market that flipped N
// times trades factor^N times the base share count.
func (e *Executor) Notify(opp engine.Opportunity, multiplier float64) bool {
	shares := e.shares.Mul(decimal.NewFromFloat(multiplier))

	if e.dryRun {
		log.Info().
			Str("market", opp.MarketID).
			Str("side", opp.Side).
			Str("shares", shares.String()).
			Str("price", opp.Price.String()).
			Msg("🧪 Dry run, skipping order")
		return true
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.execute(opp, shares)
	}()
	return true
}

func (e *Executor) execute(opp engine.Opportunity, shares decimal.Decimal) {
	tradeID := uuid.NewString()

	if e.db != nil {
		err := e.db.CreateTrade(&database.Trade{
			ID:       tradeID,
			MarketID: opp.MarketID,
			TokenID:  opp.TokenID,
			Side:     opp.Side,
			Shares:   shares,
			Price:    opp.Price,
			Status:   database.TradeStatusPending,
		})
		if err != nil {
			log.Error().Err(err).Str("trade_id", tradeID).Msg("Failed to record trade")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), orderTimeout)
	defer cancel()

	resp, err := e.client.BuyFOK(ctx, opp.TokenID, opp.Price, shares)
	if err != nil {
		log.Error().Err(err).
			Str("market", opp.MarketID).
			Str("side", opp.Side).
			Msg("❌ Order failed")
		if e.db != nil {
			if dbErr := e.db.MarkTradeFailed(tradeID, err.Error()); dbErr != nil {
				log.Error().Err(dbErr).Str("trade_id", tradeID).Msg("Failed to update trade")
			}
		}
		return
	}

	log.Info().
		Str("market", opp.MarketID).
		Str("side", opp.Side).
		Str("shares", shares.String()).
		Str("order_id", resp.OrderID).
		Str("status", resp.Status).
		Msg("✅ Order filled")
	if e.db != nil {
		if dbErr := e.db.MarkTradeFilled(tradeID, resp.OrderID); dbErr != nil {
			log.Error().Err(dbErr).Str("trade_id", tradeID).Msg("Failed to update trade")
		}
	}
}

// Wait blocks until all in-flight trades finish. Called on shutdown.
func (e *Executor) Wait() {
	e.wg.Wait()
}
