// Package monitor drives the market lifecycle: wait for the monitoring
// lead of each 15-minute window, discover the current markets, watch the
// price feed for opportunities, and roll over when the market closes.
package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/polywatch/internal/database"
	"github.com/web3guy0/polywatch/internal/engine"
	"github.com/web3guy0/polywatch/internal/feed"
	"github.com/web3guy0/polywatch/internal/gamma"
	"github.com/web3guy0/polywatch/internal/notify"
	"github.com/web3guy0/polywatch/internal/timing"
)

type state int

const (
	stateWaitingForWindow state = iota
	stateDiscovering
	stateMonitoring
	stateTransitioning
)

func (s state) String() string {
	switch s {
	case stateWaitingForWindow:
		return "waiting_for_window"
	case stateDiscovering:
		return "discovering"
	case stateMonitoring:
		return "monitoring"
	case stateTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// Discoverer finds the markets for the current window.
type Discoverer interface {
	CurrentMarkets(ctx context.Context, seriesIDs []string) ([]gamma.Market, error)
}

// instrument ties a token to its market and outcome side.
type instrument struct {
	market  gamma.Market
	outcome string
}

// Controller owns one monitoring lifecycle. Per-cycle state (token index,
// price caches, alert tracker, closing time) is written on the feed's
// callback goroutine and cleared on the controller goroutine, so all of it
// sits behind one mutex.
type Controller struct {
	discovery Discoverer
	notifier  notify.Notifier
	db        *database.Database
	wsURL     string
	seriesIDs []string

	threshold      decimal.Decimal
	reversalFactor float64
	leadMinutes    int

	// Tunable in tests.
	monitorTick       time.Duration
	waitSlice         time.Duration
	discoveryInterval time.Duration
	discoveryBudget   time.Duration
	feedStopTimeout   time.Duration

	mu          sync.Mutex
	index       map[string]instrument
	lastPrices  map[string]decimal.Decimal
	bestBids    map[string]decimal.Decimal
	alerts      *engine.AlertTracker
	closingTime *time.Time
	client      *feed.Client

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

type Options struct {
	Discovery      Discoverer
	Notifier       notify.Notifier
	DB             *database.Database // optional
	WSURL          string
	SeriesIDs      []string
	Threshold      decimal.Decimal
	ReversalFactor float64
	LeadMinutes    int
}

func NewController(opts Options) *Controller {
	return &Controller{
		discovery:      opts.Discovery,
		notifier:       opts.Notifier,
		db:             opts.DB,
		wsURL:          opts.WSURL,
		seriesIDs:      opts.SeriesIDs,
		threshold:      opts.Threshold,
		reversalFactor: opts.ReversalFactor,
		leadMinutes:    opts.LeadMinutes,

		monitorTick:       time.Second,
		waitSlice:         30 * time.Second,
		discoveryInterval: 5 * time.Second,
		discoveryBudget:   30 * time.Second,
		feedStopTimeout:   5 * time.Second,

		index:      make(map[string]instrument),
		lastPrices: make(map[string]decimal.Decimal),
		bestBids:   make(map[string]decimal.Decimal),
		alerts:     engine.NewAlertTracker(opts.ReversalFactor),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Run drives the lifecycle loop until Stop is called. Blocking.
func (c *Controller) Run() {
	defer close(c.doneCh)
	defer c.stopFeed()

	current := stateWaitingForWindow
	log.Info().Int("lead_minutes", c.leadMinutes).Msg("🚀 Monitor started")

	for !c.stopped() {
		switch current {
		case stateWaitingForWindow:
			current = c.waitForWindow()
		case stateDiscovering:
			current = c.discoverAndStart()
		case stateMonitoring:
			current = c.monitorUntilClose()
		case stateTransitioning:
			current = c.transition()
		}
	}
	log.Info().Msg("👋 Monitor stopped")
}

// Stop signals the loop and waits for it to finish, up to timeout.
func (c *Controller) Stop(timeout time.Duration) {
	c.stopOnce.Do(func() { close(c.stopCh) })
	select {
	case <-c.doneCh:
	case <-time.After(timeout):
		log.Warn().Dur("timeout", timeout).Msg("⚠️ Monitor did not stop in time")
	}
}

func (c *Controller) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// sleep waits d or until stop, returning false when stopped.
func (c *Controller) sleep(d time.Duration) bool {
	if d <= 0 {
		return !c.stopped()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.stopCh:
		return false
	}
}

func (c *Controller) waitForWindow() state {
	now := time.Now()
	if timing.ShouldMonitor(now, c.leadMinutes) {
		return stateDiscovering
	}
	wait := timing.TimeUntilMonitoringStarts(now, c.leadMinutes)
	if wait > c.waitSlice {
		wait = c.waitSlice
	}
	log.Debug().Dur("wait", wait).Msg("⏳ Waiting for monitoring window")
	c.sleep(wait)
	return stateWaitingForWindow
}

func (c *Controller) discoverAndStart() state {
	markets := c.discover()
	if len(markets) == 0 {
		log.Warn().Msg("🔍 No current markets found")
		c.sleep(c.discoveryInterval)
		return stateWaitingForWindow
	}
	c.startCycle(markets)
	return stateMonitoring
}

// discover queries the discovery collaborator. Errors are logged and
// treated as an empty result.
func (c *Controller) discover() []gamma.Market {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	markets, err := c.discovery.CurrentMarkets(ctx, c.seriesIDs)
	if err != nil {
		log.Error().Err(err).Msg("Discovery failed")
		return nil
	}
	return markets
}

// startCycle builds the token index from discovered markets and starts a
// fresh feed subscribed to every token.
func (c *Controller) startCycle(markets []gamma.Market) {
	index := make(map[string]instrument)
	var closing *time.Time
	assetIDs := make([]string, 0, len(markets)*2)

	for _, m := range markets {
		for _, tok := range m.Tokens {
			index[tok.TokenID] = instrument{market: m, outcome: tok.Outcome}
			assetIDs = append(assetIDs, tok.TokenID)
		}
		if m.ClosingTime != nil && (closing == nil || m.ClosingTime.Before(*closing)) {
			closing = m.ClosingTime
		}
	}

	client := feed.NewClient(c.wsURL, c.onMessage)

	c.mu.Lock()
	c.index = index
	c.closingTime = closing
	c.client = client
	c.mu.Unlock()

	client.Connect(assetIDs)
	client.Run(false)

	evt := log.Info().Int("markets", len(markets)).Int("tokens", len(assetIDs))
	if closing != nil {
		evt = evt.Time("closing", *closing)
	}
	evt.Msg("📡 Monitoring started")
}

func (c *Controller) monitorUntilClose() state {
	remaining := c.timeRemaining(time.Now())
	if remaining <= 0 {
		return stateTransitioning
	}
	tick := c.monitorTick
	if remaining < tick {
		tick = remaining
	}
	if !c.sleep(tick) {
		return stateMonitoring // loop exits on stop check
	}
	return stateMonitoring
}

// timeRemaining is the time until the active market closes, falling back
// to the current window's end when no closing time is known.
func (c *Controller) timeRemaining(now time.Time) time.Duration {
	c.mu.Lock()
	closing := c.closingTime
	c.mu.Unlock()

	if closing != nil {
		return closing.Sub(now)
	}
	return timing.TimeUntilWindowEnds(now)
}

// transition rolls over to the next market. Order matters: the feed is
// stopped and joined first, then every piece of per-cycle state is cleared
// under the mutex, and only then is discovery called again. No tick from
// the old market can land after the clear.
func (c *Controller) transition() state {
	log.Info().Msg("🔄 Market closed, transitioning")

	c.stopFeed()
	c.clearCycleState()

	deadline := time.Now().Add(c.discoveryBudget)
	for {
		if c.stopped() {
			return stateWaitingForWindow
		}
		markets := c.discover()
		if len(markets) > 0 {
			c.startCycle(markets)
			return stateMonitoring
		}
		if time.Now().Add(c.discoveryInterval).After(deadline) {
			log.Warn().Dur("budget", c.discoveryBudget).Msg("🔍 Discovery budget exhausted, waiting for next window")
			return stateWaitingForWindow
		}
		if !c.sleep(c.discoveryInterval) {
			return stateWaitingForWindow
		}
	}
}

func (c *Controller) stopFeed() {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client != nil {
		client.Stop(c.feedStopTimeout)
	}
}

func (c *Controller) clearCycleState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]instrument)
	c.lastPrices = make(map[string]decimal.Decimal)
	c.bestBids = make(map[string]decimal.Decimal)
	c.alerts.Reset()
	c.closingTime = nil
}

// onMessage runs on the feed goroutine. All per-cycle state mutation
// happens here, under the same mutex the lifecycle clear takes.
func (c *Controller) onMessage(msg feed.Message) {
	switch m := msg.(type) {
	case feed.Book:
		c.mu.Lock()
		c.bestBids[m.AssetID] = m.BestBid
		c.mu.Unlock()
		c.checkOpportunity(m.AssetID, m.BestBid, engine.SourceBid)
	case feed.PriceChange:
		// Ask-level updates are not trades. Only buy-side changes that
		// raise the best bid count as price signals.
		if !strings.EqualFold(m.Side, "BUY") {
			return
		}
		c.mu.Lock()
		best, seen := c.bestBids[m.AssetID]
		improved := !seen || m.Price.GreaterThan(best)
		if improved {
			c.bestBids[m.AssetID] = m.Price
		}
		c.mu.Unlock()
		if improved {
			c.checkOpportunity(m.AssetID, m.Price, engine.SourceBid)
		}
	case feed.LastTradePrice:
		c.mu.Lock()
		c.lastPrices[m.AssetID] = m.Price
		c.mu.Unlock()
		c.checkOpportunity(m.AssetID, m.Price, engine.SourceLastTrade)
	case feed.Unknown:
		log.Debug().Str("event_type", m.EventType).Msg("Ignoring unknown feed event")
	}
}

// checkOpportunity evaluates one price tick against the threshold and the
// reversal policy, notifying at most once per non-duplicate signal.
func (c *Controller) checkOpportunity(tokenID string, price decimal.Decimal, source string) {
	c.mu.Lock()
	inst, ok := c.index[tokenID]
	c.mu.Unlock()
	if !ok {
		// Tick for a token outside the active cycle, drop it.
		return
	}

	opp := engine.Detect(price, c.threshold, inst.market.ID, tokenID, inst.market.NegRisk, inst.outcome, source)
	if opp == nil {
		return
	}

	multiplier, duplicate := c.alerts.Register(opp.MarketID, opp.Side)
	if duplicate {
		log.Debug().
			Str("market", opp.MarketID).
			Str("side", opp.Side).
			Msg("Duplicate signal suppressed")
		return
	}

	log.Info().
		Str("market", opp.MarketID).
		Str("side", opp.Side).
		Str("price", opp.Price.String()).
		Float64("multiplier", multiplier).
		Str("source", source).
		Msg("🎯 Opportunity detected")

	if !c.notifier.Notify(*opp, multiplier) {
		log.Warn().Str("market", opp.MarketID).Msg("All notifiers failed for signal")
	}

	if c.db != nil {
		err := c.db.SaveOpportunity(&database.Opportunity{
			MarketID:   opp.MarketID,
			TokenID:    opp.TokenID,
			Question:   inst.market.Question,
			Side:       opp.Side,
			Price:      opp.Price,
			Source:     opp.Source,
			Multiplier: decimal.NewFromFloat(multiplier),
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to persist opportunity")
		}
	}
}
