// Package gamma discovers tradable markets via the Polymarket Gamma API.
//
// Discovery is series-based: a series groups all recurring instances of a
// market that differ only in the time period they cover. For each configured
// series we fetch its open events, pick the event whose closing time covers
// "now", and extract that event's markets and outcome tokens.
package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

const requestTimeout = 10 * time.Second

// How far around "now" an event's closing time may fall to count as the
// current event: closing within the next 15 minutes, or closed within the
// last 2 (feeds can lag across the boundary).
const (
	maxClosingWindow = 15 * time.Minute
	closedGrace      = 2 * time.Minute
)

// Token is one outcome token of a market.
type Token struct {
	TokenID string
	Outcome string // e.g. "Up", "Down", "Yes", "No"
}

// Market is a tradable market discovered for the current window. Immutable
// for the duration of one lifecycle cycle.
type Market struct {
	ID          string // condition id
	Question    string
	Slug        string
	ClosingTime *time.Time // nil when the event title could not be parsed
	NegRisk     bool
	Tokens      []Token
}

// Client queries the Gamma API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Gamma API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// gammaEvent mirrors the /events response shape. Token ids, outcomes and
// prices arrive as JSON-encoded strings inside the JSON document.
type gammaEvent struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Closed  bool   `json:"closed"`
	EndDate string `json:"endDate"`
	Markets []struct {
		ID           string `json:"id"`
		ConditionID  string `json:"conditionId"`
		Question     string `json:"question"`
		Slug         string `json:"slug"`
		Outcomes     string `json:"outcomes"`
		ClobTokenIds string `json:"clobTokenIds"`
		NegRisk      bool   `json:"negRisk"`
	} `json:"markets"`
}

// CurrentMarkets returns the markets from the current event of every
// configured series. A series with no current event contributes nothing;
// the result may be empty.
func (c *Client) CurrentMarkets(ctx context.Context, seriesIDs []string) ([]Market, error) {
	now := time.Now()
	var all []Market

	for _, seriesID := range seriesIDs {
		events, err := c.eventsBySeries(ctx, seriesID)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", seriesID, err)
		}

		event, closing := currentEvent(events, now)
		if event == nil {
			log.Warn().Str("series", seriesID).Msg("No event covering the current window")
			continue
		}

		markets := eventMarkets(event, closing)
		log.Info().
			Str("series", seriesID).
			Str("event", event.Title).
			Int("markets", len(markets)).
			Msg("Discovered current event")
		all = append(all, markets...)
	}

	return all, nil
}

// eventsBySeries fetches open events for one series.
func (c *Client) eventsBySeries(ctx context.Context, seriesID string) ([]gammaEvent, error) {
	u := fmt.Sprintf("%s/events?series_id=%s&closed=false", c.baseURL, url.QueryEscape(seriesID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("events request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("events request returned %d", resp.StatusCode)
	}

	var events []gammaEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}
	return events, nil
}

// currentEvent picks the event whose closing time is closest to now,
// preferring events that close in the future over ones that just closed.
// The selected event's closing time is returned alongside it.
func currentEvent(events []gammaEvent, now time.Time) (*gammaEvent, *time.Time) {
	type candidate struct {
		event   *gammaEvent
		closing time.Time
		toClose time.Duration
	}
	var candidates []candidate

	for i := range events {
		ev := &events[i]
		if ev.Closed {
			continue
		}
		closing := ParseClosingTime(ev.Title, now)
		if closing == nil {
			log.Debug().Str("title", ev.Title).Msg("Could not parse closing time from event title")
			continue
		}
		toClose := closing.Sub(now)
		if toClose < -closedGrace || toClose > maxClosingWindow {
			continue
		}
		candidates = append(candidates, candidate{ev, *closing, toClose})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		// Future closings first, then nearest.
		if (ci.toClose >= 0) != (cj.toClose >= 0) {
			return ci.toClose >= 0
		}
		return absDuration(ci.toClose) < absDuration(cj.toClose)
	})
	return candidates[0].event, &candidates[0].closing
}

// eventMarkets converts an event's raw markets, attaching the given
// event-level closing time to every market.
func eventMarkets(event *gammaEvent, closing *time.Time) []Market {
	var markets []Market
	for _, raw := range event.Markets {
		var tokenIDs, outcomes []string
		if err := json.Unmarshal([]byte(raw.ClobTokenIds), &tokenIDs); err != nil {
			log.Warn().Str("market", raw.ConditionID).Err(err).Msg("Bad clobTokenIds, skipping market")
			continue
		}
		if err := json.Unmarshal([]byte(raw.Outcomes), &outcomes); err != nil {
			log.Warn().Str("market", raw.ConditionID).Err(err).Msg("Bad outcomes, skipping market")
			continue
		}
		if len(tokenIDs) != len(outcomes) || len(tokenIDs) == 0 {
			log.Warn().Str("market", raw.ConditionID).Msg("Token/outcome count mismatch, skipping market")
			continue
		}

		id := raw.ConditionID
		if id == "" {
			id = raw.ID
		}
		m := Market{
			ID:          id,
			Question:    raw.Question,
			Slug:        raw.Slug,
			ClosingTime: closing,
			NegRisk:     raw.NegRisk,
		}
		for i := range tokenIDs {
			m.Tokens = append(m.Tokens, Token{TokenID: tokenIDs[i], Outcome: outcomes[i]})
		}
		markets = append(markets, m)
	}
	return markets
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
