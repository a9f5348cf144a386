package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/polywatch/internal/engine"
)

// Telegram sends opportunity alerts to a single chat. Send-only: no
// command loop.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates a Telegram notifier from a bot token and chat id.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram notifier initialized")
	return &Telegram{api: api, chatID: chatID}, nil
}

// Notify sends a Markdown-formatted alert message.
func (t *Telegram) Notify(opp engine.Opportunity, multiplier float64) bool {
	emoji := "🟢"
	if opp.Side != "YES" && opp.Side != "Up" {
		emoji = "🔴"
	}

	text := fmt.Sprintf(`%s *OPPORTUNITY DETECTED*

Market: `+"`%s`"+`
Side: *%s*
Price: *$%s*
Multiplier: *%.2fx*
Source: %s`,
		emoji,
		opp.MarketID,
		opp.Side,
		opp.Price.StringFixed(2),
		multiplier,
		opp.Source,
	)

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := t.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram alert")
		return false
	}
	return true
}
