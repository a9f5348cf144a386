package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the monitor
type Config struct {
	// Opportunity detection
	OpportunityThreshold decimal.Decimal // e.g. 0.70 = alert when a token trades at 70¢+
	ReversalFactor       float64         // sizing multiplier compounded on each side flip
	SharesToTrade        decimal.Decimal // base share count per signal

	// Window timing
	MonitorStartMinutes int // minutes before window end to begin monitoring

	// Market selection
	SeriesIDs []string // Gamma series IDs to discover markets from

	// API endpoints
	GammaAPIURL string
	CLOBAPIURL  string
	WSURL       string

	// CLOB credentials
	CLOBApiKey     string
	CLOBApiSecret  string
	CLOBPassphrase string

	// Wallet
	WalletPrivateKey string
	FunderAddress    string
	SignatureType    int // 0=EOA, 1=Magic/Email, 2=Proxy

	// Telegram (optional, alerts only)
	TelegramToken  string
	TelegramChatID int64

	// Database
	DatabasePath string

	// Mode
	DryRun bool
	Debug  bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		OpportunityThreshold: getEnvDecimal("OPPORTUNITY_THRESHOLD", decimal.NewFromFloat(0.70)),
		ReversalFactor:       getEnvFloat("REVERSAL_FACTOR", 1.5),
		SharesToTrade:        getEnvDecimal("SHARES_TO_TRADE", decimal.NewFromInt(20)),

		MonitorStartMinutes: getEnvInt("MONITOR_START_MINUTES", 3),

		GammaAPIURL: getEnv("GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		CLOBAPIURL:  getEnv("CLOB_API_URL", "https://clob.polymarket.com"),
		WSURL:       getEnv("WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),

		CLOBApiKey:     os.Getenv("CLOB_API_KEY"),
		CLOBApiSecret:  os.Getenv("CLOB_API_SECRET"),
		CLOBPassphrase: os.Getenv("CLOB_PASSPHRASE"),

		WalletPrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),
		FunderAddress:    os.Getenv("FUNDER_ADDRESS"),
		SignatureType:    getEnvInt("SIGNATURE_TYPE", 0),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		DatabasePath: getEnv("DATABASE_PATH", "data/polywatch.db"),

		DryRun: getEnvBool("DRY_RUN", true),
		Debug:  getEnvBool("DEBUG", false),
	}

	// Parse comma-separated series IDs
	if raw := os.Getenv("SERIES_IDS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.SeriesIDs = append(cfg.SeriesIDs, s)
			}
		}
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.MonitorStartMinutes < 1 || cfg.MonitorStartMinutes > 15 {
		return nil, fmt.Errorf("MONITOR_START_MINUTES must be in [1,15], got %d", cfg.MonitorStartMinutes)
	}
	if cfg.ReversalFactor < 1.0 {
		return nil, fmt.Errorf("REVERSAL_FACTOR must be >= 1.0, got %v", cfg.ReversalFactor)
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
