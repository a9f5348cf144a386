// Polywatch - 15-minute window monitor for Polymarket
//
// Watches the current Polymarket prediction window over the CLOB WebSocket
// feed, fires an alert when one side trades at or above the configured
// threshold, and optionally buys that side with a fill-or-kill order.
// Position size compounds on each side reversal within a window.
package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/polywatch/internal/clob"
	"github.com/web3guy0/polywatch/internal/config"
	"github.com/web3guy0/polywatch/internal/database"
	"github.com/web3guy0/polywatch/internal/gamma"
	"github.com/web3guy0/polywatch/internal/monitor"
	"github.com/web3guy0/polywatch/internal/notify"
	"github.com/web3guy0/polywatch/internal/trading"
)

const version = "1.2.0"

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Config check mode: validate and print the effective config, then exit
	if len(os.Args) > 1 && os.Args[1] == "--check-config" {
		log.Info().
			Str("threshold", cfg.OpportunityThreshold.String()).
			Float64("reversal_factor", cfg.ReversalFactor).
			Str("shares", cfg.SharesToTrade.String()).
			Int("monitor_start_minutes", cfg.MonitorStartMinutes).
			Strs("series_ids", cfg.SeriesIDs).
			Bool("dry_run", cfg.DryRun).
			Msg("Configuration OK")
		return
	}

	if len(cfg.SeriesIDs) == 0 {
		log.Warn().Msg("⚠️ No SERIES_IDS configured, discovery will find nothing")
	}

	log.Info().
		Str("version", version).
		Str("threshold", cfg.OpportunityThreshold.String()).
		Float64("reversal_factor", cfg.ReversalFactor).
		Bool("dry_run", cfg.DryRun).
		Msg("⚡ Polywatch starting...")

	// Database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Trades stuck in pending from a previous run never filled (FOK).
	if _, err := db.ReconcilePending(time.Minute); err != nil {
		log.Warn().Err(err).Msg("⚠️ Trade reconciliation failed")
	}

	// Notifiers: console always, Telegram when configured, trading when
	// credentials are present.
	notifiers := notify.NewMulti(notify.NewConsole())

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Telegram disabled")
		} else {
			notifiers.Add(tg)
			log.Info().Msg("📱 Telegram alerts enabled")
		}
	}

	executor := buildExecutor(cfg, db)
	if executor != nil {
		notifiers.Add(executor)
	}

	controller := monitor.NewController(monitor.Options{
		Discovery:      gamma.NewClient(cfg.GammaAPIURL),
		Notifier:       notifiers,
		DB:             db,
		WSURL:          cfg.WSURL,
		SeriesIDs:      cfg.SeriesIDs,
		Threshold:      cfg.OpportunityThreshold,
		ReversalFactor: cfg.ReversalFactor,
		LeadMinutes:    cfg.MonitorStartMinutes,
	})
	go controller.Run()

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("🛑 Shutting down...")

	controller.Stop(10 * time.Second)
	if executor != nil {
		executor.Wait()
	}
	log.Info().Msg("👋 Goodbye")
}

// buildExecutor wires the trading path when wallet and API credentials are
// configured. Returns nil when trading should stay disabled.
func buildExecutor(cfg *config.Config, db *database.Database) *trading.Executor {
	if cfg.WalletPrivateKey == "" || cfg.CLOBApiKey == "" || cfg.CLOBApiSecret == "" {
		log.Warn().Msg("⚠️ No trading credentials, alerts only")
		return nil
	}

	pk := strings.TrimPrefix(cfg.WalletPrivateKey, "0x")
	privateKey, err := crypto.HexToECDSA(pk)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Invalid wallet key, trading disabled")
		return nil
	}

	signer := clob.NewSigner(privateKey, common.HexToAddress(cfg.FunderAddress), cfg.SignatureType)
	client := clob.NewClient(cfg.CLOBAPIURL, clob.Credentials{
		APIKey:     cfg.CLOBApiKey,
		Secret:     cfg.CLOBApiSecret,
		Passphrase: cfg.CLOBPassphrase,
	}, signer)

	if cfg.DryRun {
		log.Info().Msg("🧪 Dry run mode, orders will be logged but not placed")
	} else {
		log.Info().Msg("💳 Trading enabled")
	}
	return trading.NewExecutor(client, db, cfg.SharesToTrade, cfg.DryRun)
}
