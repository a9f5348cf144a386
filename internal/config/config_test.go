package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.OpportunityThreshold.Equal(decimal.NewFromFloat(0.70)))
	assert.Equal(t, 1.5, cfg.ReversalFactor)
	assert.Equal(t, 3, cfg.MonitorStartMinutes)
	assert.True(t, cfg.DryRun)
	assert.Empty(t, cfg.SeriesIDs)
	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.GammaAPIURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPPORTUNITY_THRESHOLD", "0.85")
	t.Setenv("REVERSAL_FACTOR", "2.0")
	t.Setenv("MONITOR_START_MINUTES", "5")
	t.Setenv("SERIES_IDS", "10423, 10424,,10425")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123456")
	t.Setenv("DRY_RUN", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.OpportunityThreshold.Equal(decimal.NewFromFloat(0.85)))
	assert.Equal(t, 2.0, cfg.ReversalFactor)
	assert.Equal(t, 5, cfg.MonitorStartMinutes)
	assert.Equal(t, []string{"10423", "10424", "10425"}, cfg.SeriesIDs)
	assert.Equal(t, int64(-100123456), cfg.TelegramChatID)
	assert.False(t, cfg.DryRun)
}

func TestLoad_InvalidChatID(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidMonitorStart(t *testing.T) {
	t.Setenv("MONITOR_START_MINUTES", "20")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ReversalFactorBelowOne(t *testing.T) {
	t.Setenv("REVERSAL_FACTOR", "0.5")

	_, err := Load()
	assert.Error(t, err)
}
