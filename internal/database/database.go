// Package database persists detected opportunities and trade outcomes.
package database

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	db *gorm.DB
}

// Trade statuses.
const (
	TradeStatusPending = "pending"
	TradeStatusFilled  = "filled"
	TradeStatusFailed  = "failed"
)

// Models

type Opportunity struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	MarketID   string `gorm:"index"`
	TokenID    string
	Question   string
	Side       string          // "YES" or "NO"
	Price      decimal.Decimal `gorm:"type:decimal(10,6)"`
	Source     string          // "bid" or "last_trade"
	Multiplier decimal.Decimal `gorm:"type:decimal(10,4)"`
	CreatedAt  time.Time
}

type Trade struct {
	ID           string `gorm:"primaryKey"` // client-side uuid
	MarketID     string `gorm:"index"`
	TokenID      string
	Side         string
	Shares       decimal.Decimal `gorm:"type:decimal(20,6)"`
	Price        decimal.Decimal `gorm:"type:decimal(10,6)"`
	Status       string          `gorm:"index"`
	OrderID      string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New opens the database. A postgres:// DSN gets a PostgreSQL connection,
// anything else is treated as a SQLite file path.
func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connected (PostgreSQL)")
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&Opportunity{}, &Trade{}); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// Opportunity operations

func (d *Database) SaveOpportunity(opp *Opportunity) error {
	return d.db.Create(opp).Error
}

func (d *Database) RecentOpportunities(limit int) ([]Opportunity, error) {
	var opps []Opportunity
	err := d.db.Order("created_at DESC").Limit(limit).Find(&opps).Error
	return opps, err
}

// Trade operations

func (d *Database) CreateTrade(trade *Trade) error {
	return d.db.Create(trade).Error
}

func (d *Database) MarkTradeFilled(id, orderID string) error {
	return d.db.Model(&Trade{}).Where("id = ?", id).Updates(map[string]any{
		"status":   TradeStatusFilled,
		"order_id": orderID,
	}).Error
}

func (d *Database) MarkTradeFailed(id, errMsg string) error {
	return d.db.Model(&Trade{}).Where("id = ?", id).Updates(map[string]any{
		"status":        TradeStatusFailed,
		"error_message": errMsg,
	}).Error
}

func (d *Database) PendingTrades() ([]Trade, error) {
	var trades []Trade
	err := d.db.Where("status = ?", TradeStatusPending).Find(&trades).Error
	return trades, err
}

// ReconcilePending marks pending trades older than maxAge as failed. FOK
// orders either fill or die within seconds, so a trade stuck in pending
// across a restart never completed.
func (d *Database) ReconcilePending(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := d.db.Model(&Trade{}).
		Where("status = ? AND created_at < ?", TradeStatusPending, cutoff).
		Updates(map[string]any{
			"status":        TradeStatusFailed,
			"error_message": "orphaned on restart",
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		log.Warn().Int64("count", res.RowsAffected).Msg("⚠️ Reconciled orphaned pending trades")
	}
	return res.RowsAffected, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
