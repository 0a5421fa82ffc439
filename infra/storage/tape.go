// Package storage keeps the trade tape in SQLite.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"matchbook/domain/event"
)

// TradeRecord is one execution on the tape.
type TradeRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Seq       uint64 `gorm:"uniqueIndex"`
	Symbol    string `gorm:"index"`
	InboundID uint64
	MatchedID uint64
	Buy       bool
	Price     int64
	Quantity  int64
	Cost      int64
	CreatedAt time.Time
}

// Tape persists fills and answers session queries over them.
type Tape struct {
	db *gorm.DB
}

// Open creates the database file and its directory if needed.
func Open(path string) (*Tape, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Tape{db: db}, nil
}

func (t *Tape) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record writes a fill event. Other kinds are ignored.
func (t *Tape) Record(e event.Event) error {
	if e.Kind != event.KindFill {
		return nil
	}
	rec := TradeRecord{
		Seq:       e.Seq,
		Symbol:    e.Symbol,
		InboundID: e.OrderID,
		MatchedID: e.MatchedID,
		Buy:       e.Buy,
		Price:     int64(e.Price),
		Quantity:  int64(e.Quantity),
		Cost:      int64(e.Cost),
		CreatedAt: time.UnixMilli(e.Time),
	}
	return t.db.Create(&rec).Error
}

// Recent returns up to limit trades for symbol, newest first.
func (t *Tape) Recent(symbol string, limit int) ([]TradeRecord, error) {
	var out []TradeRecord
	err := t.db.Where("symbol = ?", symbol).Order("seq desc").Limit(limit).Find(&out).Error
	return out, err
}

// Volume is the total traded quantity and notional for symbol.
type Volume struct {
	Trades   int64
	Quantity int64
	Cost     int64
}

func (t *Tape) Volume(symbol string) (Volume, error) {
	var v Volume
	err := t.db.Model(&TradeRecord{}).
		Select("count(*) as trades, coalesce(sum(quantity), 0) as quantity, coalesce(sum(cost), 0) as cost").
		Where("symbol = ?", symbol).
		Scan(&v).Error
	return v, err
}
