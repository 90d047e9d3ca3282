package ingest

import (
	"github.com/ksred/recon-api/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mutableColumns are the derived fields a re-ingested key is allowed to
// overwrite. The identity columns never change.
var mutableColumns = []string{
	"price",
	"quantity",
	"total_value",
	"is_complete",
	"updated_at",
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// UpsertTradeBatch applies one batch of staged trades as a single
// transaction: every row lands or none do. Rows conflicting on the
// (trade_number, fill_sequence) key overwrite their mutable columns only.
func (d *Database) UpsertTradeBatch(records []*types.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "trade_number"},
			{Name: "fill_sequence"},
		},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}).Create(&records).Error
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// GetTradeRecord retrieves a staged trade by its composite key.
func (d *Database) GetTradeRecord(tradeNumber string, fillSequence int) (*types.TradeRecord, error) {
	var record types.TradeRecord
	err := d.db.Where("trade_number = ? AND fill_sequence = ?", tradeNumber, fillSequence).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CountTradeRecords returns the number of staged trades.
func (d *Database) CountTradeRecords() (int64, error) {
	var count int64
	if err := d.db.Model(&types.TradeRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
