package database

import (
	"fmt"

	"github.com/ksred/recon-api/internal/database/migrations"
	"github.com/ksred/recon-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase initializes and returns a new GORM DB connection backed by the
// given SQLite file. The staging schema and the reconciliation report view
// are created on open.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate the staging schema
	err = db.AutoMigrate(
		&types.TradeRecord{},
		&types.BankRecord{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate staging schema: %w", err)
	}

	// Run view migrations
	if err := migrations.CreateReconciliationReport(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close releases the underlying connection pool. Safe to defer on every
// exit path of a run.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
