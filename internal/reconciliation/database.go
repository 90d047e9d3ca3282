package reconciliation

import (
	"fmt"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// FetchReportRows reads the pre-joined reconciliation dataset. How the two
// feeds are joined is the view's business; this layer only consumes rows.
// A failure here is fatal to the run.
func (d *Database) FetchReportRows() ([]ReportRow, error) {
	var rows []ReportRow
	err := d.db.
		Raw(`SELECT record_ref, product, counterparty, bank_value, exchange_value
			 FROM reconciliation_report`).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliation report: %w", err)
	}
	return rows, nil
}
