package migrations

import (
	"gorm.io/gorm"
)

// CreateReconciliationReport (re)creates the reconciliation_report view.
//
// The exchange side aggregates staged trade values per trade number; the
// bank side comes from bank_records keyed by bank_ref. The two legs are
// full-outer joined via LEFT JOIN plus the anti-joined bank remainder,
// which keeps the view portable across SQLite versions. Consumers treat
// the view as an opaque row source; classification happens in Go.
//
// Trades with no priced fill are excluded from the exchange leg so the
// view never yields a row with both sides NULL.
func CreateReconciliationReport(db *gorm.DB) error {
	if err := db.Exec(`DROP VIEW IF EXISTS reconciliation_report`).Error; err != nil {
		return err
	}

	return db.Exec(`
		CREATE VIEW reconciliation_report AS
		WITH exchange_side AS (
			SELECT
				trade_number,
				MAX(product) AS product,
				MAX(counterparty) AS counterparty,
				SUM(total_value) AS exchange_value
			FROM trade_records
			WHERE deleted_at IS NULL AND total_value IS NOT NULL
			GROUP BY trade_number
		)
		SELECT
			e.trade_number AS record_ref,
			COALESCE(b.product, e.product) AS product,
			COALESCE(b.counterparty, e.counterparty) AS counterparty,
			b.bank_value AS bank_value,
			e.exchange_value AS exchange_value
		FROM exchange_side e
		LEFT JOIN bank_records b
			ON b.bank_ref = e.trade_number AND b.deleted_at IS NULL
		UNION ALL
		SELECT
			b.bank_ref AS record_ref,
			b.product AS product,
			b.counterparty AS counterparty,
			b.bank_value AS bank_value,
			NULL AS exchange_value
		FROM bank_records b
		WHERE b.deleted_at IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM exchange_side e WHERE e.trade_number = b.bank_ref
			)
	`).Error
}
