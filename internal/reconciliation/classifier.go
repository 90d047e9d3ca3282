package reconciliation

import (
	"errors"
	"fmt"
)

// ErrNoValues reports a joined row carrying neither a bank nor an exchange
// value. The join should never produce one; treat it as a failed run rather
// than classifying it silently.
var ErrNoValues = errors.New("reconciliation row has neither bank nor exchange value")

// Classify turns one joined row into a classified Row. It is pure and
// total: every row gets exactly one status, decided solely by which sides
// are present and, when both are, by exact decimal equality of the values.
//
// Signed convention: ValueDiff = bank value - exchange value, with the
// absent side taken as zero. A MISSING_IN_BANK row therefore carries a
// negative diff of the exchange magnitude (leakage), a MISSING_IN_EXCHANGE
// row a positive diff of the bank magnitude (overpayment).
func Classify(report ReportRow) (Row, error) {
	row := Row{
		RecordRef:     report.RecordRef,
		Product:       report.Product,
		Counterparty:  report.Counterparty,
		BankValue:     report.BankValue,
		ExchangeValue: report.ExchangeValue,
	}

	switch {
	case !report.BankValue.Valid && !report.ExchangeValue.Valid:
		return Row{}, fmt.Errorf("record %s: %w", report.RecordRef, ErrNoValues)

	case !report.BankValue.Valid:
		row.Status = StatusMissingInBank
		row.ValueDiff = report.ExchangeValue.Decimal.Neg()

	case !report.ExchangeValue.Valid:
		row.Status = StatusMissingInExchange
		row.ValueDiff = report.BankValue.Decimal

	default:
		row.ValueDiff = report.BankValue.Decimal.Sub(report.ExchangeValue.Decimal)
		if row.ValueDiff.IsZero() {
			row.Status = StatusMatched
		} else {
			row.Status = StatusDiscrepancy
		}
	}

	return row, nil
}

// ClassifyAll classifies a full joined dataset. The first defective row
// fails the whole pass; partial classification is never returned.
func ClassifyAll(reports []ReportRow) ([]Row, error) {
	rows := make([]Row, 0, len(reports))
	for _, report := range reports {
		row, err := Classify(report)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
