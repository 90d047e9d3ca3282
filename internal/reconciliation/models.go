package reconciliation

import (
	"github.com/shopspring/decimal"
)

// Status classifies one reconciliation row. The set is exhaustive: any new
// status must be added here and to the risk mapping, never matched by
// partial text.
type Status string

const (
	StatusMatched           Status = "MATCHED"
	StatusDiscrepancy       Status = "DISCREPANCY"
	StatusMissingInBank     Status = "MISSING_IN_BANK"
	StatusMissingInExchange Status = "MISSING_IN_EXCHANGE"
)

// RiskLabel is the business-risk annotation of a critical alert, a total
// mapping from Status.
type RiskLabel string

const (
	// RiskLeakage marks revenue leakage: a trade exists but no bank record.
	RiskLeakage RiskLabel = "LEAKAGE"
	// RiskOverpayment marks a bank record without a matching trade.
	RiskOverpayment RiskLabel = "OVERPAYMENT"
	// RiskValueMismatch marks a financial gap between the two sides.
	RiskValueMismatch RiskLabel = "VALUE_MISMATCH"
	// RiskNone is the defensive label for matched rows.
	RiskNone RiskLabel = "NONE"
)

// ReportRow is one pre-joined row as read from the reconciliation report
// view. The join itself is external to this package; both sides may be
// absent independently, never both.
type ReportRow struct {
	RecordRef     string              `gorm:"column:record_ref" json:"record_ref"`
	Product       string              `gorm:"column:product" json:"product"`
	Counterparty  string              `gorm:"column:counterparty" json:"counterparty"`
	BankValue     decimal.NullDecimal `gorm:"column:bank_value" json:"bank_value"`
	ExchangeValue decimal.NullDecimal `gorm:"column:exchange_value" json:"exchange_value"`
}

// Row is a classified reconciliation row. ValueDiff follows one signed
// convention everywhere: bank value minus exchange value, with an absent
// side taken as zero.
type Row struct {
	RecordRef     string              `json:"record_ref"`
	Product       string              `json:"product"`
	Counterparty  string              `json:"counterparty"`
	BankValue     decimal.NullDecimal `json:"bank_value"`
	ExchangeValue decimal.NullDecimal `json:"exchange_value"`
	ValueDiff     decimal.Decimal     `json:"value_diff"`
	Status        Status              `json:"status"`
}

// Alert is a row that passed the critical filter, annotated with its
// business risk.
type Alert struct {
	Row
	Risk RiskLabel `json:"risk"`
}

// SummaryStats aggregates one reconciliation run. TotalDiscrepancyAmount
// sums absolute differences over all rows, not only the alerted ones.
type SummaryStats struct {
	TotalRecords           int             `json:"total_records"`
	Matched                int             `json:"matched"`
	Discrepancies          int             `json:"discrepancies"`
	MissingInBank          int             `json:"missing_in_bank"`
	MissingInExchange      int             `json:"missing_in_exchange"`
	CriticalAlerts         int             `json:"critical_alerts"`
	TotalDiscrepancyAmount decimal.Decimal `json:"total_discrepancy_amount"`
}

// Report is the full outcome of one reconciliation pass.
type Report struct {
	Rows    []Row        `json:"rows"`
	Alerts  []Alert      `json:"alerts"`
	Summary SummaryStats `json:"summary"`
}
