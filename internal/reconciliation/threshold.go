package reconciliation

import (
	"github.com/shopspring/decimal"
)

// ThresholdEngine filters classified rows into the critical-alert subset and
// computes summary statistics over the full dataset.
type ThresholdEngine struct {
	threshold decimal.Decimal
}

// NewThresholdEngine creates an engine with the given non-negative alert
// threshold.
func NewThresholdEngine(threshold decimal.Decimal) *ThresholdEngine {
	if threshold.IsNegative() {
		threshold = decimal.Zero
	}
	return &ThresholdEngine{threshold: threshold}
}

// Evaluate produces the critical subset and summary stats for one run.
// A row is critical when its absolute difference meets the threshold, or
// unconditionally when a side is missing, even at a zero diff. The total
// discrepancy amount sums absolute differences over every row regardless of
// criticality.
func (e *ThresholdEngine) Evaluate(rows []Row) ([]Alert, SummaryStats) {
	stats := SummaryStats{
		TotalRecords:           len(rows),
		TotalDiscrepancyAmount: decimal.Zero,
	}

	var alerts []Alert
	for _, row := range rows {
		switch row.Status {
		case StatusMatched:
			stats.Matched++
		case StatusDiscrepancy:
			stats.Discrepancies++
		case StatusMissingInBank:
			stats.MissingInBank++
		case StatusMissingInExchange:
			stats.MissingInExchange++
		}

		stats.TotalDiscrepancyAmount = stats.TotalDiscrepancyAmount.Add(row.ValueDiff.Abs())

		if e.isCritical(row) {
			alerts = append(alerts, Alert{Row: row, Risk: riskFor(row.Status)})
		}
	}

	stats.CriticalAlerts = len(alerts)
	return alerts, stats
}

// Threshold returns the configured alert threshold.
func (e *ThresholdEngine) Threshold() decimal.Decimal {
	return e.threshold
}

func (e *ThresholdEngine) isCritical(row Row) bool {
	if row.Status == StatusMissingInBank || row.Status == StatusMissingInExchange {
		return true
	}
	return row.ValueDiff.Abs().GreaterThanOrEqual(e.threshold)
}

// riskFor maps a status to its business-risk label. Total over the Status
// enum; matched rows get RiskNone should they ever reach the critical set.
func riskFor(status Status) RiskLabel {
	switch status {
	case StatusMissingInBank:
		return RiskLeakage
	case StatusMissingInExchange:
		return RiskOverpayment
	case StatusDiscrepancy:
		return RiskValueMismatch
	default:
		return RiskNone
	}
}
