// Package alerting renders reconciliation outcomes: a structured console
// report always, plus one best-effort delivery to an optional external
// notifier.
package alerting

import (
	"github.com/ksred/recon-api/internal/reconciliation"
	"github.com/rs/zerolog/log"
)

// Notifier delivers an alert report to an external channel.
type Notifier interface {
	Send(alerts []reconciliation.Alert, stats reconciliation.SummaryStats) error
}

// Dispatcher handles alerting for critical reconciliation discrepancies.
// It satisfies reconciliation.AlertSink.
type Dispatcher struct {
	notifier Notifier // nil when no external channel is configured
}

// NewDispatcher creates a dispatcher. Pass a nil notifier to run with
// console reporting only.
func NewDispatcher(notifier Notifier) *Dispatcher {
	return &Dispatcher{notifier: notifier}
}

// Dispatch renders the critical-alert report to the log and attempts one
// best-effort external delivery. An empty alert set logs a clean result and
// triggers no notification. Notification failures are logged and swallowed;
// they never alter the run outcome.
func (d *Dispatcher) Dispatch(alerts []reconciliation.Alert, stats reconciliation.SummaryStats) {
	logger := log.With().Str("component", "alert_dispatcher").Logger()

	if len(alerts) == 0 {
		logger.Info().Msg("no critical alerts - all discrepancies below threshold")
		return
	}

	logger.Warn().Int("count", len(alerts)).Msg("CRITICAL ALERTS: items require attention")
	for _, alert := range alerts {
		event := logger.Warn().
			Str("record_ref", alert.RecordRef).
			Str("product", alert.Product).
			Str("counterparty", alert.Counterparty).
			Str("status", string(alert.Status)).
			Str("value_diff", alert.ValueDiff.StringFixed(2)).
			Str("risk", string(alert.Risk))

		switch alert.Risk {
		case reconciliation.RiskLeakage:
			event.Msg("RISK: revenue leakage - trade exists but no bank record")
		case reconciliation.RiskOverpayment:
			event.Msg("RISK: overpayment - bank record exists without matching trade")
		case reconciliation.RiskValueMismatch:
			event.Msg("RISK: value mismatch - financial gap between feeds")
		default:
			event.Msg("critical alert")
		}
	}

	if d.notifier != nil {
		if err := d.notifier.Send(alerts, stats); err != nil {
			logger.Warn().Err(err).Msg("alert notification failed")
		}
	}
}

// PrintSummary logs the run's summary statistics.
func (d *Dispatcher) PrintSummary(stats reconciliation.SummaryStats) {
	log.Info().
		Str("component", "alert_dispatcher").
		Int("total_records", stats.TotalRecords).
		Int("matched", stats.Matched).
		Int("discrepancies", stats.Discrepancies).
		Int("missing_in_bank", stats.MissingInBank).
		Int("missing_in_exchange", stats.MissingInExchange).
		Int("critical_alerts", stats.CriticalAlerts).
		Str("total_discrepancy_amount", stats.TotalDiscrepancyAmount.StringFixed(2)).
		Msg("reconciliation summary")
}
