package alerting_test

import (
	"errors"
	"testing"

	"github.com/ksred/recon-api/internal/alerting"
	"github.com/ksred/recon-api/internal/config"
	"github.com/ksred/recon-api/internal/reconciliation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) Send(alerts []reconciliation.Alert, stats reconciliation.SummaryStats) error {
	f.calls++
	return f.err
}

func sampleAlert() reconciliation.Alert {
	return reconciliation.Alert{
		Row: reconciliation.Row{
			RecordRef:    "T002",
			Product:      "WTI-CRUDE",
			Counterparty: "Macquarie",
			BankValue:    decimal.NullDecimal{Decimal: decimal.NewFromInt(500), Valid: true},
			ExchangeValue: decimal.NullDecimal{
				Decimal: decimal.NewFromInt(200), Valid: true,
			},
			ValueDiff: decimal.NewFromInt(300),
			Status:    reconciliation.StatusDiscrepancy,
		},
		Risk: reconciliation.RiskValueMismatch,
	}
}

func TestDispatch_EmptyAlertsSkipsNotifier(t *testing.T) {
	notifier := &fakeNotifier{}
	dispatcher := alerting.NewDispatcher(notifier)

	dispatcher.Dispatch(nil, reconciliation.SummaryStats{})

	assert.Equal(t, 0, notifier.calls, "no notification attempt for an empty alert set")
}

func TestDispatch_DeliversToNotifier(t *testing.T) {
	notifier := &fakeNotifier{}
	dispatcher := alerting.NewDispatcher(notifier)

	dispatcher.Dispatch([]reconciliation.Alert{sampleAlert()}, reconciliation.SummaryStats{
		TotalRecords:           2,
		CriticalAlerts:         1,
		TotalDiscrepancyAmount: decimal.NewFromInt(300),
	})

	assert.Equal(t, 1, notifier.calls)
}

func TestDispatch_NotifierFailureIsSwallowed(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	dispatcher := alerting.NewDispatcher(notifier)

	// Must not panic or propagate
	dispatcher.Dispatch([]reconciliation.Alert{sampleAlert()}, reconciliation.SummaryStats{})

	assert.Equal(t, 1, notifier.calls)
}

func TestDispatch_NoNotifierConfigured(t *testing.T) {
	dispatcher := alerting.NewDispatcher(nil)

	// Console-only mode: dispatch and summary must work without a channel
	dispatcher.Dispatch([]reconciliation.Alert{sampleAlert()}, reconciliation.SummaryStats{})
	dispatcher.PrintSummary(reconciliation.SummaryStats{TotalRecords: 1})
}

func TestEmailNotifier_ConfigurationGuards(t *testing.T) {
	stats := reconciliation.SummaryStats{CriticalAlerts: 1}
	alerts := []reconciliation.Alert{sampleAlert()}

	tests := []struct {
		name    string
		cfg     config.EmailConfig
		wantErr error
	}{
		{
			name:    "disabled",
			cfg:     config.EmailConfig{Enabled: false},
			wantErr: alerting.ErrEmailDisabled,
		},
		{
			name:    "no recipients",
			cfg:     config.EmailConfig{Enabled: true},
			wantErr: alerting.ErrNoRecipients,
		},
		{
			name: "missing credentials",
			cfg: config.EmailConfig{
				Enabled: true,
				To:      []string{"ops@company.com"},
			},
			wantErr: alerting.ErrMissingSMTPCreds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := alerting.NewEmailNotifier(tt.cfg)
			err := notifier.Send(alerts, stats)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
