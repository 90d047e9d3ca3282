package reconciliation_test

import (
	"testing"

	"github.com/ksred/recon-api/internal/reconciliation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func absent() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

func TestClassify_Totality(t *testing.T) {
	tests := []struct {
		name       string
		bank       decimal.NullDecimal
		exchange   decimal.NullDecimal
		wantStatus reconciliation.Status
		wantDiff   string
	}{
		{"equal values match", value("1000"), value("1000"), reconciliation.StatusMatched, "0"},
		{"unequal values are a discrepancy", value("500"), value("200"), reconciliation.StatusDiscrepancy, "300"},
		{"bank above exchange is positive", value("250.50"), value("100.25"), reconciliation.StatusDiscrepancy, "150.25"},
		{"bank below exchange is negative", value("100"), value("350"), reconciliation.StatusDiscrepancy, "-250"},
		{"cent-level gap is still a discrepancy", value("100.00"), value("100.01"), reconciliation.StatusDiscrepancy, "-0.01"},
		{"absent bank side", absent(), value("750"), reconciliation.StatusMissingInBank, "-750"},
		{"absent exchange side", value("420"), absent(), reconciliation.StatusMissingInExchange, "420"},
		{"zero bank against absent exchange", value("0"), absent(), reconciliation.StatusMissingInExchange, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := reconciliation.Classify(reconciliation.ReportRow{
				RecordRef:     "T001",
				BankValue:     tt.bank,
				ExchangeValue: tt.exchange,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, row.Status)
			assert.True(t, row.ValueDiff.Equal(decimal.RequireFromString(tt.wantDiff)),
				"diff %s, want %s", row.ValueDiff, tt.wantDiff)
		})
	}
}

func TestClassify_ZeroValuePresentOnBothSides(t *testing.T) {
	// Present zeros are values, not absences
	row, err := reconciliation.Classify(reconciliation.ReportRow{
		RecordRef:     "T002",
		BankValue:     value("0"),
		ExchangeValue: value("0"),
	})
	require.NoError(t, err)
	assert.Equal(t, reconciliation.StatusMatched, row.Status)
}

func TestClassify_BothAbsentIsAnError(t *testing.T) {
	_, err := reconciliation.Classify(reconciliation.ReportRow{
		RecordRef:     "T003",
		BankValue:     absent(),
		ExchangeValue: absent(),
	})
	require.ErrorIs(t, err, reconciliation.ErrNoValues)
}

func TestClassifyAll_FailsWholePassOnDefectiveRow(t *testing.T) {
	reports := []reconciliation.ReportRow{
		{RecordRef: "T001", BankValue: value("100"), ExchangeValue: value("100")},
		{RecordRef: "T002"},
	}

	rows, err := reconciliation.ClassifyAll(reports)
	require.ErrorIs(t, err, reconciliation.ErrNoValues)
	assert.Nil(t, rows, "partial classification must not leak out")
}

func TestClassifyAll_PreservesOrder(t *testing.T) {
	reports := []reconciliation.ReportRow{
		{RecordRef: "A", BankValue: value("1"), ExchangeValue: value("1")},
		{RecordRef: "B", BankValue: value("2"), ExchangeValue: absent()},
		{RecordRef: "C", BankValue: absent(), ExchangeValue: value("3")},
	}

	rows, err := reconciliation.ClassifyAll(reports)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, reconciliation.StatusMatched, rows[0].Status)
	assert.Equal(t, reconciliation.StatusMissingInExchange, rows[1].Status)
	assert.Equal(t, reconciliation.StatusMissingInBank, rows[2].Status)
}
