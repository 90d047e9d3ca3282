package alerting

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/ksred/recon-api/internal/config"
	"github.com/ksred/recon-api/internal/reconciliation"
)

var (
	ErrEmailDisabled    = errors.New("email alerts are disabled")
	ErrNoRecipients     = errors.New("no email recipients configured")
	ErrMissingSMTPCreds = errors.New("SMTP_USER and SMTP_PASSWORD must be set")
)

// EmailNotifier sends alert reports over SMTP with a plain-text body and an
// HTML alternative.
type EmailNotifier struct {
	cfg config.EmailConfig
}

func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg}
}

// Send delivers one alert email. Callers treat any returned error as
// non-fatal.
func (n *EmailNotifier) Send(alerts []reconciliation.Alert, stats reconciliation.SummaryStats) error {
	if !n.cfg.Enabled {
		return ErrEmailDisabled
	}
	if len(n.cfg.To) == 0 {
		return ErrNoRecipients
	}
	if n.cfg.SMTPUser == "" || n.cfg.SMTPPassword == "" {
		return ErrMissingSMTPCreds
	}

	msg := n.buildMessage(alerts, stats)
	addr := n.cfg.SMTPHost + ":" + n.cfg.SMTPPort
	auth := smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPassword, n.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, n.cfg.From, n.cfg.To, msg); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	return nil
}

func (n *EmailNotifier) buildMessage(alerts []reconciliation.Alert, stats reconciliation.SummaryStats) []byte {
	subject := n.subject(len(alerts), stats)
	boundary := "recon-alert-boundary"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(n.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(n.textBody(alerts, stats))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(n.htmlBody(alerts, stats))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

func (n *EmailNotifier) subject(alertCount int, stats reconciliation.SummaryStats) string {
	plural := "s"
	if alertCount == 1 {
		plural = ""
	}
	return fmt.Sprintf("Reconciliation Alert: %d issue%s found ($%s)",
		alertCount, plural, stats.TotalDiscrepancyAmount.StringFixed(2))
}

func (n *EmailNotifier) textBody(alerts []reconciliation.Alert, stats reconciliation.SummaryStats) string {
	var b strings.Builder
	divider := strings.Repeat("-", 70)

	fmt.Fprintf(&b, "RECONCILIATION ALERT\r\n%s\r\n\r\n", time.Now().Format("January 2, 2006 at 15:04"))
	b.WriteString("SUMMARY\r\n")
	fmt.Fprintf(&b, "Total Records:       %d\r\n", stats.TotalRecords)
	fmt.Fprintf(&b, "Alerts Found:        %d\r\n", stats.CriticalAlerts)
	fmt.Fprintf(&b, "Total Discrepancy:   $%s\r\n\r\n", stats.TotalDiscrepancyAmount.StringFixed(2))

	b.WriteString("DETAILS\r\n")
	b.WriteString(divider + "\r\n")
	for _, alert := range alerts {
		fmt.Fprintf(&b, "%s | %s\r\n", alert.Product, alert.Counterparty)
		fmt.Fprintf(&b, "Bank: %s  Exchange: %s  Diff: $%s  [%s]\r\n",
			formatNullValue(alert.BankValue.Valid, alert.BankValue.Decimal.StringFixed(2)),
			formatNullValue(alert.ExchangeValue.Valid, alert.ExchangeValue.Decimal.StringFixed(2)),
			alert.ValueDiff.StringFixed(2),
			alert.Risk)
		b.WriteString(divider + "\r\n")
	}

	b.WriteString("\r\n---\r\nAutomated Reconciliation Pipeline\r\n")
	return b.String()
}

func (n *EmailNotifier) htmlBody(alerts []reconciliation.Alert, stats reconciliation.SummaryStats) string {
	var rows strings.Builder
	for _, alert := range alerts {
		fmt.Fprintf(&rows, `<tr>
			<td>%s</td><td>%s</td>
			<td align="right">%s</td><td align="right">%s</td>
			<td align="right"><strong>$%s</strong></td><td>%s</td>
		</tr>`,
			alert.Product, alert.Counterparty,
			formatNullValue(alert.BankValue.Valid, "$"+alert.BankValue.Decimal.StringFixed(2)),
			formatNullValue(alert.ExchangeValue.Valid, "$"+alert.ExchangeValue.Decimal.StringFixed(2)),
			alert.ValueDiff.StringFixed(2), alert.Risk)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html><body style="font-family: sans-serif; color: #1f2937;">
<h2>Reconciliation Alert</h2>
<p>%s</p>
<table>
<tr><td>Total Records</td><td align="right"><strong>%d</strong></td></tr>
<tr><td>Alerts Found</td><td align="right"><strong>%d</strong></td></tr>
<tr><td>Total Discrepancy</td><td align="right"><strong>$%s</strong></td></tr>
</table>
<h3>Details</h3>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Contract</th><th>Counterparty</th><th>Bank</th><th>Exchange</th><th>Diff</th><th>Risk</th></tr>
%s
</table>
<p><small>Automated Reconciliation Pipeline</small></p>
</body></html>`,
		time.Now().Format("January 2, 2006 at 15:04"),
		stats.TotalRecords, stats.CriticalAlerts,
		stats.TotalDiscrepancyAmount.StringFixed(2), rows.String())
}

// formatNullValue renders an absent side as an em dash rather than zero.
func formatNullValue(valid bool, rendered string) string {
	if !valid {
		return "—"
	}
	return rendered
}
