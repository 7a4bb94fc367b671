// Package delivery sends finished invoices to clients. Failures are
// reported in the returned Status, never as errors.
package delivery

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/okian/invoy/internal/domain/invoice"
	"github.com/okian/invoy/internal/domain/model"
)

// Delivery states.
const (
	StateOK    = "ok"
	StateError = "error"
)

// Message is one invoice to send.
type Message struct {
	Invoice        *model.Invoice
	Recipient      string
	Attachment     []byte
	AttachmentName string
}

// Status is the outcome of a send.
type Status struct {
	State     string `json:"status"`
	ID        string `json:"email_id,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Failed builds an error status.
func Failed(format string, args ...any) Status {
	return Status{State: StateError, Message: fmt.Sprintf(format, args...)}
}

// Dispatcher sends messages.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) Status
}

// Subject is the mail subject line for inv.
func Subject(inv *model.Invoice) string {
	return fmt.Sprintf("Invoice %s — %s", inv.ID, inv.Period.Label)
}

// BuildBody writes the HTML mail body for inv.
func BuildBody(inv *model.Invoice) string {
	name := strings.TrimSpace(inv.Client.Name)
	if name == "" {
		name = "there"
	}
	sender := inv.Consultant.Name
	if inv.Branding.CompanyName != "" {
		sender = inv.Branding.CompanyName
	}
	sym := invoice.CurrencySymbol(inv.Currency)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>\n", html.EscapeString(name))
	fmt.Fprintf(&b, "<p>Please find attached invoice <strong>%s</strong> for %s, covering %.1f hours of work.</p>\n",
		html.EscapeString(inv.ID), html.EscapeString(inv.Period.Label), inv.TotalHours)
	fmt.Fprintf(&b, "<p>The total due is <strong>%s%s %s</strong>.", html.EscapeString(sym),
		inv.Totals.TotalDue.StringFixed(2), html.EscapeString(inv.Currency))
	if terms := inv.Branding.PaymentTerms; terms != "" {
		fmt.Fprintf(&b, " Payment terms: %s.", html.EscapeString(strings.TrimRight(terms, ".")))
	}
	b.WriteString("</p>\n")
	if inv.Summary != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(inv.Summary))
	}
	fmt.Fprintf(&b, "<p>Thank you,<br>%s</p>\n", html.EscapeString(sender))
	return b.String()
}
