package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus tracks how far an invoice progressed.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusAssembled InvoiceStatus = "assembled"
	StatusDelivered InvoiceStatus = "delivered"
)

// Client is the counterparty billed by an invoice.
type Client struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BillingPeriod is either a start/end date pair or a free label.
type BillingPeriod struct {
	Start string `json:"start,omitempty"` // YYYY-MM-DD
	End   string `json:"end,omitempty"`   // YYYY-MM-DD
	Label string `json:"label"`
}

// LineItem is one billable unit. Amount is derived once from Hours and Rate.
type LineItem struct {
	Date          string          `json:"date,omitempty"`
	TimeRange     string          `json:"time_range,omitempty"`
	Subject       string          `json:"subject"`
	Justification string          `json:"justification,omitempty"`
	Hours         float64         `json:"hours"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
}

// Totals are the computed money figures of an invoice.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	TotalDue  decimal.Decimal `json:"total_due"`
}

// Invoice is created once per finalize call.
type Invoice struct {
	ID         string            `json:"invoice_id"`
	IssueDate  time.Time         `json:"issue_date"`
	Period     BillingPeriod     `json:"billing_period"`
	Client     Client            `json:"client"`
	Consultant ConsultantProfile `json:"-"`
	Branding   Branding          `json:"-"`
	Currency   string            `json:"currency"`
	Items      []LineItem        `json:"items"`
	Totals     Totals            `json:"totals"`
	TotalHours float64           `json:"total_hours"`
	Summary    string            `json:"summary,omitempty"`
	Status     InvoiceStatus     `json:"status"`
}

// IssueDateString formats the issue date as YYYY-MM-DD.
func (inv *Invoice) IssueDateString() string {
	return inv.IssueDate.Format(time.DateOnly)
}

// ErrInvalidTransition is returned when an invoice status would move backwards.
var ErrInvalidTransition = errors.New("invalid invoice status transition")

var statusOrder = map[InvoiceStatus]int{StatusDraft: 0, StatusAssembled: 1, StatusDelivered: 2}

// Advance moves the invoice forward to status. Repeating the current
// status is allowed.
func (inv *Invoice) Advance(status InvoiceStatus) error {
	to, ok := statusOrder[status]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	if to < statusOrder[inv.Status] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, status)
	}
	inv.Status = status
	return nil
}
