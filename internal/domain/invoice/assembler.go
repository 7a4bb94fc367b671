// Package invoice assembles invoices from line-item drafts and calendar
// groups. Amounts use decimal arithmetic rounded to cents.
package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/invoy/internal/domain/allocation"
	"github.com/okian/invoy/internal/domain/attribution"
	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/pkg/logger"
	"github.com/okian/invoy/pkg/metrics"
)

// Kinds of invoices, used as template identifiers and metric labels.
const (
	KindAI       = "ai"
	KindCalendar = "calendar"
)

// Draft is one line item before pricing. EstimatedHours wins over Hours
// when set and non-zero.
type Draft struct {
	Subject        string   `json:"subject"`
	Justification  string   `json:"justification,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	Hours          *float64 `json:"hours,omitempty"`
}

// HoursValue resolves the draft's hours, defaulting to zero.
func (d Draft) HoursValue() float64 {
	if d.EstimatedHours != nil && *d.EstimatedHours != 0 {
		return clampHours(*d.EstimatedHours)
	}
	if d.Hours != nil {
		return clampHours(*d.Hours)
	}
	return 0
}

// DraftsFromAllocation converts allocated items to drafts.
func DraftsFromAllocation(items []model.AllocatedItem) []Draft {
	out := make([]Draft, len(items))
	for i, it := range items {
		h := it.EstimatedHours
		out[i] = Draft{Subject: it.Subject, Justification: it.Justification, EstimatedHours: &h}
	}
	return out
}

// Assembler prices drafts with a fixed consultant profile. It is safe for
// concurrent use.
type Assembler struct {
	profile  model.ConsultantProfile
	branding model.Branding
	now      func() time.Time
	log      logger.Logger
}

// NewAssembler creates an assembler for profile.
func NewAssembler(profile model.ConsultantProfile, branding model.Branding, opts ...Option) *Assembler {
	a := &Assembler{
		profile:  profile,
		branding: branding,
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Profile returns the consultant profile used for pricing.
func (a *Assembler) Profile() model.ConsultantProfile {
	return a.profile
}

// ValidateProfile checks the fields required to price an invoice.
func ValidateProfile(p model.ConsultantProfile) error {
	var missing []string
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	if !p.HourlyRate.IsPositive() {
		missing = append(missing, "hourly rate")
	}
	if strings.TrimSpace(p.Currency) == "" {
		missing = append(missing, "currency")
	}
	if p.TaxRate.IsNegative() {
		missing = append(missing, "non-negative tax rate")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: consultant profile requires %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// Finalize prices drafts for client. The identifier is AI-<client key>
// and the period label defaults to Monthly.
func (a *Assembler) Finalize(client string, drafts []Draft, period string) (*model.Invoice, error) {
	if err := ValidateProfile(a.profile); err != nil {
		return nil, err
	}
	client = strings.TrimSpace(client)
	if client == "" {
		return nil, fmt.Errorf("%w: client is required", ErrValidation)
	}
	if strings.TrimSpace(period) == "" {
		period = allocation.DefaultBillingPeriod
	}

	items := make([]model.LineItem, len(drafts))
	for i, d := range drafts {
		items[i] = a.lineItem(d.Subject, d.Justification, d.HoursValue())
	}

	inv := a.build("AI-"+attribution.ClientKey(client), model.Client{Name: client}, items)
	inv.Period = model.BillingPeriod{Label: period}
	inv.Summary = AISummary(inv)

	metrics.RecordInvoiceAssembled(KindAI)
	a.log.Info(context.Background(), "invoice finalized",
		logger.String("invoice_id", inv.ID),
		logger.Int("items", len(items)),
		logger.String("total_due", inv.Totals.TotalDue.StringFixed(2)))
	return inv, nil
}

// FromCalendar turns one client group into an invoice. Each event is a
// line item dated in the consultant's timezone. The identifier is
// INV-<client key>-<YYYYMM of the period start>.
func (a *Assembler) FromCalendar(group attribution.Group, period model.BillingPeriod) (*model.Invoice, error) {
	if err := ValidateProfile(a.profile); err != nil {
		return nil, err
	}
	if len(group.Events) == 0 {
		return nil, fmt.Errorf("%w: client %s has no events", ErrValidation, group.Key)
	}

	loc := a.profile.Location()
	items := make([]model.LineItem, len(group.Events))
	for i, e := range group.Events {
		start, end := e.Start.In(loc), e.End.In(loc)
		it := a.lineItem(e.Title, Agenda(e.Description), e.DurationHours())
		it.Date = start.Format(time.DateOnly)
		it.TimeRange = start.Format("15:04") + "–" + end.Format("15:04")
		items[i] = it
	}

	if period.Start == "" {
		period.Start = group.Events[0].Start.In(loc).Format(time.DateOnly)
	}
	if period.End == "" {
		period.End = group.Events[len(group.Events)-1].End.In(loc).Format(time.DateOnly)
	}
	if period.Label == "" {
		period.Label = period.Start + " to " + period.End
	}

	id := "INV-" + attribution.ClientKey(group.Key) + "-" + periodToken(period.Start)
	inv := a.build(id, group.Client, items)
	inv.Period = period
	inv.Summary = CalendarSummary(inv)

	metrics.RecordInvoiceAssembled(KindCalendar)
	a.log.Info(context.Background(), "calendar invoice assembled",
		logger.String("invoice_id", inv.ID),
		logger.Int("items", len(items)),
		logger.String("total_due", inv.Totals.TotalDue.StringFixed(2)))
	return inv, nil
}

func (a *Assembler) lineItem(subject, justification string, hours float64) model.LineItem {
	hours = clampHours(hours)
	return model.LineItem{
		Subject:       strings.TrimSpace(subject),
		Justification: strings.TrimSpace(justification),
		Hours:         hours,
		Rate:          a.profile.HourlyRate,
		Amount:        amount(hours, a.profile.HourlyRate),
	}
}

func (a *Assembler) build(id string, client model.Client, items []model.LineItem) *model.Invoice {
	total := 0.0
	for _, it := range items {
		total += it.Hours
	}
	return &model.Invoice{
		ID:         id,
		IssueDate:  a.now().In(a.profile.Location()),
		Client:     client,
		Consultant: a.profile,
		Branding:   a.branding,
		Currency:   a.profile.Currency,
		Items:      items,
		Totals:     computeTotals(items, a.profile.TaxRate),
		TotalHours: total,
		Status:     model.StatusDraft,
	}
}

// Agenda returns the text after the last "Agenda:" in a description.
func Agenda(description string) string {
	i := strings.LastIndex(description, "Agenda:")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(description[i+len("Agenda:"):])
}

// periodToken is YYYYMM of a YYYY-MM-DD date, or the date with dashes
// removed when shorter.
func periodToken(date string) string {
	if len(date) >= 7 {
		date = date[:7]
	}
	return strings.ReplaceAll(date, "-", "")
}
