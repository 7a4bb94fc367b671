package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/invoy/internal/adapters/mq/queue"
	"github.com/okian/invoy/internal/adapters/render"
	"github.com/okian/invoy/internal/domain/attribution"
	"github.com/okian/invoy/internal/domain/billing"
	"github.com/okian/invoy/internal/domain/invoice"
	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/internal/domain/parser"
	"github.com/okian/invoy/pkg/logger"
	"github.com/okian/invoy/pkg/metrics"
)

// Calendar input formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatICS  = "ics"
)

// CalendarRequest is one calendar export to invoice.
type CalendarRequest struct {
	Format string
	Data   []byte
}

// ClientInvoice is the outcome for one client of a batch.
type ClientInvoice struct {
	ClientKey  string          `json:"client_key"`
	Client     model.Client    `json:"client"`
	InvoiceID  string          `json:"invoice_id,omitempty"`
	Path       string          `json:"path,omitempty"`
	PDFPath    string          `json:"pdf_path,omitempty"`
	Files      []string        `json:"files,omitempty"`
	Sessions   int             `json:"sessions"`
	TotalHours float64         `json:"total_hours"`
	TotalDue   decimal.Decimal `json:"total_due"`
	Degraded   bool            `json:"degraded,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// BatchResult summarizes a calendar run.
type BatchResult struct {
	Period       model.BillingPeriod `json:"billing_period"`
	Parsed       int                 `json:"parsed"`
	Dropped      []parser.DropReason `json:"dropped,omitempty"`
	Billing      billing.Stats       `json:"billing"`
	Unattributed int                 `json:"unattributed"`
	Invoices     []ClientInvoice     `json:"invoices"`
}

// Failed counts clients whose invoice could not be produced.
func (b BatchResult) Failed() int {
	n := 0
	for _, inv := range b.Invoices {
		if inv.Error != "" {
			n++
		}
	}
	return n
}

// ParseCalendar parses data in the given format using the consultant's
// timezone for timestamps without an offset.
func (s *Service) ParseCalendar(req CalendarRequest) (parser.Result, error) {
	loc := parser.WithDefaultLocation(s.profile.Location())
	format := strings.ToLower(strings.TrimSpace(req.Format))

	var (
		res parser.Result
		err error
	)
	switch format {
	case FormatText, "txt", "":
		format = FormatText
		res = parser.ParseText(string(req.Data), loc)
	case FormatJSON:
		res, err = parser.ParseRecords(req.Data, loc)
	case FormatICS, "ical":
		format = FormatICS
		res, err = parser.ParseICS(bytes.NewReader(req.Data), loc)
	default:
		return parser.Result{}, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
	}
	if err != nil {
		return parser.Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	metrics.RecordEventsParsed(format, len(res.Events), len(res.Dropped))
	for _, d := range res.Dropped {
		metrics.RecordEventDropped(d.Reason)
	}
	return res, nil
}

// GenerateFromCalendar produces one invoice per client found in a
// calendar export. Clients are rendered concurrently by the worker pool
// and a failing client does not abort the others.
func (s *Service) GenerateFromCalendar(ctx context.Context, req CalendarRequest) (BatchResult, error) {
	renderer, q, err := s.running()
	if err != nil {
		return BatchResult{}, err
	}
	parsed, err := s.ParseCalendar(req)
	if err != nil {
		return BatchResult{}, err
	}

	billable, stats := billing.Filter(parsed.Events, s.rules, s.profile.Email)
	metrics.RecordBillability("billable", stats.Billable)
	for rule, n := range stats.Excluded {
		metrics.RecordBillability(rule, n)
	}
	groups, unattributed := attribution.GroupByClient(billable, s.profile.Email)
	metrics.RecordUnattributed(unattributed)

	period, _ := parsed.Header.Period()
	out := BatchResult{
		Period:       period,
		Parsed:       len(parsed.Events),
		Dropped:      parsed.Dropped,
		Billing:      stats,
		Unattributed: unattributed,
		Invoices:     make([]ClientInvoice, len(groups)),
	}

	index := make(map[string]int, len(groups))
	reply := make(chan queue.Result, len(groups))
	for i, g := range groups {
		index[g.Key] = i
		out.Invoices[i] = ClientInvoice{ClientKey: g.Key, Client: g.Client, Sessions: len(g.Events)}

		job := queue.NewJob(g, period, reply)
		if err := q.Enqueue(ctx, job); err != nil {
			// Queue full or closing: render on the caller's goroutine.
			s.logger.Debug(ctx, "render queue unavailable, rendering inline",
				logger.String("client", g.Key), logger.Error(err))
			res := s.renderJob(ctx, renderer, job)
			res.ClientKey = g.Key
			reply <- res
		}
	}

	for range groups {
		select {
		case res := <-reply:
			out.Invoices[index[res.ClientKey]].apply(res)
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}

	s.logger.Info(ctx, "calendar batch complete",
		logger.Int("events", out.Parsed),
		logger.Int("dropped", len(out.Dropped)),
		logger.Int("billable", stats.Billable),
		logger.Int("clients", len(groups)),
		logger.Int("failed", out.Failed()))
	return out, nil
}

func (c *ClientInvoice) apply(res queue.Result) {
	if res.Err != nil {
		c.Error = res.Err.Error()
		return
	}
	inv := res.Invoice
	c.InvoiceID = inv.ID
	c.Path = ArtifactPath(inv.ID, ExtHTML)
	c.PDFPath = ArtifactPath(inv.ID, ExtPDF)
	if res.Degraded {
		c.PDFPath = c.Path
	}
	c.Files = res.Artifacts
	c.TotalHours = inv.TotalHours
	c.TotalDue = inv.Totals.TotalDue
	c.Degraded = res.Degraded
}

// renderJob assembles, renders and stores the invoice of one client.
func (s *Service) renderJob(ctx context.Context, renderer *render.Pipeline, j queue.Job) queue.Result {
	inv, err := s.assembler.FromCalendar(j.Group, j.Period)
	if err != nil {
		return queue.Result{Err: err}
	}
	doc, files, err := s.renderAndStore(ctx, renderer, inv, render.TemplateCalendar)
	if err != nil {
		return queue.Result{Err: err}
	}
	return queue.Result{Invoice: inv, Artifacts: files, Degraded: doc.Degraded}
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnknownFormat) ||
		errors.Is(err, invoice.ErrValidation)
}
