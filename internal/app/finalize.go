package service

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/okian/invoy/internal/adapters/render"
	"github.com/okian/invoy/internal/domain/invoice"
	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/pkg/logger"
)

// FinalizeRequest prices reviewed line items for one client.
type FinalizeRequest struct {
	Client        string          `json:"client"`
	LineItems     []invoice.Draft `json:"line_items"`
	BillingPeriod string          `json:"billing_period,omitempty"`
}

// FinalizeResult describes the stored invoice.
type FinalizeResult struct {
	Status        string           `json:"status"`
	InvoiceID     string           `json:"invoice_id"`
	Path          string           `json:"path"`
	PDFPath       string           `json:"pdf_path"`
	ClientName    string           `json:"client_name"`
	TotalHours    float64          `json:"total_hours"`
	TotalCost     decimal.Decimal  `json:"total_cost"`
	BillingPeriod string           `json:"billing_period"`
	LineItems     []model.LineItem `json:"line_items"`
	Degraded      bool             `json:"degraded"`
	Reason        string           `json:"reason,omitempty"`
}

// Finalize assembles, renders and stores an invoice. A failed binary
// render degrades the result to HTML only; PDFPath then points at the
// HTML copy.
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (FinalizeResult, error) {
	renderer, _, err := s.running()
	if err != nil {
		return FinalizeResult{}, err
	}

	inv, err := s.assembler.Finalize(req.Client, req.LineItems, req.BillingPeriod)
	if err != nil {
		return FinalizeResult{}, err
	}
	doc, _, err := s.renderAndStore(ctx, renderer, inv, render.TemplateAI)
	if err != nil {
		return FinalizeResult{}, err
	}

	res := FinalizeResult{
		Status:        "ok",
		InvoiceID:     inv.ID,
		Path:          ArtifactPath(inv.ID, ExtHTML),
		PDFPath:       ArtifactPath(inv.ID, ExtPDF),
		ClientName:    inv.Client.Name,
		TotalHours:    math.Round(inv.TotalHours*100) / 100,
		TotalCost:     inv.Totals.TotalDue,
		BillingPeriod: inv.Period.Label,
		LineItems:     inv.Items,
		Degraded:      doc.Degraded,
		Reason:        doc.Reason,
	}
	if doc.Degraded {
		res.PDFPath = res.Path
	}
	return res, nil
}

// renderAndStore renders inv, marks it assembled and persists every form.
// It returns the stored file names.
func (s *Service) renderAndStore(ctx context.Context, renderer *render.Pipeline, inv *model.Invoice, templateID string) (render.Document, []string, error) {
	doc, err := renderer.Render(ctx, inv, templateID)
	if err != nil {
		return render.Document{}, nil, fmt.Errorf("render %s: %w", inv.ID, err)
	}
	if err := inv.Advance(model.StatusAssembled); err != nil {
		return render.Document{}, nil, err
	}
	files, err := s.persist(ctx, inv, doc)
	if err != nil {
		return render.Document{}, nil, err
	}
	s.logger.Info(ctx, "invoice stored",
		logger.String("invoice_id", inv.ID),
		logger.Bool("degraded", doc.Degraded))
	return doc, files, nil
}
