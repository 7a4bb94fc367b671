package service

import (
	"context"
	"errors"
	"strings"

	"github.com/okian/invoy/internal/adapters/delivery"
	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/pkg/logger"
)

// SendRequest asks for a stored invoice to be mailed.
type SendRequest struct {
	InvoiceID string `json:"invoice_id"`
	Recipient string `json:"recipient,omitempty"`
}

// Send mails a stored invoice with its binary form attached, or its HTML
// form when no binary exists. The recipient defaults to the client email.
// Every failure is reported in the returned status.
func (s *Service) Send(ctx context.Context, req SendRequest) delivery.Status {
	id := strings.TrimSpace(req.InvoiceID)
	inv, err := s.loadRecord(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return delivery.Failed("invoice %s not found", id)
		}
		return delivery.Failed("load invoice %s: %v", id, err)
	}

	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		recipient = inv.Client.Email
	}
	if recipient == "" {
		return delivery.Failed("no recipient for invoice %s", id)
	}

	msg := delivery.Message{Invoice: inv, Recipient: recipient}
	for _, ext := range []string{ExtPDF, ExtHTML} {
		if b, err := s.Artifact(ctx, id+ext); err == nil {
			msg.Attachment, msg.AttachmentName = b, id+ext
			break
		}
	}

	st := s.dispatcher.Send(ctx, msg)
	if st.State != delivery.StateOK {
		return st
	}

	if err := inv.Advance(model.StatusDelivered); err == nil {
		if err := s.saveRecord(ctx, inv); err != nil {
			s.logger.Warn(ctx, "recording delivery", logger.String("invoice_id", id), logger.Error(err))
		}
	}
	s.logger.Info(ctx, "invoice delivered",
		logger.String("invoice_id", id), logger.String("email_id", st.ID))
	return st
}

// Invoice returns a stored invoice record.
func (s *Service) Invoice(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	return s.loadRecord(ctx, strings.TrimSpace(invoiceID))
}
