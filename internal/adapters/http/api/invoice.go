package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	service "github.com/okian/invoy/internal/app"
)

// InvoiceHandler serves the /ai-invoice routes.
type InvoiceHandler struct {
	deps Dependencies
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(deps Dependencies) *InvoiceHandler {
	return &InvoiceHandler{deps: deps}
}

// HandleAllocate handles POST /ai-invoice/allocate.
func (h *InvoiceHandler) HandleAllocate(w http.ResponseWriter, r *http.Request) {
	const op = "api.allocate"
	req := &allocateRequest{}
	if err := render.Bind(r, req); err != nil {
		fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.Allocate(r.Context(), req.AllocateRequest)
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

// HandleExtract handles POST /ai-invoice/extract.
func (h *InvoiceHandler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	const op = "api.extract"
	req := &extractRequest{}
	if err := render.Bind(r, req); err != nil {
		fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.Extract(r.Context(), req.ExtractRequest)
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

// HandleFinalize handles POST /ai-invoice/finalize.
func (h *InvoiceHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	const op = "api.finalize"
	req := &finalizeRequest{}
	if err := render.Bind(r, req); err != nil {
		fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.Finalize(r.Context(), req.FinalizeRequest)
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

// allocateRequest satisfies [render.Binder].
type allocateRequest struct {
	service.AllocateRequest
}

func (a *allocateRequest) Bind(_ *http.Request) error {
	if strings.TrimSpace(a.Client) == "" {
		return errors.New("missing client")
	}
	if a.TotalHours < 0 {
		return errors.New("total_hours cannot be negative")
	}
	return nil
}

// extractRequest satisfies [render.Binder].
type extractRequest struct {
	service.ExtractRequest
}

func (e *extractRequest) Bind(_ *http.Request) error {
	if strings.TrimSpace(e.Text) == "" {
		return errors.New("missing text")
	}
	return nil
}

// finalizeRequest satisfies [render.Binder].
type finalizeRequest struct {
	service.FinalizeRequest
}

func (f *finalizeRequest) Bind(_ *http.Request) error {
	if strings.TrimSpace(f.Client) == "" {
		return errors.New("missing client")
	}
	if len(f.LineItems) == 0 {
		return errors.New("missing line_items")
	}
	return nil
}
