package api

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/okian/invoy/internal/adapters/delivery"
	service "github.com/okian/invoy/internal/app"
)

// ArtifactHandler serves stored invoices and their dispatch.
type ArtifactHandler struct {
	deps Dependencies
}

// NewArtifactHandler creates a new artifact handler.
func NewArtifactHandler(deps Dependencies) *ArtifactHandler {
	return &ArtifactHandler{deps: deps}
}

var contentTypes = map[string]string{
	service.ExtHTML: "text/html; charset=utf-8",
	service.ExtPDF:  "application/pdf",
	service.ExtJSON: "application/json; charset=utf-8",
}

// HandleGetArtifact handles GET /invoices/{name}.
func (h *ArtifactHandler) HandleGetArtifact(w http.ResponseWriter, r *http.Request) {
	const op = "api.artifact"
	name := chi.URLParam(r, "name")
	body, err := h.deps.Artifact(r.Context(), name)
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	ct, ok := contentTypes[path.Ext(name)]
	if !ok {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// sendRequest satisfies [render.Binder].
type sendRequest struct {
	Recipient string `json:"recipient,omitempty"`
}

func (s *sendRequest) Bind(_ *http.Request) error {
	s.Recipient = strings.TrimSpace(s.Recipient)
	return nil
}

// HandleSend handles POST /invoices/{id}/send. The body is optional.
// Dispatch failures are reported as a status record with 502.
func (h *ArtifactHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	const op = "api.send"
	id := chi.URLParam(r, "id")

	req := &sendRequest{}
	if r.ContentLength != 0 {
		if err := render.Bind(r, req); err != nil {
			fail(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	if _, err := h.deps.Invoice(r.Context(), id); err != nil {
		fail(w, r, Wrap(op, err))
		return
	}

	st := h.deps.Send(r.Context(), service.SendRequest{InvoiceID: id, Recipient: req.Recipient})
	status := http.StatusOK
	if st.State != delivery.StateOK {
		status = http.StatusBadGateway
	}
	writeJSON(w, r, status, st)
}
