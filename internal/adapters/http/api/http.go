// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/okian/invoy/internal/adapters/delivery"
	service "github.com/okian/invoy/internal/app"
	"github.com/okian/invoy/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StatsProvider

	Allocate(ctx context.Context, req service.AllocateRequest) (model.Allocation, error)
	Extract(ctx context.Context, req service.ExtractRequest) (model.Allocation, error)
	Finalize(ctx context.Context, req service.FinalizeRequest) (service.FinalizeResult, error)
	Transcribe(ctx context.Context, audio []byte) string
	GenerateFromCalendar(ctx context.Context, req service.CalendarRequest) (service.BatchResult, error)

	Artifact(ctx context.Context, name string) ([]byte, error)
	Invoice(ctx context.Context, invoiceID string) (*model.Invoice, error)
	Send(ctx context.Context, req service.SendRequest) delivery.Status
}

// Server wires HTTP routes for the billing API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	invoiceHandler  *InvoiceHandler
	calendarHandler *CalendarHandler
	sttHandler      *STTHandler
	artifactHandler *ArtifactHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	if deps == nil {
		panic("deps is nil")
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		invoiceHandler:  NewInvoiceHandler(deps),
		calendarHandler: NewCalendarHandler(deps),
		sttHandler:      NewSTTHandler(deps),
		artifactHandler: NewArtifactHandler(deps),
	}
}

// Register attaches all API routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.With(MetricsMiddleware("healthz")).Get("/healthz", s.healthHandler.HandleHealth)
	r.With(MetricsMiddleware("stats")).Get("/stats", s.statsHandler.HandleStats)

	r.Route("/ai-invoice", func(r chi.Router) {
		r.With(MetricsMiddleware("allocate")).Post("/allocate", s.invoiceHandler.HandleAllocate)
		r.With(MetricsMiddleware("extract")).Post("/extract", s.invoiceHandler.HandleExtract)
		r.With(MetricsMiddleware("finalize")).Post("/finalize", s.invoiceHandler.HandleFinalize)
	})
	r.With(MetricsMiddleware("stt")).Post("/stt", s.sttHandler.HandleTranscribe)
	r.With(MetricsMiddleware("calendar")).Post("/calendar/invoices", s.calendarHandler.HandleGenerate)

	r.Route("/invoices", func(r chi.Router) {
		r.With(MetricsMiddleware("artifact")).Get("/{name}", s.artifactHandler.HandleGetArtifact)
		r.With(MetricsMiddleware("send")).Post("/{id}/send", s.artifactHandler.HandleSend)
	})
}

// Router returns a fresh router with every API route registered.
func (s *Server) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, r, status, errorResponse{Code: code, Message: msg})
}

// fail translates err into a status and code.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), service.IsClientError(err):
		writeError(w, r, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrNotStarted):
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, r, http.StatusInternalServerError, "internal", err)
	}
}
