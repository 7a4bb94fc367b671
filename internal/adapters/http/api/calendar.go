package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	service "github.com/okian/invoy/internal/app"
)

const maxCalendarBytes = 10 << 20

// CalendarHandler serves POST /calendar/invoices.
type CalendarHandler struct {
	deps Dependencies
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(deps Dependencies) *CalendarHandler {
	return &CalendarHandler{deps: deps}
}

// HandleGenerate turns the request body into one invoice per client. The
// format comes from ?format= or, failing that, the Content-Type.
func (h *CalendarHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	const op = "api.calendar"
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCalendarBytes))
	if err != nil {
		fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		fail(w, r, WrapKind(op, ErrBadRequest, errors.New("empty calendar body")))
		return
	}

	res, err := h.deps.GenerateFromCalendar(r.Context(), service.CalendarRequest{
		Format: calendarFormat(r),
		Data:   data,
	})
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func calendarFormat(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return service.FormatText
	}
	switch mt {
	case "application/json":
		return service.FormatJSON
	case "text/calendar":
		return service.FormatICS
	default:
		return service.FormatText
	}
}
