// Package model contains domain models passed between pipeline stages.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// StatusConfirmed is the only event status that can be billed.
const StatusConfirmed = "confirmed"

// ErrInvalidEvent is returned when an event lacks a mandatory field.
var ErrInvalidEvent = errors.New("invalid event")

// Attendee is a participant of a calendar event.
type Attendee struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// DisplayName returns the attendee name, falling back to the email.
func (a Attendee) DisplayName() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.Email
}

// Event is a validated calendar event. Values are built by NewEvent at the
// ingestion boundary and are not modified afterwards.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Status      string     `json:"status"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

// NewEvent validates the mandatory fields and returns an Event. The
// attendee slice is copied so the caller cannot alias it.
func NewEvent(id, title, description string, start, end time.Time, status string, attendees []Attendee) (Event, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	switch {
	case id == "":
		return Event{}, fmt.Errorf("%w: missing id", ErrInvalidEvent)
	case title == "":
		return Event{}, fmt.Errorf("%w: missing title", ErrInvalidEvent)
	case start.IsZero():
		return Event{}, fmt.Errorf("%w: missing start", ErrInvalidEvent)
	case end.IsZero():
		return Event{}, fmt.Errorf("%w: missing end", ErrInvalidEvent)
	}

	status = strings.TrimSpace(status)
	if status == "" {
		status = StatusConfirmed
	}

	var copied []Attendee
	if len(attendees) > 0 {
		copied = make([]Attendee, len(attendees))
		copy(copied, attendees)
	}

	return Event{
		ID:          id,
		Title:       title,
		Description: description,
		Start:       start,
		End:         end,
		Status:      status,
		Attendees:   copied,
	}, nil
}

// DurationHours is the event length in hours, never negative.
func (e Event) DurationHours() float64 {
	h := e.End.Sub(e.Start).Seconds() / 3600.0
	if h < 0 {
		return 0
	}
	return h
}
