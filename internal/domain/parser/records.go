package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/invoy/internal/domain/model"
)

// recordTime accepts either a plain string or a calendar API object of the
// form {"dateTime": ..., "date": ..., "timeZone": ...}.
type recordTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
	TimeZone string `json:"timeZone"`
}

func (t *recordTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.DateTime = s
		return nil
	}
	type plain recordTime
	return json.Unmarshal(data, (*plain)(t))
}

func (t recordTime) raw() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

type recordAttendee struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type record struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Summary     string           `json:"summary"`
	Description string           `json:"description"`
	Start       recordTime       `json:"start"`
	End         recordTime       `json:"end"`
	Status      string           `json:"status"`
	Attendees   []recordAttendee `json:"attendees"`
}

// ParseRecords parses a JSON array of calendar records. Only a document
// that is not an array is an error; bad records are dropped.
func ParseRecords(data []byte, opts ...Option) (Result, error) {
	o := newOptions(opts)

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNotArray, err)
	}

	var res Result
	col := newCollector(o.loc, &res)
	ctx := context.Background()
	for i, msg := range raw {
		var r record
		if err := json.Unmarshal(msg, &r); err != nil {
			col.drop(i, "", ReasonUndecodable, err.Error())
			continue
		}
		col.accept(ctx, i, r.candidate())
	}
	return res, nil
}

func (r record) candidate() candidate {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = strings.TrimSpace(r.Summary)
	}

	c := candidate{
		id:          strings.TrimSpace(r.ID),
		title:       title,
		description: r.Description,
		status:      strings.ToLower(strings.TrimSpace(r.Status)),
		start:       r.Start.raw(),
		end:         r.End.raw(),
	}

	// Naive timestamps carrying an explicit zone are resolved here so the
	// collector does not fall back to the batch location.
	if loc, ok := zone(r.Start.TimeZone); ok && c.start != "" {
		if t, err := parseTimestamp(c.start, loc); err == nil {
			c.startAt = t
		}
	}
	if loc, ok := zone(r.End.TimeZone); ok && c.end != "" {
		if t, err := parseTimestamp(c.end, loc); err == nil {
			c.endAt = t
		}
	}

	for _, a := range r.Attendees {
		email := strings.TrimSpace(a.Email)
		if email == "" {
			continue
		}
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = strings.TrimSpace(a.DisplayName)
		}
		c.attendees = append(c.attendees, model.Attendee{Name: name, Email: email})
	}
	return c
}

func zone(name string) (*time.Location, bool) {
	if name == "" {
		return nil, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}
