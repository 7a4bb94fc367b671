// Package parser normalizes raw calendar exports into validated events.
//
// Three input shapes are accepted: the block-delimited text export, a JSON
// array of calendar records and iCalendar feeds. Malformed entries never
// fail a batch; they are dropped and reported in Result.Dropped.
package parser

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/invoy/internal/domain/dedupe"
	"github.com/okian/invoy/internal/domain/model"
)

// Drop reasons reported for rejected entries.
const (
	ReasonIncomplete  = "incomplete"
	ReasonMalformed   = "malformed_timestamp"
	ReasonDuplicate   = "duplicate"
	ReasonUndecodable = "undecodable"
	ReasonInvalid     = "invalid"
)

// DropReason describes one rejected entry.
type DropReason struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

func (d DropReason) String() string {
	if d.ID == "" {
		return fmt.Sprintf("#%d %s: %s", d.Index, d.Reason, d.Detail)
	}
	return fmt.Sprintf("#%d (%s) %s: %s", d.Index, d.ID, d.Reason, d.Detail)
}

// Result is the outcome of one parse call. Events keep input order.
type Result struct {
	Events  []model.Event `json:"events"`
	Dropped []DropReason  `json:"dropped,omitempty"`
	Header  Header        `json:"header"`
}

// Option configures a parse call.
type Option func(*options)

type options struct {
	loc *time.Location
}

// WithDefaultLocation sets the zone used for timestamps without an offset
// when the input does not declare a usable timezone.
func WithDefaultLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func newOptions(opts []Option) options {
	o := options{loc: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// candidate holds the loosely typed fields of one entry before validation.
// Timestamps are either raw strings or, for iCalendar input, pre-parsed.
type candidate struct {
	id, title, description, status string
	start, end                     string
	startAt, endAt                 time.Time
	attendees                      []model.Attendee
}

// collector validates candidates and keeps the first occurrence of an id.
type collector struct {
	loc  *time.Location
	seen dedupe.Deduper
	res  *Result
}

func newCollector(loc *time.Location, res *Result) *collector {
	return &collector{loc: loc, seen: dedupe.NewInMemoryDeduper(), res: res}
}

func (c *collector) drop(index int, id, reason, detail string) {
	c.res.Dropped = append(c.res.Dropped, DropReason{Index: index, ID: id, Reason: reason, Detail: detail})
}

func (c *collector) accept(ctx context.Context, index int, cand candidate) {
	switch {
	case cand.id == "":
		c.drop(index, "", ReasonIncomplete, "missing id")
		return
	case cand.title == "":
		c.drop(index, cand.id, ReasonIncomplete, "missing title")
		return
	case cand.start == "" && cand.startAt.IsZero():
		c.drop(index, cand.id, ReasonIncomplete, "missing start")
		return
	case cand.end == "" && cand.endAt.IsZero():
		c.drop(index, cand.id, ReasonIncomplete, "missing end")
		return
	}

	if c.seen.SeenAndRecord(ctx, cand.id) {
		c.drop(index, cand.id, ReasonDuplicate, "id already seen in batch")
		return
	}

	start, end := cand.startAt, cand.endAt
	var err error
	if start.IsZero() {
		if start, err = parseTimestamp(cand.start, c.loc); err != nil {
			c.seen.Unrecord(ctx, cand.id)
			c.drop(index, cand.id, ReasonMalformed, "start: "+err.Error())
			return
		}
	}
	if end.IsZero() {
		if end, err = parseTimestamp(cand.end, c.loc); err != nil {
			c.seen.Unrecord(ctx, cand.id)
			c.drop(index, cand.id, ReasonMalformed, "end: "+err.Error())
			return
		}
	}

	ev, err := model.NewEvent(cand.id, cand.title, cand.description, start, end, cand.status, cand.attendees)
	if err != nil {
		c.seen.Unrecord(ctx, cand.id)
		c.drop(index, cand.id, ReasonInvalid, err.Error())
		return
	}
	c.res.Events = append(c.res.Events, ev)
}
