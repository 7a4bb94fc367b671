package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/okian/invoy/internal/domain/model"
)

// Exchange and Outlook exports use Windows zone names in TZID.
var windowsToIANA = map[string]string{
	"Pacific Standard Time":        "America/Los_Angeles",
	"Mountain Standard Time":       "America/Denver",
	"Central Standard Time":        "America/Chicago",
	"Eastern Standard Time":        "America/New_York",
	"Atlantic Standard Time":       "America/Halifax",
	"GMT Standard Time":            "Europe/London",
	"W. Europe Standard Time":      "Europe/Berlin",
	"Central Europe Standard Time": "Europe/Budapest",
	"Romance Standard Time":        "Europe/Paris",
	"India Standard Time":          "Asia/Kolkata",
	"China Standard Time":          "Asia/Shanghai",
	"Tokyo Standard Time":          "Asia/Tokyo",
	"AUS Eastern Standard Time":    "Australia/Sydney",
}

// ParseICS parses every VEVENT of an iCalendar stream. A stream that cannot
// be decoded is an error; events with unusable fields are dropped.
func ParseICS(r io.Reader, opts ...Option) (Result, error) {
	o := newOptions(opts)

	var res Result
	col := newCollector(o.loc, &res)
	ctx := context.Background()
	dec := ical.NewDecoder(r)
	index := 0
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrCalendar, err)
		}
		for _, ev := range cal.Events() {
			cand, err := icsCandidate(ev.Component, o.loc)
			if err != nil {
				col.drop(index, cand.id, ReasonMalformed, err.Error())
			} else {
				col.accept(ctx, index, cand)
			}
			index++
		}
	}
	return res, nil
}

func icsCandidate(comp *ical.Component, loc *time.Location) (candidate, error) {
	normalizeZones(comp)

	var c candidate
	c.id = propValue(comp, ical.PropUID)
	c.title = propValue(comp, ical.PropSummary)
	c.description = propValue(comp, ical.PropDescription)
	c.status = strings.ToLower(propValue(comp, ical.PropStatus))

	if p := comp.Props.Get(ical.PropDateTimeStart); p != nil {
		t, err := p.DateTime(loc)
		if err != nil {
			return c, fmt.Errorf("start: %w", err)
		}
		c.startAt = t
	}
	if p := comp.Props.Get(ical.PropDateTimeEnd); p != nil {
		t, err := p.DateTime(loc)
		if err != nil {
			return c, fmt.Errorf("end: %w", err)
		}
		c.endAt = t
	}

	for _, p := range comp.Props.Values(ical.PropAttendee) {
		email := strings.TrimSpace(p.Value)
		if len(email) >= len("mailto:") && strings.EqualFold(email[:len("mailto:")], "mailto:") {
			email = email[len("mailto:"):]
		}
		if email == "" {
			continue
		}
		c.attendees = append(c.attendees, model.Attendee{
			Name:  strings.TrimSpace(p.Params.Get(ical.ParamCommonName)),
			Email: email,
		})
	}
	return c, nil
}

func propValue(comp *ical.Component, name string) string {
	if p := comp.Props.Get(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

func normalizeZones(comp *ical.Component) {
	for _, name := range []string{ical.PropDateTimeStart, ical.PropDateTimeEnd} {
		p := comp.Props.Get(name)
		if p == nil {
			continue
		}
		if iana, ok := windowsToIANA[p.Params.Get(ical.ParamTimezoneID)]; ok {
			p.Params.Set(ical.ParamTimezoneID, iana)
		}
	}
}
