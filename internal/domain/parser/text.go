package parser

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/okian/invoy/internal/domain/model"
)

const blockMarker = "Event:"

var (
	periodPattern   = regexp.MustCompile(`Billing Period:\s*(\d{4}-\d{2}-\d{2})\s*to\s*(\d{4}-\d{2}-\d{2})`)
	timezonePattern = regexp.MustCompile(`(?m)^[ \t]*Timezone:[ \t]*(\S.*)$`)
	sourcePattern   = regexp.MustCompile(`(?m)^[ \t]*Source:[ \t]*(\S.*)$`)
	fieldPatterns   = map[string]*regexp.Regexp{}
)

func init() {
	for _, f := range []string{"id", "title", "description", "start", "end", "status"} {
		fieldPatterns[f] = regexp.MustCompile(`(?m)^[ \t]*` + f + `:[ \t]*(.*)$`)
	}
}

// Header is the preamble of a text export.
type Header struct {
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Location resolves the declared timezone. ok is false when the label is
// absent or not a known zone.
func (h Header) Location() (*time.Location, bool) {
	if h.Timezone == "" {
		return nil, false
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return nil, false
	}
	return loc, true
}

// Period returns the declared billing period, if any.
func (h Header) Period() (model.BillingPeriod, bool) {
	if h.PeriodStart == "" || h.PeriodEnd == "" {
		return model.BillingPeriod{}, false
	}
	return model.BillingPeriod{
		Start: h.PeriodStart,
		End:   h.PeriodEnd,
		Label: h.PeriodStart + " to " + h.PeriodEnd,
	}, true
}

// ParseHeader extracts the billing period, timezone and source lines.
func ParseHeader(text string) Header {
	var h Header
	if m := periodPattern.FindStringSubmatch(text); m != nil {
		h.PeriodStart, h.PeriodEnd = m[1], m[2]
	}
	if m := timezonePattern.FindStringSubmatch(text); m != nil {
		h.Timezone = strings.TrimSpace(m[1])
	}
	if m := sourcePattern.FindStringSubmatch(text); m != nil {
		h.Source = strings.TrimSpace(m[1])
	}
	return h
}

// ParseText parses a block-delimited export. Everything before the first
// marker line is the header. Blocks starting with '#' are comments.
func ParseText(text string, opts ...Option) Result {
	o := newOptions(opts)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	res := Result{Header: ParseHeader(text)}
	loc := o.loc
	if declared, ok := res.Header.Location(); ok {
		loc = declared
	}

	col := newCollector(loc, &res)
	ctx := context.Background()
	for i, block := range splitBlocks(text) {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "#") {
			continue
		}
		col.accept(ctx, i, candidate{
			id:          field(block, "id"),
			title:       field(block, "title"),
			description: field(block, "description"),
			start:       field(block, "start"),
			end:         field(block, "end"),
			status:      field(block, "status"),
			attendees:   parseAttendees(block),
		})
	}
	return res
}

// splitBlocks returns the event blocks, dropping the preamble.
func splitBlocks(text string) []string {
	var (
		blocks  []string
		current strings.Builder
		started bool
	)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == blockMarker {
			if started {
				blocks = append(blocks, current.String())
			}
			current.Reset()
			started = true
			continue
		}
		if started {
			current.WriteString(line)
			current.WriteByte('\n')
		}
	}
	if started {
		blocks = append(blocks, current.String())
	}
	return blocks
}

// field returns the first labeled value in block, trimmed.
func field(block, name string) string {
	m := fieldPatterns[name].FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// parseAttendees reads "- name:" / "email:" pairs. A dash starts a new
// attendee; entries without an email are ignored.
func parseAttendees(block string) []model.Attendee {
	var (
		out     []model.Attendee
		current *model.Attendee
	)
	flush := func() {
		if current != nil && current.Email != "" {
			out = append(out, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(block, "\n") {
		s := strings.TrimSpace(line)
		if strings.HasPrefix(s, "- ") || s == "-" {
			flush()
			current = &model.Attendee{}
			s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
		}
		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(s, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "name", "displayName":
			current.Name = value
		case "email":
			current.Email = value
		}
	}
	flush()
	return out
}

// FormatText writes events in the block-delimited export format. It is the
// inverse of ParseText for single-line descriptions.
func FormatText(h Header, events []model.Event) string {
	var b strings.Builder
	if h.PeriodStart != "" && h.PeriodEnd != "" {
		b.WriteString("Calendar export - Billing Period: " + h.PeriodStart + " to " + h.PeriodEnd + "\n")
	}
	if h.Timezone != "" {
		b.WriteString("Timezone: " + h.Timezone + "\n")
	}
	if h.Source != "" {
		b.WriteString("Source: " + h.Source + "\n")
	}
	for _, e := range events {
		b.WriteString(blockMarker + "\n")
		b.WriteString("  id: " + e.ID + "\n")
		b.WriteString("  title: " + oneLine(e.Title) + "\n")
		b.WriteString("  description: " + oneLine(e.Description) + "\n")
		b.WriteString("  start: " + e.Start.Format(time.RFC3339) + "\n")
		b.WriteString("  end: " + e.End.Format(time.RFC3339) + "\n")
		b.WriteString("  status: " + e.Status + "\n")
		if len(e.Attendees) > 0 {
			b.WriteString("  attendees:\n")
			for _, a := range e.Attendees {
				b.WriteString("    - name: " + oneLine(a.Name) + "\n")
				b.WriteString("      email: " + a.Email + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
