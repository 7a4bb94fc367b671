// Package attribution assigns billable events to counterparties.
package attribution

import (
	"strings"
	"unicode"

	"github.com/okian/invoy/internal/domain/model"
)

// Group is the set of events attributed to one client. Key is the
// lowercased client email.
type Group struct {
	Key    string
	Client model.Client
	Events []model.Event
}

// IdentifyClient returns the first attendee, in list order, whose email
// differs from the consultant's. The name falls back to the email.
func IdentifyClient(e model.Event, consultantEmail string) (model.Client, bool) {
	consultantEmail = strings.TrimSpace(consultantEmail)
	for _, a := range e.Attendees {
		email := strings.TrimSpace(a.Email)
		if email == "" || strings.EqualFold(email, consultantEmail) {
			continue
		}
		return model.Client{Name: a.DisplayName(), Email: email}, true
	}
	return model.Client{}, false
}

// GroupByClient attributes every event and groups them by lowercased client email.
// Groups are ordered by first appearance and named after the first-seen
// attendee name for that email. Events without a counterparty are skipped
// and counted in unattributed.
func GroupByClient(events []model.Event, consultantEmail string) (groups []Group, unattributed int) {
	index := map[string]int{}
	for _, e := range events {
		client, ok := IdentifyClient(e, consultantEmail)
		if !ok {
			unattributed++
			continue
		}
		key := strings.ToLower(client.Email)
		i, seen := index[key]
		if !seen {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key, Client: client})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	return groups, unattributed
}

// ClientKey turns a client identity into a token usable in identifiers and
// file names: '@' becomes '_' and any other non-alphanumeric rune '-'.
func ClientKey(identity string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(identity) {
		switch {
		case r == '@':
			b.WriteByte('_')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
