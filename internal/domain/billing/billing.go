// Package billing decides which calendar events are billable.
//
// Every function here is pure: the result depends only on the arguments.
package billing

import (
	"strings"

	"github.com/okian/invoy/internal/domain/model"
)

// Names of the rules an event can fail, in evaluation order.
const (
	RuleKeyword      = "excluded_keyword"
	RuleStatus       = "not_confirmed"
	RuleDuration     = "too_short"
	RuleCounterparty = "no_counterparty"
)

// Verdict explains the billability decision for one event.
type Verdict struct {
	Billable bool
	// Rule is the first failing rule, empty when billable.
	Rule   string
	Detail string
}

// Explain evaluates all billability rules and reports the first failure.
func Explain(e model.Event, rules model.BillingRule, consultantEmail string) Verdict {
	title := strings.ToLower(e.Title)
	for _, kw := range rules.ExcludeKeywordsInTitle {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(title, kw) {
			return Verdict{Rule: RuleKeyword, Detail: kw}
		}
	}

	if e.Status != model.StatusConfirmed {
		return Verdict{Rule: RuleStatus, Detail: e.Status}
	}

	if e.DurationHours()*60 < rules.MinDurationMinutes {
		return Verdict{Rule: RuleDuration}
	}

	if !HasCounterparty(e, consultantEmail) {
		return Verdict{Rule: RuleCounterparty}
	}

	return Verdict{Billable: true}
}

// IsBillable reports whether e passes every billability rule.
func IsBillable(e model.Event, rules model.BillingRule, consultantEmail string) bool {
	return Explain(e, rules, consultantEmail).Billable
}

// HasCounterparty reports whether some attendee email differs from the
// consultant's, ignoring case.
func HasCounterparty(e model.Event, consultantEmail string) bool {
	for _, a := range e.Attendees {
		if !strings.EqualFold(strings.TrimSpace(a.Email), strings.TrimSpace(consultantEmail)) {
			return true
		}
	}
	return false
}

// Stats counts filter outcomes. Excluded is keyed by rule name.
type Stats struct {
	Total    int            `json:"total"`
	Billable int            `json:"billable"`
	Excluded map[string]int `json:"excluded,omitempty"`
}

// Filter returns the billable events in input order.
func Filter(events []model.Event, rules model.BillingRule, consultantEmail string) ([]model.Event, Stats) {
	stats := Stats{Total: len(events), Excluded: map[string]int{}}
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		v := Explain(e, rules, consultantEmail)
		if !v.Billable {
			stats.Excluded[v.Rule]++
			continue
		}
		out = append(out, e)
	}
	stats.Billable = len(out)
	return out, stats
}
