package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okian/invoy/internal/domain/allocation"
	"github.com/okian/invoy/internal/domain/model"
)

type draftItem struct {
	Subject        string   `json:"subject"`
	EstimatedHours *float64 `json:"estimated_hours"`
	Justification  string   `json:"justification"`
}

type draft struct {
	ClientName       string      `json:"client_name"`
	TotalHoursBilled float64     `json:"total_hours_billed"`
	BillingPeriod    string      `json:"billing_period"`
	LineItems        []draftItem `json:"line_items"`
	Confidence       float64     `json:"confidence"`
}

// ParseDraft decodes the JSON object embedded in model output. Prose or
// code fences around the object are ignored. Anything that does not match
// the allocation shape is allocation.ErrMalformed.
func ParseDraft(text string) (model.Allocation, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return model.Allocation{}, fmt.Errorf("%w: no JSON object in response", allocation.ErrMalformed)
	}

	var d draft
	if err := json.Unmarshal([]byte(text[start:end+1]), &d); err != nil {
		return model.Allocation{}, fmt.Errorf("%w: %w", allocation.ErrMalformed, err)
	}
	if d.LineItems == nil {
		return model.Allocation{}, fmt.Errorf("%w: missing line_items", allocation.ErrMalformed)
	}

	out := model.Allocation{
		ClientName:       strings.TrimSpace(d.ClientName),
		TotalHoursBilled: d.TotalHoursBilled,
		BillingPeriod:    strings.TrimSpace(d.BillingPeriod),
		Confidence:       d.Confidence,
		LineItems:        make([]model.AllocatedItem, 0, len(d.LineItems)),
	}
	for i, it := range d.LineItems {
		if it.EstimatedHours == nil {
			return model.Allocation{}, fmt.Errorf("%w: line item %d has no estimated_hours", allocation.ErrMalformed, i)
		}
		out.LineItems = append(out.LineItems, model.AllocatedItem{
			Subject:        strings.TrimSpace(it.Subject),
			EstimatedHours: *it.EstimatedHours,
			Justification:  strings.TrimSpace(it.Justification),
		})
	}
	return out, nil
}
