package model

// AllocationSource names the branch that produced an allocation.
type AllocationSource string

const (
	SourceStructured AllocationSource = "structured"
	SourceLive       AllocationSource = "live"
	SourceHeuristic  AllocationSource = "heuristic"
)

// AllocatedItem is one subject with its share of the billed hours.
type AllocatedItem struct {
	Subject        string  `json:"subject"`
	EstimatedHours float64 `json:"estimated_hours"`
	Justification  string  `json:"justification"`
}

// Allocation is the result shape shared by every allocation path.
// Confidence is advisory only.
type Allocation struct {
	ClientName       string           `json:"client_name"`
	TotalHoursBilled float64          `json:"total_hours_billed"`
	BillingPeriod    string           `json:"billing_period"`
	LineItems        []AllocatedItem  `json:"line_items"`
	Confidence       float64          `json:"confidence"`
	Source           AllocationSource `json:"source"`
}
