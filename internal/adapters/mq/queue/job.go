package queue

import (
	"github.com/google/uuid"

	"github.com/okian/invoy/internal/domain/attribution"
	"github.com/okian/invoy/internal/domain/model"
)

// Job asks a worker to assemble and render the invoice of one client.
// The worker answers on Reply, which should be buffered by the caller.
type Job struct {
	ID     string
	Group  attribution.Group
	Period model.BillingPeriod
	Reply  chan<- Result
}

// NewJob creates a job with a fresh ID.
func NewJob(group attribution.Group, period model.BillingPeriod, reply chan<- Result) Job {
	return Job{ID: uuid.NewString(), Group: group, Period: period, Reply: reply}
}

// Result is the outcome of one Job.
type Result struct {
	JobID     string
	ClientKey string
	Invoice   *model.Invoice
	Artifacts []string
	Degraded  bool
	Err       error
}
