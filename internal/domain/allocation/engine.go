package allocation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/pkg/logger"
	"github.com/okian/invoy/pkg/metrics"
)

// liveConfidence is reported when a provider omits or garbles confidence.
const liveConfidence = 0.5

// Extractor turns free text into a draft allocation.
type Extractor interface {
	Extract(ctx context.Context, req FreeformRequest) (model.Allocation, error)
}

// Request is a structured allocation request.
type Request struct {
	Client        string
	TotalHours    float64
	Subjects      []string
	BillingPeriod string
}

// FreeformRequest is a free-text extraction request. Defaults apply when
// the extracted draft lacks a client or a total.
type FreeformRequest struct {
	Text          string
	DefaultClient string
	DefaultHours  *float64
	BillingPeriod string
}

// Engine allocates hours. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	live        Extractor
	fallback    Extractor
	maxAttempts int
	log         logger.Logger
}

// NewEngine creates an engine with the heuristic fallback.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		fallback:    HeuristicExtractor{},
		maxAttempts: DefaultMaxAttempts,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AllocateStructured performs proportional allocation and wraps the items
// in the allocation envelope.
func (e *Engine) AllocateStructured(ctx context.Context, req Request) (model.Allocation, error) {
	if math.IsNaN(req.TotalHours) || math.IsInf(req.TotalHours, 0) || req.TotalHours < 0 {
		return model.Allocation{}, fmt.Errorf("%w: %v", ErrInvalidHours, req.TotalHours)
	}

	out := model.Allocation{
		ClientName:       strings.TrimSpace(req.Client),
		TotalHoursBilled: req.TotalHours,
		BillingPeriod:    periodOrDefault(req.BillingPeriod),
		LineItems:        Allocate(req.TotalHours, req.Subjects),
		Source:           model.SourceStructured,
	}
	if len(out.LineItems) > 0 {
		out.Confidence = StructuredConfidence
	}

	metrics.RecordAllocation(string(out.Source))
	e.log.Debug(ctx, "structured allocation",
		logger.String("client", out.ClientName),
		logger.Float64("total_hours", out.TotalHoursBilled),
		logger.Int("items", len(out.LineItems)))
	return out, nil
}

// Extract asks the live provider for a draft, retrying malformed output at
// most maxAttempts times, and otherwise answers with the fallback branch.
// It never fails.
func (e *Engine) Extract(ctx context.Context, req FreeformRequest) model.Allocation {
	reason := "no_provider"
	if e.live != nil {
		draft, err := e.tryLive(ctx, req)
		if err == nil {
			return e.finish(ctx, draft, req, model.SourceLive)
		}
		reason = fallbackReason(err)
		e.log.Warn(ctx, "extraction fell back to heuristic",
			logger.String("reason", reason), logger.Error(err))
	}

	metrics.RecordExtractionFallback(reason)
	draft, err := e.fallback.Extract(ctx, req)
	if err != nil {
		// A replaced fallback may fail; the built-in heuristic cannot.
		e.log.Error(ctx, "fallback extractor failed", logger.Error(err))
		draft, _ = HeuristicExtractor{}.Extract(ctx, req)
	}
	return e.finish(ctx, draft, req, model.SourceHeuristic)
}

func (e *Engine) tryLive(ctx context.Context, req FreeformRequest) (model.Allocation, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.Allocation{}, err
		}

		started := time.Now()
		draft, err := e.live.Extract(ctx, req)
		if err == nil {
			err = validateDraft(draft)
		}
		metrics.RecordExtractionAttempt(attemptOutcome(err), float64(time.Since(started).Milliseconds()))
		if err == nil {
			return draft, nil
		}

		lastErr = err
		if !errors.Is(err, ErrMalformed) {
			return model.Allocation{}, err
		}
		e.log.Debug(ctx, "malformed extraction result",
			logger.Int("attempt", attempt), logger.Int("max_attempts", e.maxAttempts), logger.Error(err))
	}
	return model.Allocation{}, lastErr
}

// finish applies request defaults and reconciles the items.
func (e *Engine) finish(ctx context.Context, draft model.Allocation, req FreeformRequest, source model.AllocationSource) model.Allocation {
	draft.Source = source
	if strings.TrimSpace(draft.ClientName) == "" {
		draft.ClientName = strings.TrimSpace(req.DefaultClient)
	}
	if draft.TotalHoursBilled <= 0 {
		switch {
		case req.DefaultHours != nil && *req.DefaultHours >= 0:
			draft.TotalHoursBilled = *req.DefaultHours
		default:
			draft.TotalHoursBilled = Round1(Sum(draft.LineItems))
		}
	}
	if strings.TrimSpace(draft.BillingPeriod) == "" {
		draft.BillingPeriod = periodOrDefault(req.BillingPeriod)
	}
	if source == model.SourceLive && (draft.Confidence <= 0 || draft.Confidence > 1) {
		draft.Confidence = liveConfidence
	}
	draft.LineItems = Reconcile(draft.LineItems, draft.TotalHoursBilled)

	metrics.RecordAllocation(string(source))
	e.log.Debug(ctx, "free-form allocation",
		logger.String("source", string(source)),
		logger.String("client", draft.ClientName),
		logger.Float64("total_hours", draft.TotalHoursBilled),
		logger.Int("items", len(draft.LineItems)))
	return draft
}

// validateDraft rejects provider output that cannot be reconciled.
func validateDraft(d model.Allocation) error {
	if len(d.LineItems) == 0 {
		return fmt.Errorf("%w: no line items", ErrMalformed)
	}
	if math.IsNaN(d.TotalHoursBilled) || d.TotalHoursBilled < 0 {
		return fmt.Errorf("%w: total_hours_billed %v", ErrMalformed, d.TotalHoursBilled)
	}
	for i, it := range d.LineItems {
		if strings.TrimSpace(it.Subject) == "" {
			return fmt.Errorf("%w: line item %d has no subject", ErrMalformed, i)
		}
		if math.IsNaN(it.EstimatedHours) || math.IsInf(it.EstimatedHours, 0) || it.EstimatedHours < 0 {
			return fmt.Errorf("%w: line item %d has invalid hours", ErrMalformed, i)
		}
	}
	return nil
}

func attemptOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return attemptOutcome(err)
	}
}

func periodOrDefault(p string) string {
	if p = strings.TrimSpace(p); p != "" {
		return p
	}
	return DefaultBillingPeriod
}
