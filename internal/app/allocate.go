package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/invoy/internal/domain/allocation"
	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/pkg/logger"
)

// AllocateRequest asks for hours to be split across subjects.
// WorkSubjects is the older field name for Subjects and is used only when
// Subjects is empty.
type AllocateRequest struct {
	Client        string   `json:"client"`
	TotalHours    float64  `json:"total_hours"`
	Subjects      []string `json:"subjects"`
	WorkSubjects  []string `json:"work_subjects,omitempty"`
	BillingPeriod string   `json:"billing_period,omitempty"`
}

// SubjectList returns Subjects, falling back to WorkSubjects.
func (r AllocateRequest) SubjectList() []string {
	if len(r.Subjects) > 0 {
		return r.Subjects
	}
	return r.WorkSubjects
}

// ExtractRequest asks for an allocation derived from free-form notes.
type ExtractRequest struct {
	Text          string   `json:"text"`
	DefaultClient string   `json:"default_client,omitempty"`
	DefaultHours  *float64 `json:"default_hours,omitempty"`
	BillingPeriod string   `json:"billing_period,omitempty"`
}

// Allocate splits the total proportionally to subject word counts.
func (s *Service) Allocate(ctx context.Context, req AllocateRequest) (model.Allocation, error) {
	if strings.TrimSpace(req.Client) == "" {
		return model.Allocation{}, fmt.Errorf("%w: client is required", ErrInvalidRequest)
	}
	out, err := s.engine.AllocateStructured(ctx, allocation.Request{
		Client:        req.Client,
		TotalHours:    req.TotalHours,
		Subjects:      req.SubjectList(),
		BillingPeriod: req.BillingPeriod,
	})
	if err != nil {
		return model.Allocation{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return out, nil
}

// Extract derives an allocation from notes. It always answers; the
// Source field tells whether the live provider or the heuristic did.
func (s *Service) Extract(ctx context.Context, req ExtractRequest) (model.Allocation, error) {
	if strings.TrimSpace(req.Text) == "" {
		return model.Allocation{}, fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	out := s.engine.Extract(ctx, allocation.FreeformRequest{
		Text:          req.Text,
		DefaultClient: req.DefaultClient,
		DefaultHours:  req.DefaultHours,
		BillingPeriod: req.BillingPeriod,
	})
	s.logger.Debug(ctx, "extracted allocation",
		logger.String("source", string(out.Source)),
		logger.Int("items", len(out.LineItems)))
	return out, nil
}

// Transcribe converts audio to text. Failures come back as placeholder
// text, never as errors.
func (s *Service) Transcribe(ctx context.Context, audio []byte) string {
	return s.transcriber.Transcribe(ctx, audio)
}
