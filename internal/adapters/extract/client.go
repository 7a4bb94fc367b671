// Package extract talks to a hosted language model that turns free-form
// work notes into a draft allocation.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/okian/invoy/internal/domain/allocation"
	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/internal/util"
)

const (
	defaultModel     = "claude-3-5-sonnet-latest"
	defaultMaxTokens = 1024
)

const systemPrompt = `You convert a consultant's work notes into billing data.
Reply with one JSON object and nothing else:
{"client_name": string, "total_hours_billed": number, "billing_period": string,
 "line_items": [{"subject": string, "estimated_hours": number, "justification": string}],
 "confidence": number between 0 and 1}
Use an empty string or 0 when a value is not stated. Hours must not be negative.`

// MessagesClient implements allocation.Extractor over the Anthropic
// messages API.
type MessagesClient struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	attempts  int
	backoff   time.Duration
	http      *http.Client
	messages  anthropic.MessageService
}

// New creates a client. Without an API key every call reports
// allocation.ErrUnavailable.
func New(opts ...Option) *MessagesClient {
	c := &MessagesClient{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		attempts:  2,
		backoff:   250 * time.Millisecond,
		http:      util.NewHTTPClient(30 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Retries stay in util.Retry so the backoff is ours.
	sdkOpts := []option.RequestOption{
		option.WithAPIKey(c.apiKey),
		option.WithHTTPClient(c.http),
		option.WithMaxRetries(0),
	}
	if c.baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(c.baseURL))
	}
	client := anthropic.NewClient(sdkOpts...)
	c.messages = client.Messages
	return c
}

// Extract implements allocation.Extractor.
func (c *MessagesClient) Extract(ctx context.Context, req allocation.FreeformRequest) (model.Allocation, error) {
	if c.apiKey == "" {
		return model.Allocation{}, fmt.Errorf("%w: no api key configured", allocation.ErrUnavailable)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))),
		},
	}

	var text string
	err := util.Retry(ctx, c.attempts, c.backoff, 4*c.backoff, func() error {
		var callErr error
		text, callErr = c.call(ctx, params)
		return callErr
	})
	if err != nil {
		return model.Allocation{}, fmt.Errorf("%w: %w", allocation.ErrUnavailable, err)
	}
	return ParseDraft(text)
}

func (c *MessagesClient) call(ctx context.Context, params anthropic.MessageNewParams) (string, error) {
	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return "", classify(ctx, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// classify marks failures that a retry cannot fix as permanent.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return util.Permanent(err)
	}
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	wrapped := fmt.Errorf("provider status %d: %w", apiErr.StatusCode, err)
	if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
		return wrapped
	}
	return util.Permanent(wrapped)
}

func userPrompt(req allocation.FreeformRequest) string {
	var sb strings.Builder
	if req.DefaultClient != "" {
		fmt.Fprintf(&sb, "Client if not stated: %s\n", req.DefaultClient)
	}
	if req.DefaultHours != nil {
		fmt.Fprintf(&sb, "Total hours if not stated: %g\n", *req.DefaultHours)
	}
	if req.BillingPeriod != "" {
		fmt.Fprintf(&sb, "Billing period: %s\n", req.BillingPeriod)
	}
	sb.WriteString("Notes:\n")
	sb.WriteString(req.Text)
	return sb.String()
}
