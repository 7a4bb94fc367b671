package delivery

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"

	"github.com/okian/invoy/internal/util"
	"github.com/okian/invoy/pkg/logger"
	"github.com/okian/invoy/pkg/metrics"
)

const defaultFrom = "Invoy <onboarding@resend.dev>"

// ResendDispatcher sends mail through the Resend API.
type ResendDispatcher struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
	log     logger.Logger
	resend  *resend.Client
}

// Option applies a configuration option to the ResendDispatcher.
type Option func(*ResendDispatcher)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(d *ResendDispatcher) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			d.baseURL = u + "/"
		}
	}
}

// WithFrom sets the sender address.
func WithFrom(from string) Option {
	return func(d *ResendDispatcher) {
		if from != "" {
			d.from = from
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *ResendDispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *ResendDispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// NewResendDispatcher creates a dispatcher. Without an API key every send
// reports an error status.
func NewResendDispatcher(apiKey string, opts ...Option) *ResendDispatcher {
	d := &ResendDispatcher{
		apiKey:  strings.TrimSpace(apiKey),
		from:    defaultFrom,
		client:  util.NewHTTPClient(30 * time.Second),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.resend = resend.NewCustomClient(d.client, d.apiKey)
	if d.baseURL != "" {
		if u, err := url.Parse(d.baseURL); err == nil {
			d.resend.BaseURL = u
		} else {
			d.log.Warn(context.Background(), "ignoring invalid mail api url",
				logger.String("url", d.baseURL), logger.Error(err))
		}
	}
	return d
}

// Send implements Dispatcher.
func (d *ResendDispatcher) Send(ctx context.Context, msg Message) Status {
	st := d.send(ctx, msg)
	metrics.RecordDelivery(st.State)
	if st.State == StateError {
		d.log.Warn(ctx, "invoice delivery failed",
			logger.String("recipient", msg.Recipient), logger.String("message", st.Message))
	}
	return st
}

func (d *ResendDispatcher) send(ctx context.Context, msg Message) Status {
	if d.apiKey == "" {
		return Failed("RESEND_API_KEY not configured")
	}
	if msg.Invoice == nil {
		return Failed("no invoice to send")
	}
	recipient := strings.TrimSpace(msg.Recipient)
	if !strings.Contains(recipient, "@") {
		return Failed("invalid recipient %q", msg.Recipient)
	}

	req := &resend.SendEmailRequest{
		From:    d.from,
		To:      []string{recipient},
		Subject: Subject(msg.Invoice),
		Html:    BuildBody(msg.Invoice),
	}
	if len(msg.Attachment) > 0 {
		req.Attachments = []*resend.Attachment{{
			Filename: msg.AttachmentName,
			Content:  msg.Attachment,
		}}
	}

	sent, err := d.resend.Emails.SendWithOptions(ctx, req, &resend.SendEmailOptions{
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return Failed("send email: %v", err)
	}
	return Status{State: StateOK, ID: sent.Id, Recipient: recipient}
}

// Unconfigured is used when no mail provider is set up.
type Unconfigured struct{}

// Send implements Dispatcher.
func (Unconfigured) Send(context.Context, Message) Status {
	metrics.RecordDelivery(StateError)
	return Failed("%s", "delivery provider not configured")
}

var _ Dispatcher = (*ResendDispatcher)(nil)
