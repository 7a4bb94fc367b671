package extract

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/invoy/internal/util"
)

// Option applies a configuration option to the MessagesClient.
type Option func(*MessagesClient)

// WithBaseURL sets the provider endpoint root.
func WithBaseURL(u string) Option {
	return func(c *MessagesClient) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u + "/"
		}
	}
}

// WithAPIKey sets the provider credential.
func WithAPIKey(key string) Option {
	return func(c *MessagesClient) { c.apiKey = strings.TrimSpace(key) }
}

// WithModel sets the model name sent with each request.
func WithModel(model string) Option {
	return func(c *MessagesClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens bounds the provider response length.
func WithMaxTokens(n int) Option {
	return func(c *MessagesClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *MessagesClient) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *MessagesClient) {
		if d > 0 {
			c.http = util.NewHTTPClient(d)
		}
	}
}

// WithRetry sets how many times transient transport failures are retried
// and the initial backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *MessagesClient) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}
