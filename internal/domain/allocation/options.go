package allocation

import "github.com/okian/invoy/pkg/logger"

// DefaultMaxAttempts bounds calls to the live extractor per request.
const DefaultMaxAttempts = 3

// Option configures an Engine.
type Option func(*Engine)

// WithExtractor sets the live extraction provider. Without one every
// free-form request is answered by the fallback.
func WithExtractor(x Extractor) Option {
	return func(e *Engine) {
		e.live = x
	}
}

// WithFallback replaces the heuristic fallback branch.
func WithFallback(x Extractor) Option {
	return func(e *Engine) {
		if x != nil {
			e.fallback = x
		}
	}
}

// WithMaxAttempts bounds live extractor calls for malformed output.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
