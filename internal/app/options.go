package service

import (
	"time"

	"github.com/okian/invoy/internal/adapters/delivery"
	"github.com/okian/invoy/internal/adapters/render"
	"github.com/okian/invoy/internal/adapters/repository"
	"github.com/okian/invoy/internal/adapters/stt"
	"github.com/okian/invoy/internal/domain/allocation"
	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProfile sets the consultant profile used for pricing.
func WithProfile(p model.ConsultantProfile) Option {
	return func(s *Service) { s.profile = p }
}

// WithRules sets the billability rules for calendar input.
func WithRules(r model.BillingRule) Option {
	return func(s *Service) { s.rules = r }
}

// WithBranding sets presentation settings for rendered invoices.
func WithBranding(b model.Branding) Option {
	return func(s *Service) { s.branding = b }
}

// WithExtractor sets the live extraction provider.
func WithExtractor(x allocation.Extractor) Option {
	return func(s *Service) { s.extractor = x }
}

// WithMaxAttempts bounds live extraction calls per request.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithTranscriber sets the speech-to-text backend.
func WithTranscriber(t stt.Transcriber) Option {
	return func(s *Service) {
		if t != nil {
			s.transcriber = t
		}
	}
}

// WithBinaryProducer sets the converter used for binary invoices.
func WithBinaryProducer(p render.BinaryProducer) Option {
	return func(s *Service) { s.producer = p }
}

// WithDispatcher sets the delivery backend.
func WithDispatcher(d delivery.Dispatcher) Option {
	return func(s *Service) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithStore sets the artifact store. The service closes it on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithWorkerCount sets the number of render workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the render queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithClock sets the source of invoice issue dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
