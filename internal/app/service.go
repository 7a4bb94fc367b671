// Package service wires the billing pipeline together and implements the
// operations used by the HTTP API and the batch CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/invoy/internal/adapters/delivery"
	"github.com/okian/invoy/internal/adapters/mq/queue"
	"github.com/okian/invoy/internal/adapters/mq/worker"
	"github.com/okian/invoy/internal/adapters/render"
	"github.com/okian/invoy/internal/adapters/repository"
	"github.com/okian/invoy/internal/adapters/stt"
	"github.com/okian/invoy/internal/domain/allocation"
	"github.com/okian/invoy/internal/domain/invoice"
	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/pkg/logger"
	"github.com/okian/invoy/pkg/metrics"
)

// Service implements the invoicing operations. Configuration is fixed at
// construction.
type Service struct {
	mu sync.RWMutex

	// Configuration
	profile     model.ConsultantProfile
	rules       model.BillingRule
	branding    model.Branding
	workerCount int
	queueSize   int
	maxAttempts int
	now         func() time.Time

	// Collaborators
	extractor   allocation.Extractor
	transcriber stt.Transcriber
	producer    render.BinaryProducer
	dispatcher  delivery.Dispatcher
	store       repository.Store

	// Components built on Start
	engine    *allocation.Engine
	assembler *invoice.Assembler
	renderer  *render.Pipeline
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	cancel    context.CancelFunc

	started bool
	logger  logger.Logger
}

// New constructs a Service. Collaborators that are not supplied fall back
// to offline implementations: no live extraction, placeholder
// transcription, HTML-only rendering, failing delivery and an in-memory
// store.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		maxAttempts: allocation.DefaultMaxAttempts,
		now:         time.Now,
		transcriber: stt.Unavailable{},
		dispatcher:  delivery.Unconfigured{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	engineOpts := []allocation.Option{
		allocation.WithMaxAttempts(s.maxAttempts),
		allocation.WithLogger(s.logger.Named("allocation")),
	}
	if s.extractor != nil {
		engineOpts = append(engineOpts, allocation.WithExtractor(s.extractor))
	}
	s.engine = allocation.NewEngine(engineOpts...)
	s.assembler = invoice.NewAssembler(s.profile, s.branding,
		invoice.WithClock(s.now), invoice.WithLogger(s.logger.Named("invoice")))
	return s
}

// Start validates the profile and starts the render workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := invoice.ValidateProfile(s.profile); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	s.logger.Info(ctx, "starting invoicing service...")

	renderer, err := render.NewPipeline(
		render.WithProducer(s.producer),
		render.WithLogger(s.logger.Named("render")),
	)
	if err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	s.renderer = renderer

	// Workers outlive the request that started the service.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	handler := worker.HandlerFunc(func(ctx context.Context, j queue.Job) queue.Result {
		return s.renderJob(ctx, renderer, j)
	})
	s.pool = worker.NewPool(s.workerCount, s.queue, handler,
		worker.WithPoolLogger(s.logger.Named("worker")))
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "invoicing service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("currency", s.profile.Currency),
		logger.Bool("liveExtraction", s.extractor != nil),
		logger.Bool("binaryRender", s.producer != nil),
	)
	return nil
}

// Stop drains the render queue and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping invoicing service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "render pool shutdown", logger.Error(err))
	}
	s.cancel()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "invoicing service stopped")
}

// running returns the started components or ErrNotStarted.
func (s *Service) running() (*render.Pipeline, *queue.InMemoryQueue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.renderer, s.queue, nil
}

// Profile returns the consultant profile.
func (s *Service) Profile() model.ConsultantProfile {
	return s.profile
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"liveExtraction": s.extractor != nil,
		"binaryRender":   s.producer != nil,
	}
	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		stats["activeWorkers"] = s.pool.Active()
		metrics.UpdateQueueSize(queueLen)
	}
	if m, ok := s.store.(*repository.MemoryStore); ok {
		stats["artifacts"] = m.Len()
	}
	return stats
}
