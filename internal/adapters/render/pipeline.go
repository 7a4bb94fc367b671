package render

import (
	"context"
	"time"

	"github.com/okian/invoy/internal/domain/model"
	"github.com/okian/invoy/pkg/logger"
	"github.com/okian/invoy/pkg/metrics"
)

// Document is the rendered form of an invoice. When Degraded is set only
// HTML is available and Reason says why.
type Document struct {
	HTML     []byte
	PDF      []byte
	Degraded bool
	Reason   string
}

// Pipeline renders HTML and then asks the producer for a binary copy.
type Pipeline struct {
	html     *HTMLRenderer
	producer BinaryProducer
	log      logger.Logger
}

// PipelineOption applies a configuration option to the Pipeline.
type PipelineOption func(*Pipeline)

// WithProducer sets the binary producer. A nil producer leaves every
// document degraded.
func WithProducer(p BinaryProducer) PipelineOption {
	return func(pl *Pipeline) { pl.producer = p }
}

// WithLogger sets the logger used for degraded renders.
func WithLogger(l logger.Logger) PipelineOption {
	return func(pl *Pipeline) {
		if l != nil {
			pl.log = l
		}
	}
}

// NewPipeline creates a pipeline over the embedded templates.
func NewPipeline(opts ...PipelineOption) (*Pipeline, error) {
	h, err := NewHTMLRenderer()
	if err != nil {
		return nil, err
	}
	p := &Pipeline{html: h, log: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Render returns the HTML document and, when possible, the binary one.
// Only HTML failures are errors; producer failures degrade the document.
func (p *Pipeline) Render(ctx context.Context, inv *model.Invoice, templateID string) (Document, error) {
	start := time.Now()
	html, err := p.html.Render(inv, templateID)
	if err != nil {
		metrics.RecordRender("error", msSince(start))
		return Document{}, err
	}

	doc := Document{HTML: html}
	if p.producer == nil {
		doc.Degraded, doc.Reason = true, ErrNoProducer.Error()
		metrics.RecordRender("degraded", msSince(start))
		return doc, nil
	}

	pdf, err := p.producer.Produce(ctx, html)
	if err != nil {
		doc.Degraded, doc.Reason = true, err.Error()
		p.log.Warn(ctx, "binary render failed, serving HTML only",
			logger.String("invoice_id", inv.ID), logger.Error(err))
		metrics.RecordRender("degraded", msSince(start))
		return doc, nil
	}
	doc.PDF = pdf
	metrics.RecordRender("ok", msSince(start))
	return doc, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
