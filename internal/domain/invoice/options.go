package invoice

import (
	"time"

	"github.com/okian/invoy/pkg/logger"
)

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock sets the source of the issue date.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the assembler logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}
