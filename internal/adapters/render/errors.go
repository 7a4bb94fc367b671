package render

import "errors"

// Sentinel kinds for render errors.
var (
	ErrUnknownTemplate = errors.New("unknown invoice template")
	ErrRender          = errors.New("render invoice")
	ErrNoProducer      = errors.New("no binary producer configured")
)
