package invoice

import "errors"

// ErrValidation is returned when the consultant profile or the request
// lacks a mandatory field. It is fatal to the finalize operation.
var ErrValidation = errors.New("invoice validation failed")
