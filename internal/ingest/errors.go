package ingest

import "errors"

// ErrValidation is returned when a write request is missing required
// fields or carries out-of-range values.
var ErrValidation = errors.New("ingest: validation failed")

// ErrClosed is returned by Write once Close has been called.
var ErrClosed = errors.New("ingest: service closed")
