package comfy

import (
	"errors"
	"fmt"
)

// TransportError indicates the generation service could not be reached or
// answered with a non-2xx status. The request may never have been processed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("comfy %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates the service answered 2xx but the response lacked
// an expected field, so the result cannot be used.
type ProtocolError struct {
	Op    string
	Field string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("comfy %s: response missing field %q", e.Op, e.Field)
}

// ErrEmptyOutput is returned when a job completes without producing any
// output images. The pipeline treats this as a soft failure.
var ErrEmptyOutput = errors.New("comfy: job executed but produced no images")

// ErrWatchTimeout is returned when no matching completion event arrives
// within the configured watch deadline.
var ErrWatchTimeout = errors.New("comfy: timed out waiting for completion event")
