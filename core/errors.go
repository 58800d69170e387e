package core

import (
	"errors"
	"fmt"
)

// ErrNoModalityData means fusion received no non-empty similarity curve.
// An empty video or a query with every modality disabled ends up here.
var ErrNoModalityData = errors.New("no modality produced similarity data")

// InvalidSampleError rejects a malformed or out-of-order embedding sample at
// ingestion. It never escapes a single Put call.
type InvalidSampleError struct {
	Modality Modality
	Reason   string
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("invalid %s sample: %s", e.Modality, e.Reason)
}

// InvalidConfigError rejects detection parameters before processing starts.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// EncoderError wraps a failed external encoder call. Timeout distinguishes a
// per-request deadline hit from any other collaborator failure.
type EncoderError struct {
	Modality Modality
	Timeout  bool
	Err      error
}

func (e *EncoderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s encoder timed out: %v", e.Modality, e.Err)
	}
	return fmt.Sprintf("%s encoder failed: %v", e.Modality, e.Err)
}

func (e *EncoderError) Unwrap() error { return e.Err }

// IsEncoderTimeout reports whether err carries an encoder deadline failure.
func IsEncoderTimeout(err error) bool {
	var ee *EncoderError
	return errors.As(err, &ee) && ee.Timeout
}
