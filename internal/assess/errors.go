package assess

import (
	"errors"
	"fmt"

	"github.com/quellwerk/akquise-engine/internal/utils"
)

// ValidationError reports a structurally invalid assessment response. It is
// never retried; the payload preview is carried for diagnostics.
type ValidationError struct {
	Reason  string
	Payload string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid assessment response: %s (payload: %s)", e.Reason, utils.TruncateForLog(e.Payload, 200))
}

// NewValidationError builds a ValidationError with a truncated payload copy.
func NewValidationError(reason, payload string) *ValidationError {
	return &ValidationError{Reason: reason, Payload: payload}
}

// TransientError marks a failure worth retrying: rate limits, timeouts and
// connection problems of the assessment service.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient assessment failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
