package llm

import (
	"errors"
	"fmt"
)

// Error classification for model calls. Transient errors may be retried
// against the same endpoint or a fallback; fatal errors abort immediately.

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// ExtractionError indicates that no JSON object satisfying the required
// keys could be recovered from a model response. The preview is bounded to
// keep error messages (and anything that logs them) small.
type ExtractionError struct {
	// RequiredKeys is the key set the caller demanded.
	RequiredKeys []string

	// Preview holds the first previewLimit characters of the raw response.
	Preview string
}

func (e *ExtractionError) Error() string {
	if len(e.RequiredKeys) > 0 {
		return fmt.Sprintf("could not extract JSON with required keys %v from response (preview: %s)",
			e.RequiredKeys, e.Preview)
	}
	return fmt.Sprintf("could not extract valid JSON from response (preview: %s)", e.Preview)
}

// IsExtractionError returns true if the error is an extraction failure.
func IsExtractionError(err error) bool {
	var extraction *ExtractionError
	return errors.As(err, &extraction)
}
