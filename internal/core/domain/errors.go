package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown content type or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidConfig indicates configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Notes are still produced, with degraded classification.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Inference Errors.

	// ErrTransient indicates a retryable inference failure:
	// network error, timeout, 5xx or an explicit rate-limit signal.
	ErrTransient = errors.New("transient inference failure")

	// ErrQuotaExceeded indicates a periodic usage cap was hit.
	// It is not retried within the current window.
	ErrQuotaExceeded = errors.New("inference quota exceeded")

	// ErrMalformedResponse indicates the model output did not parse into
	// the expected shape.
	ErrMalformedResponse = errors.New("malformed inference response")

	// ErrBackpressure indicates the rate limiter could not grant capacity
	// before the acquire timeout.
	ErrBackpressure = errors.New("inference capacity unavailable")

	// ErrTimeout indicates the caller deadline for an item passed.
	ErrTimeout = errors.New("processing deadline exceeded")
)

// PipelineError is a true pipeline failure. No document is produced.
type PipelineError struct {
	SourceRef string
	State     PipelineState
	Err       error
}

// Error implements error.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s for %q: %v", e.State, e.SourceRef, e.Err)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Reason returns a single human-readable sentence for user-facing replies.
func (e *PipelineError) Reason() string {
	return FailureReason(e.Err)
}

// FailureReason maps an error to a single human-readable sentence.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Processing took too long and was stopped."
	case errors.Is(err, context.Canceled):
		return "Processing was cancelled."
	case errors.Is(err, ErrInvalidInput):
		return "The message was empty or could not be read."
	case errors.Is(err, ErrUnsupportedType):
		return "This kind of content is not supported."
	default:
		return "The note could not be saved. Please try again later."
	}
}

// DegradedReason returns a short tag describing why classification degraded.
func DegradedReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrBackpressure):
		return "backpressure"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrTransient):
		return "transient_exhausted"
	case errors.Is(err, ErrLLMUnavailable):
		return "llm_unavailable"
	default:
		return "inference_failed"
	}
}

// IsRetryable reports whether an inference error should be retried with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
