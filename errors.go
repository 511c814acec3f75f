package imageflow

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrorKind is a stable identifier for a class of generation failure.
// Presentation layers key user-facing guidance off the kind, never off
// message text.
type ErrorKind string

const (
	// KindTransient covers connection resets, timeouts and upstream
	// 502/503/504 responses. Retried by the orchestrator up to its budget.
	KindTransient ErrorKind = "transient"

	// KindRateLimited is an upstream 429. Surfaced immediately; the caller
	// owns the decision to wait or spend quota on another attempt.
	KindRateLimited ErrorKind = "rate_limited"

	// KindUnauthorized is a bad or revoked credential. Never retried.
	KindUnauthorized ErrorKind = "unauthorized"

	// KindContentBlocked means the safety filter rejected the prompt or the
	// generated content. Never retried.
	KindContentBlocked ErrorKind = "content_blocked"

	// KindInvalidRequest is a malformed request. Never retried.
	KindInvalidRequest ErrorKind = "invalid_request"

	// KindQuotaExceeded is a local admission denial; no network call was made.
	KindQuotaExceeded ErrorKind = "quota_exceeded"

	// KindCooldownActive is a local admission denial from the cooldown
	// window; no network call was made.
	KindCooldownActive ErrorKind = "cooldown_active"

	// KindCancelled means cancellation was requested before the operation
	// terminated naturally.
	KindCancelled ErrorKind = "cancelled"
)

// Failure is the terminal error for an orchestrated generation request.
type Failure struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// Retriable reports whether a fresh higher-level attempt could
	// plausibly succeed. False for exhausted transient retries and for
	// fatal kinds.
	Retriable bool

	// RetryAfter is a hint for rate-limit and cooldown denials.
	RetryAfter time.Duration

	// Err is the underlying cause, when there is one.
	Err error
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("generation failed (%s): %s", f.Kind, f.Message)
	}
	if f.Err != nil {
		return fmt.Sprintf("generation failed (%s): %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("generation failed (%s)", f.Kind)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the ErrorKind carried by err, or empty when err is not a
// classified failure.
func KindOf(err error) ErrorKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsRetriable reports whether err is a Failure marked retriable.
func IsRetriable(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Retriable
}

// BackendError is the typed failure a Backend returns for expected remote
// failure modes. The orchestrator classifies on Kind; StatusCode is kept for
// logging.
type BackendError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string

	// RetryAfter is a hint from the remote service, when it supplied one.
	RetryAfter time.Duration

	Err error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend error (%s): %s", e.Kind, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Classify maps an error from a backend call to an ErrorKind. Typed backend
// errors carry their own kind; timeouts and connection faults are transient.
// Unknown errors default to transient, the conservative choice for a flaky
// network dependency.
func Classify(err error) ErrorKind {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}

	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	if errors.Is(err, ErrEmptyPrompt) || errors.Is(err, ErrEmptyImageData) ||
		errors.Is(err, ErrInvalidMIMEType) || errors.Is(err, ErrImageTooLarge) ||
		errors.Is(err, ErrTooManyImages) {
		return KindInvalidRequest
	}

	return KindTransient
}
