package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ModelError describes a failed provider call, classified for retry.
// Transient failures (timeouts, rate limits, provider outages) are retried
// with backoff; permanent ones (bad credentials, unknown model, malformed
// request) abort the owning task immediately.
type ModelError struct {
	Provider  string
	Status    int // HTTP status when available, 0 otherwise
	Transient bool
	Err       error
}

func (e *ModelError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s failure (status %d): %v", e.Provider, kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Provider, kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError classifies an HTTP-level provider failure by status code.
func NewModelError(provider string, status int, err error) *ModelError {
	return &ModelError{Provider: provider, Status: status, Transient: TransientStatus(status), Err: err}
}

// TransientModelError marks a non-HTTP failure (network, timeout) retryable.
func TransientModelError(provider string, err error) *ModelError {
	return &ModelError{Provider: provider, Transient: true, Err: err}
}

// PermanentModelError marks a failure that a retry cannot fix.
func PermanentModelError(provider string, err error) *ModelError {
	return &ModelError{Provider: provider, Transient: false, Err: err}
}

// TransientStatus reports whether an HTTP status is worth retrying.
func TransientStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= http.StatusInternalServerError
}

// IsTransient reports whether err may succeed on retry. Errors without a
// ModelError in their chain (raw network and timeout errors) are treated as
// transient; retries are bounded either way.
func IsTransient(err error) bool {
	var me *ModelError
	if errors.As(err, &me) {
		return me.Transient
	}
	return true
}
