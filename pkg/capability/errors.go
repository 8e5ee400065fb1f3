package capability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"content-studio-be/pkg/llm"
)

// TransientError is a failure worth retrying: rate limits, overload, timeouts
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError must not be retried: bad input, blocked content, auth
type PermanentError struct {
	Err        error
	StatusCode int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return isTransientStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return code >= 500
}

// FromStatus classifies a backend's non-2xx answer
func FromStatus(code int, body string) error {
	err := fmt.Errorf("status %d: %s", code, strings.TrimSpace(body))
	if isTransientStatus(code) {
		return &TransientError{Err: err, StatusCode: code}
	}
	return &PermanentError{Err: err, StatusCode: code}
}

// UserMessage turns a capability failure into text safe to show the user
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	lower := strings.ToLower(err.Error())

	var status int
	var transientErr *TransientError
	var permanentErr *PermanentError
	var statusErr *llm.StatusError
	switch {
	case errors.As(err, &transientErr):
		status = transientErr.StatusCode
	case errors.As(err, &permanentErr):
		status = permanentErr.StatusCode
	case errors.As(err, &statusErr):
		status = statusErr.StatusCode
	}

	switch {
	case status == http.StatusTooManyRequests || strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit"):
		return "The generation service is busy right now. Please try again in a minute."
	case strings.Contains(lower, "safety") || strings.Contains(lower, "blocked"):
		return "That request was blocked by the content filter. Try rephrasing it."
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(lower, "timeout"):
		return "The request took too long. Please try again."
	case status == http.StatusUnauthorized || status == http.StatusForbidden || strings.Contains(lower, "api key"):
		return "The generation service rejected our credentials. Please contact support."
	case status >= 500:
		return "The generation service is unavailable at the moment. Please try again."
	}
	return "Something went wrong while generating. Please try again."
}
