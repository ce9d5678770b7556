// Package apierror defines the closed set of failure kinds produced at the
// remote API boundary and the user-facing messages derived from them.
package apierror

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failure once, where it enters the application.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindNotFound
	KindAuth
	KindRateLimited
	KindUnavailable
	KindDecode
	KindInvalidConfig
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	case KindDecode:
		return "decode"
	case KindInvalidConfig:
		return "invalid_config"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Retryable reports whether the next scheduled refresh may succeed without
// user intervention.
func (k Kind) Retryable() bool {
	switch k {
	case KindTransport, KindRateLimited, KindUnavailable:
		return true
	default:
		return false
	}
}

// Error is a classified failure.
type Error struct {
	Kind   Kind
	Status int
	// RetryAfter is the earliest time a retry is expected to succeed, when the
	// remote side told us.
	RetryAfter *time.Time
	Err        error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with kind.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// Is reports whether err was classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// RetryAfterOf returns the retry hint carried by err, if any.
func RetryAfterOf(err error) *time.Time {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return nil
}

// UserMessage maps err to a single sentence suitable for display.
// It returns "" for a nil error.
func UserMessage(err error, now time.Time) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindTransport:
		return "Cannot reach host. Check your network connection."
	case KindNotFound:
		return "The requested resource was not found."
	case KindAuth:
		return "Access denied. Check repository access or sign in again."
	case KindRateLimited:
		return "Rate limit exceeded." + retrySuffix(err, now)
	case KindUnavailable:
		return "Service temporarily unavailable." + retrySuffix(err, now)
	case KindDecode:
		return "Received an unexpected response from the server."
	case KindInvalidConfig:
		return "Invalid configuration: " + err.Error()
	case KindCanceled:
		return "Request was canceled."
	default:
		return "Request failed: " + err.Error()
	}
}

func retrySuffix(err error, now time.Time) string {
	at := RetryAfterOf(err)
	if at == nil {
		return ""
	}
	wait := at.Sub(now).Round(time.Second)
	if wait <= 0 {
		return " Retry now."
	}
	return fmt.Sprintf(" Retry in %s (at %s).", wait, at.Format(time.Kitchen))
}
