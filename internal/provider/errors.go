package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindRateLimited  Kind = "rate_limited"
	KindUnauthorized Kind = "unauthorized"
	KindMalformed    Kind = "malformed"
	KindTimeout      Kind = "timeout"
	KindUnknown      Kind = "unknown"
	// KindCircuitOpen marks calls skipped because the provider's circuit
	// opened earlier in the pass.
	KindCircuitOpen Kind = "circuit_open"
)

// Error is a classified provider failure. It never escapes the rate-limited
// client boundary as anything other than an attempt-history entry.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified provider error.
func NewError(provider string, kind Kind, err error) *Error {
	if kind == "" {
		kind = KindUnknown
	}
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// Classify wraps err with the best-fitting kind when it is not already a
// provider error.
func Classify(providerName string, err error) *Error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	kind := KindUnknown
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	} else {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = KindTimeout
		}
	}
	return NewError(providerName, kind, err)
}

// KindOf extracts the error kind, defaulting to unknown.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// IsRetriable reports whether err represents a transient condition that
// warrants an automatic retry (rate limits and timeouts).
func IsRetriable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTimeout:
		return true
	default:
		return false
	}
}
