// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/rankcompare/internal/httputil"
)

// Kind classifies a provider failure.
type Kind int

const (
	// KindTransient means a retry may succeed (timeout, rate limit, 5xx).
	KindTransient Kind = iota
	// KindPermanent means retrying is futile (malformed query, most 4xx).
	KindPermanent
	// KindBlocked means the provider signaled abuse detection; it must not
	// be called again until a cool-down elapses.
	KindBlocked
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// BlockThreshold is the Retry-After length at which a 429 is treated as a
// block rather than a transient rate limit.
var BlockThreshold = 5 * time.Minute

// Error is the failure type returned by adapters.
type Error struct {
	Source     string
	Kind       Kind
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a transient failure of source.
func Transient(source string, err error) *Error {
	return &Error{Source: source, Kind: KindTransient, Err: err}
}

// Permanent wraps err as a permanent failure of source.
func Permanent(source string, err error) *Error {
	return &Error{Source: source, Kind: KindPermanent, Err: err}
}

// Blocked wraps err as a block signal from source.
func Blocked(source string, err error) *Error {
	return &Error{Source: source, Kind: KindBlocked, Err: err}
}

// KindOf classifies any error. Typed *Error values keep their kind; timeouts
// and unknown errors count as transient.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// IsTimeout reports whether err stems from a deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// classifyStatus maps an HTTP status to a failure kind.
func classifyStatus(code int, retryAfter time.Duration) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		if retryAfter >= BlockThreshold {
			return KindBlocked
		}
		return KindTransient
	case code == http.StatusForbidden:
		return KindBlocked
	case code == http.StatusRequestTimeout, code >= 500:
		return KindTransient
	case code >= 400:
		return KindPermanent
	default:
		return KindTransient
	}
}

// fromHTTP converts an httputil error into a classified *Error.
func fromHTTP(source string, err error) *Error {
	var se *httputil.StatusError
	if errors.As(err, &se) {
		return &Error{
			Source:     source,
			Kind:       classifyStatus(se.StatusCode, se.RetryAfter),
			RetryAfter: se.RetryAfter,
			Err:        err,
		}
	}
	return Transient(source, err)
}
