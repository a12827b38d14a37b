package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an upstream failure. The set is closed.
type ErrorKind int

// Upstream failure classes.
const (
	ErrKindNotFound ErrorKind = iota + 1
	ErrKindRateLimited
	ErrKindRejected
	ErrKindTransport
	ErrKindDecode
)

// String names the failure class for logs and metric labels.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindRateLimited:
		return "rate_limited"
	case ErrKindRejected:
		return "rejected"
	case ErrKindTransport:
		return "transport"
	case ErrKindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// UpstreamError reports a classified failure of a catalog call. Callers skip the
// current character on any UpstreamError; nothing is retried.
type UpstreamError struct {
	Kind   ErrorKind
	Op     string
	ID     int
	Status int
	Err    error
}

// Error implements error.
func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s %d: %s", e.Op, e.ID, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// KindOf returns the ErrorKind of err, or zero when err is not an UpstreamError.
func KindOf(err error) ErrorKind {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return 0
}

// KindForStatus maps a non-2xx HTTP status to its failure class.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == 404:
		return ErrKindNotFound
	case status == 429:
		return ErrKindRateLimited
	default:
		return ErrKindRejected
	}
}
