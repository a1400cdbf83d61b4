package sharing

import (
	"errors"
	"fmt"
	"time"

	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
)

type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindForbidden
	KindNotFound
	KindPasswordRequired
	KindDenied
	KindThrottled
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindPasswordRequired:
		return "password_required"
	case KindDenied:
		return "denied"
	case KindThrottled:
		return "throttled"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Error is returned by every Service operation that fails in a way the
// caller is expected to act on.
type Error struct {
	Kind Kind

	// Set for KindDenied, and for KindPasswordRequired / KindThrottled so
	// the recorded reason is visible to callers that log it.
	Reason models.FailureReason

	// Field name to problem, KindInvalidArgument only.
	Fields map[string]string

	RetryAfter time.Duration

	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += " (" + string(e.Reason) + ")"
	}
	for field, problem := range e.Fields {
		msg += fmt.Sprintf("; %s: %s", field, problem)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func invalidArgument(fields map[string]string) *Error {
	return &Error{Kind: KindInvalidArgument, Fields: fields}
}

func forbidden() *Error {
	return &Error{Kind: KindForbidden}
}

func notFound() *Error {
	return &Error{Kind: KindNotFound}
}

func passwordRequired() *Error {
	return &Error{Kind: KindPasswordRequired, Reason: models.ReasonPasswordRequired}
}

func denied(reason models.FailureReason) *Error {
	return &Error{Kind: KindDenied, Reason: reason}
}

func throttled(retryAfter time.Duration) *Error {
	return &Error{Kind: KindThrottled, Reason: models.ReasonRateLimited, RetryAfter: retryAfter}
}

func unavailable(err error) *Error {
	return &Error{Kind: KindUnavailable, Err: err}
}
