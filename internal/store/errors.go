package store

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a store failure. Callers branch on Kind, never on the
// wrapped transport error.
type Kind int

const (
	// KindConnection marks a failure to establish or use a handle
	// (authentication, dial, broken session). Retried with a fresh handle.
	KindConnection Kind = iota + 1

	// KindTransient marks a failure expected to resolve on retry:
	// network timeout, rate limit, transient server fault.
	KindTransient

	// KindTimeout marks a caller deadline exceeded, possibly mid-retry.
	// Distinct from KindTransient so callers can tell "gave up after
	// retries" from "ran out of time".
	KindTimeout

	// KindPermission marks authentication or authorization denial.
	// Never retried.
	KindPermission

	// KindMalformedRef marks an invalid reference, query, or argument.
	// Never retried.
	KindMalformedRef

	// KindInternal marks an unclassified backend failure. Never retried.
	KindInternal
)

// String returns the kind's short tag.
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTransient:
		return "transient"
	case KindTimeout:
		return "timeout"
	case KindPermission:
		return "permission"
	case KindMalformedRef:
		return "malformed_ref"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Error is a classified store failure. The raw transport error stays
// wrapped in Err and is reachable through errors.Unwrap for logging.
type Error struct {
	Kind Kind
	Op   string // operation name: "write", "read", "query", ...
	Ref  Ref    // zero-valued for non-document operations
	Err  error
}

func (e *Error) Error() string {
	if e.Ref != (Ref{}) {
		return fmt.Sprintf("store %s %s: %s: %v", e.Op, e.Ref, e.Kind, e.Err)
	}
	return fmt.Sprintf("store %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the gateway may retry the operation.
// Connection failures are retryable because the gateway replaces the
// handle before the next attempt.
func (e *Error) IsRetryable() bool {
	return e.Kind == KindTransient || e.Kind == KindConnection
}

// KindOf returns the classification of err, or KindInternal when err is
// not a store error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsTimeout reports whether err is a deadline/cancellation failure.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

// IsTransient reports whether err is a transient failure that exhausted
// its retry budget.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// IsPermission reports whether err is an authentication or authorization
// denial.
func IsPermission(err error) bool { return KindOf(err) == KindPermission }

// IsMalformedRef reports whether err is an invalid reference or query.
func IsMalformedRef(err error) bool { return KindOf(err) == KindMalformedRef }

// ctxError converts a context failure into a timeout-classified error.
func ctxError(op string, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}

// classifyCtx returns a timeout error when ctx is already done, nil
// otherwise.
func classifyCtx(ctx context.Context, op string) *Error {
	if err := ctx.Err(); err != nil {
		return ctxError(op, err)
	}
	return nil
}
