package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Default retry policy. The backoff doubles per attempt with ±50% jitter;
// the caller's deadline always wins over the remaining budget.
const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 500 * time.Millisecond
)

// Gateway is the caller-facing surface of the document store. It borrows
// a handle per attempt from its HandleSource, retries transient and
// connection failures with exponential backoff, and classifies every
// outcome. Safe for concurrent use.
type Gateway struct {
	source HandleSource
	logger *slog.Logger

	maxAttempts int
	baseBackoff time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithMaxAttempts bounds the total attempts per operation (minimum 1).
func WithMaxAttempts(n int) GatewayOption {
	return func(g *Gateway) {
		if n >= 1 {
			g.maxAttempts = n
		}
	}
}

// WithBaseBackoff sets the first retry delay.
func WithBaseBackoff(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.baseBackoff = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates a Gateway over the given handle source.
func NewGateway(source HandleSource, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		source:      source,
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: DefaultBaseBackoff,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Write creates or fully replaces the document at ref.
func (g *Gateway) Write(ctx context.Context, ref Ref, payload Payload) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	return g.withRetry(ctx, "write", func(d Driver) error {
		return d.Write(ctx, ref, payload)
	})
}

// Merge updates only the named top-level fields of the document at ref,
// creating it if absent. With no fields named, every field present in
// payload is merged.
func (g *Gateway) Merge(ctx context.Context, ref Ref, payload Payload, fields ...string) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	for _, f := range fields {
		if _, ok := payload[f]; !ok {
			return &Error{
				Kind: KindMalformedRef,
				Op:   "merge",
				Ref:  ref,
				Err:  fmt.Errorf("merge field %q not present in payload", f),
			}
		}
	}
	return g.withRetry(ctx, "merge", func(d Driver) error {
		return d.Merge(ctx, ref, payload, fields)
	})
}

// Read returns the current payload at ref. Absence is not an error:
// found is false and err is nil when no document exists.
func (g *Gateway) Read(ctx context.Context, ref Ref) (Payload, bool, error) {
	if err := ref.Validate(); err != nil {
		return nil, false, err
	}
	var (
		payload Payload
		found   bool
	)
	err := g.withRetry(ctx, "read", func(d Driver) error {
		var err error
		payload, found, err = d.Read(ctx, ref)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return payload, found, nil
}

// Query runs q and returns a finite, non-restartable iterator over the
// matching documents.
func (g *Gateway) Query(ctx context.Context, q Query) (*Results, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var docs []Document
	err := g.withRetry(ctx, "query", func(d Driver) error {
		var err error
		docs, err = d.Query(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Results{docs: docs}, nil
}

// Delete removes the document at ref. Idempotent: deleting an absent
// document is a success.
func (g *Gateway) Delete(ctx context.Context, ref Ref) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	return g.withRetry(ctx, "delete", func(d Driver) error {
		return d.Delete(ctx, ref)
	})
}

// withRetry runs fn with a fresh handle per attempt, backing off between
// retryable failures. Non-retryable failures surface immediately; the
// deadline cancels outstanding waits even mid-backoff.
func (g *Gateway) withRetry(ctx context.Context, op string, fn func(Driver) error) error {
	if err := classifyCtx(ctx, op); err != nil {
		return err
	}

	var lastErr error
	backoff := g.baseBackoff

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			// Jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			g.logger.Debug("retrying store operation",
				"op", op,
				"attempt", attempt,
				"backoff", jitter,
			)
			select {
			case <-ctx.Done():
				return ctxError(op, ctx.Err())
			case <-time.After(jitter):
			}
			backoff *= 2
		}

		d, err := g.source.Acquire(ctx)
		if err != nil {
			lastErr = asConnectionError(op, err)
			continue
		}

		err = fn(d)
		if err == nil {
			return nil
		}
		if cerr := classifyCtx(ctx, op); cerr != nil {
			return cerr
		}
		lastErr = err

		var se *Error
		if !errors.As(err, &se) || !se.IsRetryable() {
			return err
		}
		if se.Kind == KindConnection {
			if inv, ok := g.source.(HandleInvalidator); ok {
				inv.Invalidate(d)
			}
		}
	}

	return &Error{
		Kind: KindTransient,
		Op:   op,
		Err:  fmt.Errorf("retry budget exhausted after %d attempts: %w", g.maxAttempts, lastErr),
	}
}

// asConnectionError wraps err as a connection-classified store error
// unless it is already classified.
func asConnectionError(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: KindConnection, Op: op, Err: err}
}

// ErrDone is returned by Results.Next when the sequence is exhausted.
var ErrDone = errors.New("no more results")

// Results is a finite, non-restartable sequence of query matches.
type Results struct {
	docs []Document
	pos  int
}

// Next returns the next matching document, or ErrDone when exhausted.
func (r *Results) Next() (Document, error) {
	if r.pos >= len(r.docs) {
		return Document{}, ErrDone
	}
	doc := r.docs[r.pos]
	r.pos++
	return doc, nil
}

// Len returns the number of documents remaining.
func (r *Results) Len() int {
	return len(r.docs) - r.pos
}
