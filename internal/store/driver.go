package store

import "context"

// Driver is the backend contract implemented by each concrete store.
//
// Drivers must classify every failure into *Error before returning, and
// must treat absence as the found=false outcome on Read rather than an
// error. Delete of an absent document is a success. A Driver is safe for
// concurrent use; it holds no per-operation state.
type Driver interface {
	// Write creates or fully replaces the document at ref.
	Write(ctx context.Context, ref Ref, payload Payload) error

	// Merge updates only the named top-level fields, leaving others
	// untouched. With no fields named, every field present in payload is
	// merged. The document is created if absent.
	Merge(ctx context.Context, ref Ref, payload Payload, fields []string) error

	// Read returns the current payload, or found=false when no document
	// exists at ref.
	Read(ctx context.Context, ref Ref) (Payload, bool, error)

	// Query returns the documents matching q. Unsupported operators fail
	// with a KindMalformedRef error, never with a silent empty result.
	Query(ctx context.Context, q Query) ([]Document, error)

	// Delete removes the document at ref; deleting an absent document
	// is a success.
	Delete(ctx context.Context, ref Ref) error

	// Ping performs a cheap liveness probe.
	Ping(ctx context.Context) error

	// Close releases the backend session. Idempotent.
	Close() error
}

// HandleSource supplies a live driver handle per operation. The gateway
// borrows a handle for each attempt and never caches it across calls.
type HandleSource interface {
	Acquire(ctx context.Context) (Driver, error)
}

// HandleInvalidator is optionally implemented by a HandleSource that can
// discard a broken handle so the next Acquire dials fresh. The gateway
// invalidates after a connection-classified failure.
type HandleInvalidator interface {
	Invalidate(d Driver)
}

// StaticSource adapts a single driver into a HandleSource. Used in tests
// and for backends that manage their own pooling.
type StaticSource struct {
	Driver Driver
}

func (s StaticSource) Acquire(ctx context.Context) (Driver, error) {
	return s.Driver, nil
}
