package store

import "fmt"

// Ref addresses a single document as a (collection, key) pair.
// Both parts must be non-empty; uniqueness is scoped to the pair.
type Ref struct {
	Collection string
	Key        string
}

// String returns the reference in "collection/key" form.
func (r Ref) String() string {
	return r.Collection + "/" + r.Key
}

// Validate checks that both parts of the reference are set.
func (r Ref) Validate() error {
	if r.Collection == "" || r.Key == "" {
		return &Error{
			Kind: KindMalformedRef,
			Op:   "ref",
			Ref:  r,
			Err:  fmt.Errorf("collection and key must be non-empty, got %q/%q", r.Collection, r.Key),
		}
	}
	return nil
}

// Payload is a schema-free document body. Values are limited to strings,
// numbers, booleans, timestamps, nested mappings, and nil; schema
// discipline belongs to the caller.
type Payload map[string]any

// Clone returns a deep copy of the payload. Nested maps are copied;
// all other values are assigned as-is.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		return map[string]any(Payload(m).Clone())
	}
	return v
}

// Op is a query filter operator.
type Op string

// Supported filter operators. Individual drivers may reject operators
// their backend cannot translate; they do so fast, with a
// KindMalformedRef error, never by returning an empty result.
const (
	OpEqual          Op = "=="
	OpNotEqual       Op = "!="
	OpLess           Op = "<"
	OpLessOrEqual    Op = "<="
	OpGreater        Op = ">"
	OpGreaterOrEqual Op = ">="
	OpIn             Op = "in"
	OpArrayContains  Op = "array-contains"
)

func (o Op) valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual, OpIn, OpArrayContains:
		return true
	}
	return false
}

// Filter restricts a query to documents whose field satisfies op/value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a filtered read over a collection. Filters are combined
// with logical AND and applied in order.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Validate checks the query shape before it reaches a driver.
func (q Query) Validate() error {
	malformed := func(err error) error {
		return &Error{Kind: KindMalformedRef, Op: "query", Ref: Ref{Collection: q.Collection}, Err: err}
	}
	if q.Collection == "" {
		return malformed(fmt.Errorf("collection must be non-empty"))
	}
	for _, f := range q.Filters {
		if f.Field == "" {
			return malformed(fmt.Errorf("filter field must be non-empty"))
		}
		if !f.Op.valid() {
			return malformed(fmt.Errorf("unsupported operator %q on field %q", f.Op, f.Field))
		}
	}
	if q.Limit < 0 {
		return malformed(fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	return nil
}

// Document pairs a reference with its payload, as produced by queries.
type Document struct {
	Ref  Ref
	Data Payload
}
