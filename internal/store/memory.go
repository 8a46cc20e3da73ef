package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrClosed is returned by a memory driver after Close.
var ErrClosed = errors.New("driver closed")

// MemoryDriver is an in-process Driver used as the "memory" backend and
// as the simulated transport in tests. Payloads are deep-copied on both
// write and read so callers cannot alias stored state.
type MemoryDriver struct {
	mu     sync.RWMutex
	closed bool
	data   map[string]map[string]Payload // collection -> key -> payload
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		data: make(map[string]map[string]Payload),
	}
}

func (m *MemoryDriver) Write(ctx context.Context, ref Ref, payload Payload) error {
	if err := classifyCtx(ctx, "write"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return &Error{Kind: KindConnection, Op: "write", Ref: ref, Err: ErrClosed}
	}
	col := m.data[ref.Collection]
	if col == nil {
		col = make(map[string]Payload)
		m.data[ref.Collection] = col
	}
	col[ref.Key] = payload.Clone()
	return nil
}

func (m *MemoryDriver) Merge(ctx context.Context, ref Ref, payload Payload, fields []string) error {
	if err := classifyCtx(ctx, "merge"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return &Error{Kind: KindConnection, Op: "merge", Ref: ref, Err: ErrClosed}
	}
	col := m.data[ref.Collection]
	if col == nil {
		col = make(map[string]Payload)
		m.data[ref.Collection] = col
	}
	// Merge into a copy and swap it in whole: a failed merge must leave
	// the stored document exactly as it was.
	doc := col[ref.Key].Clone()
	if doc == nil {
		doc = make(Payload)
	}
	if len(fields) == 0 {
		for k := range payload {
			fields = append(fields, k)
		}
	}
	for _, f := range fields {
		v, ok := payload[f]
		if !ok {
			return &Error{
				Kind: KindMalformedRef,
				Op:   "merge",
				Ref:  ref,
				Err:  fmt.Errorf("merge field %q not present in payload", f),
			}
		}
		doc[f] = cloneValue(v)
	}
	col[ref.Key] = doc
	return nil
}

func (m *MemoryDriver) Read(ctx context.Context, ref Ref) (Payload, bool, error) {
	if err := classifyCtx(ctx, "read"); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, &Error{Kind: KindConnection, Op: "read", Ref: ref, Err: ErrClosed}
	}
	doc, ok := m.data[ref.Collection][ref.Key]
	if !ok {
		return nil, false, nil
	}
	return doc.Clone(), true, nil
}

func (m *MemoryDriver) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := classifyCtx(ctx, "query"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, &Error{Kind: KindConnection, Op: "query", Err: ErrClosed}
	}

	var docs []Document
	for key, doc := range m.data[q.Collection] {
		match, err := matchesAll(doc, q.Filters)
		if err != nil {
			return nil, &Error{Kind: KindMalformedRef, Op: "query", Ref: Ref{Collection: q.Collection}, Err: err}
		}
		if match {
			docs = append(docs, Document{
				Ref:  Ref{Collection: q.Collection, Key: key},
				Data: doc.Clone(),
			})
		}
	}

	if q.OrderBy != "" {
		field := q.OrderBy
		sort.SliceStable(docs, func(i, j int) bool {
			c, ok := compareValues(docs[i].Data[field], docs[j].Data[field])
			if !ok {
				return false
			}
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	} else {
		sort.Slice(docs, func(i, j int) bool { return docs[i].Ref.Key < docs[j].Ref.Key })
	}

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (m *MemoryDriver) Delete(ctx context.Context, ref Ref) error {
	if err := classifyCtx(ctx, "delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return &Error{Kind: KindConnection, Op: "delete", Ref: ref, Err: ErrClosed}
	}
	delete(m.data[ref.Collection], ref.Key)
	return nil
}

func (m *MemoryDriver) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return &Error{Kind: KindConnection, Op: "ping", Err: ErrClosed}
	}
	return nil
}

func (m *MemoryDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of documents in a collection. Test helper.
func (m *MemoryDriver) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[collection])
}

func matchesAll(doc Payload, filters []Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matches(doc, f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matches(doc Payload, f Filter) (bool, error) {
	val, present := doc[f.Field]

	switch f.Op {
	case OpEqual:
		// An absent field matches nothing, not even an explicit null.
		if !present {
			return false, nil
		}
		c, ok := compareValues(val, f.Value)
		return ok && c == 0, nil
	case OpNotEqual:
		if !present {
			return false, nil
		}
		c, ok := compareValues(val, f.Value)
		return !ok || c != 0, nil
	case OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		c, ok := compareValues(val, f.Value)
		if !ok {
			return false, nil
		}
		switch f.Op {
		case OpLess:
			return c < 0, nil
		case OpLessOrEqual:
			return c <= 0, nil
		case OpGreater:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case OpIn:
		set, ok := f.Value.([]any)
		if !ok {
			return false, fmt.Errorf("operator %q requires a []any value, got %T", f.Op, f.Value)
		}
		for _, want := range set {
			if c, ok := compareValues(val, want); ok && c == 0 {
				return true, nil
			}
		}
		return false, nil
	case OpArrayContains:
		arr, ok := val.([]any)
		if !ok {
			return false, nil
		}
		for _, have := range arr {
			if c, ok := compareValues(have, f.Value); ok && c == 0 {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unsupported operator %q", f.Op)
}

// compareValues orders two payload values. Numbers compare across widths,
// strings lexically, times chronologically, booleans false < true.
// ok is false when the values are not comparable.
func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
