package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/acqdte/tradestate/internal/store"
)

// Dialer establishes an authenticated driver handle. Implementations
// must return either a fully usable handle or an error, never a
// partially-initialized one.
type Dialer func(ctx context.Context) (store.Driver, error)

// Manager owns the lifecycle of the single cached handle to the document
// store. It dials lazily on first Acquire, hands the cached handle to
// concurrent callers, and replaces it atomically when invalidated.
//
// The manager never retries a failed dial; retry policy belongs to the
// gateway.
type Manager struct {
	dial        Dialer
	logger      *slog.Logger
	pingTimeout time.Duration

	mu     sync.RWMutex
	handle store.Driver
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPingTimeout bounds the health probe.
func WithPingTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.pingTimeout = d
		}
	}
}

// NewManager creates a Manager that dials through dial.
func NewManager(dial Dialer, opts ...ManagerOption) *Manager {
	m := &Manager{
		dial:        dial,
		logger:      slog.Default(),
		pingTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the cached handle, dialing a new one if none is
// cached. Concurrent callers share one dial; a dial failure surfaces as
// a connection-classified error without retry.
func (m *Manager) Acquire(ctx context.Context) (store.Driver, error) {
	m.mu.RLock()
	h := m.handle
	m.mu.RUnlock()
	if h != nil {
		return h, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle != nil {
		return m.handle, nil
	}

	h, err := m.dial(ctx)
	if err != nil {
		return nil, connectionError(err)
	}
	m.handle = h
	m.logger.Info("document store connected")
	return h, nil
}

// IsHealthy probes the cached handle with a short deadline. A manager
// without a cached handle is unhealthy; callers are expected to Acquire
// again to replace an unhealthy handle.
func (m *Manager) IsHealthy(ctx context.Context) bool {
	m.mu.RLock()
	h := m.handle
	m.mu.RUnlock()
	if h == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, m.pingTimeout)
	defer cancel()

	if err := h.Ping(ctx); err != nil {
		m.logger.Warn("document store health probe failed", "error", err)
		return false
	}
	return true
}

// Invalidate discards the cached handle if it is d, closing it, so the
// next Acquire dials fresh. A handle already replaced is left alone.
func (m *Manager) Invalidate(d store.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil || m.handle != d {
		return
	}
	if err := m.handle.Close(); err != nil {
		m.logger.Warn("closing invalidated handle", "error", err)
	}
	m.handle = nil
	m.logger.Info("document store handle invalidated")
}

// Close releases the cached handle. Idempotent; Acquire after Close
// dials a fresh handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return nil
	}
	err := m.handle.Close()
	m.handle = nil
	if err != nil {
		return fmt.Errorf("close document store handle: %w", err)
	}
	m.logger.Info("document store disconnected")
	return nil
}

func connectionError(err error) error {
	if _, ok := err.(*store.Error); ok {
		return err
	}
	return &store.Error{Kind: store.KindConnection, Op: "acquire", Err: err}
}
