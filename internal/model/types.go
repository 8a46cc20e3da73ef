package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunAborted  = "aborted"
)

// Position represents an open or closed position on one symbol.
type Position struct {
	Symbol     string    // e.g. "BTC/USDT"
	Exchange   string    // e.g. "binance"
	Side       string    // "long" or "short"
	Quantity   float64   // base-asset quantity
	EntryPrice float64   // average entry price
	Mode       string    // trading mode the position was opened in
	OpenedAt   time.Time // first fill
	UpdatedAt  time.Time // last state change
}

// Key returns the document key for the position. Slashes in symbols are
// path separators to the store and are replaced.
func (p Position) Key() string {
	return p.Exchange + "__" + strings.ReplaceAll(p.Symbol, "/", "-")
}

// Payload returns the stored document body.
func (p Position) Payload() map[string]any {
	return map[string]any{
		"symbol":      p.Symbol,
		"exchange":    p.Exchange,
		"side":        p.Side,
		"quantity":    p.Quantity,
		"entry_price": p.EntryPrice,
		"mode":        p.Mode,
		"opened_at":   p.OpenedAt.UTC(),
		"updated_at":  p.UpdatedAt.UTC(),
	}
}

// Order represents a submitted exchange order.
type Order struct {
	ID        string    // exchange or client order id
	Symbol    string    // e.g. "ETH/USDT"
	Side      string    // "buy" or "sell"
	Type      string    // "market", "limit", ...
	Price     float64   // limit price, 0 for market orders
	Quantity  float64   // base-asset quantity
	Status    string    // "open", "filled", "cancelled", ...
	PlacedAt  time.Time // submission time
	UpdatedAt time.Time // last status change
}

// Payload returns the stored document body.
func (o Order) Payload() map[string]any {
	return map[string]any{
		"symbol":     o.Symbol,
		"side":       o.Side,
		"type":       o.Type,
		"price":      o.Price,
		"quantity":   o.Quantity,
		"status":     o.Status,
		"placed_at":  o.PlacedAt.UTC(),
		"updated_at": o.UpdatedAt.UTC(),
	}
}

// Alert is a persisted notification record. Delivery is another
// component's job; this is the durable copy.
type Alert struct {
	ID        uuid.UUID
	Severity  string // "info", "warning", "critical"
	Message   string
	CreatedAt time.Time
}

// Payload returns the stored document body.
func (a Alert) Payload() map[string]any {
	return map[string]any{
		"severity":   a.Severity,
		"message":    a.Message,
		"created_at": a.CreatedAt.UTC(),
	}
}

// RunRecord captures the metadata of one trading run.
type RunRecord struct {
	ID         uuid.UUID
	Mode       string // trading mode
	Algorithm  string // quantum algorithm in use
	Status     string // RunRunning, RunFinished, RunAborted
	StartedAt  time.Time
	FinishedAt time.Time // zero until the run ends
}

// Payload returns the stored document body.
func (r RunRecord) Payload() map[string]any {
	p := map[string]any{
		"mode":       r.Mode,
		"algorithm":  r.Algorithm,
		"status":     r.Status,
		"started_at": r.StartedAt.UTC(),
	}
	if !r.FinishedAt.IsZero() {
		p["finished_at"] = r.FinishedAt.UTC()
	}
	return p
}
