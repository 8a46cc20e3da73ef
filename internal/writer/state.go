package writer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/acqdte/tradestate/internal/model"
	"github.com/acqdte/tradestate/internal/store"
)

// Collections written by the state writer.
const (
	CollectionPositions = "positions"
	CollectionOrders    = "orders"
	CollectionAlerts    = "alerts"
	CollectionRuns      = "runs"
)

// flushConcurrency bounds parallel writes in FlushPositions.
const flushConcurrency = 4

// StateWriter persists typed trading state through the gateway. It adds
// no policy of its own: retries, deadlines, and classification all live
// in the gateway.
type StateWriter struct {
	gateway *store.Gateway
	logger  *slog.Logger
}

// New creates a StateWriter.
func New(gateway *store.Gateway, logger *slog.Logger) *StateWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateWriter{
		gateway: gateway,
		logger:  logger,
	}
}

// RecordPosition fully replaces the position document for its symbol.
func (w *StateWriter) RecordPosition(ctx context.Context, p model.Position) error {
	ref := store.Ref{Collection: CollectionPositions, Key: p.Key()}
	return w.gateway.Write(ctx, ref, p.Payload())
}

// FlushPositions writes a batch of positions concurrently. The first
// failure cancels the remaining writes and is returned.
func (w *StateWriter) FlushPositions(ctx context.Context, positions []model.Position) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(flushConcurrency)

	for _, p := range positions {
		g.Go(func() error {
			return w.RecordPosition(ctx, p)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.logger.Debug("positions flushed", "count", len(positions))
	return nil
}

// RecordOrder fully replaces the order document keyed by its id.
func (w *StateWriter) RecordOrder(ctx context.Context, o model.Order) error {
	ref := store.Ref{Collection: CollectionOrders, Key: o.ID}
	return w.gateway.Write(ctx, ref, o.Payload())
}

// RecordAlert persists an alert record, assigning an id when unset.
func (w *StateWriter) RecordAlert(ctx context.Context, a model.Alert) (model.Alert, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	ref := store.Ref{Collection: CollectionAlerts, Key: a.ID.String()}
	if err := w.gateway.Write(ctx, ref, a.Payload()); err != nil {
		return model.Alert{}, err
	}
	return a, nil
}

// StartRun persists a new run record and returns it.
func (w *StateWriter) StartRun(ctx context.Context, mode, algorithm string) (model.RunRecord, error) {
	run := model.RunRecord{
		ID:        uuid.New(),
		Mode:      mode,
		Algorithm: algorithm,
		Status:    model.RunRunning,
		StartedAt: time.Now(),
	}
	ref := store.Ref{Collection: CollectionRuns, Key: run.ID.String()}
	if err := w.gateway.Write(ctx, ref, run.Payload()); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

// FinishRun merge-writes the terminal status onto an existing run
// record, leaving the rest of the document untouched.
func (w *StateWriter) FinishRun(ctx context.Context, run model.RunRecord, status string) error {
	ref := store.Ref{Collection: CollectionRuns, Key: run.ID.String()}
	payload := store.Payload{
		"status":      status,
		"finished_at": time.Now().UTC(),
	}
	return w.gateway.Merge(ctx, ref, payload, "status", "finished_at")
}
