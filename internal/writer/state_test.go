package writer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acqdte/tradestate/internal/model"
	"github.com/acqdte/tradestate/internal/store"
)

func newTestWriter(d store.Driver) *StateWriter {
	g := store.NewGateway(store.StaticSource{Driver: d}, store.WithBaseBackoff(time.Millisecond))
	return New(g, nil)
}

func TestRecordPosition(t *testing.T) {
	d := store.NewMemoryDriver()
	w := newTestWriter(d)

	p := model.Position{
		Symbol:     "BTC/USDT",
		Exchange:   "binance",
		Side:       "long",
		Quantity:   0.5,
		EntryPrice: 64000,
		Mode:       "paper",
		OpenedAt:   time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := w.RecordPosition(context.Background(), p); err != nil {
		t.Fatalf("RecordPosition failed: %v", err)
	}

	got, found, err := d.Read(context.Background(), store.Ref{Collection: CollectionPositions, Key: p.Key()})
	if err != nil || !found {
		t.Fatalf("Read = %v, found=%v", err, found)
	}
	if got["symbol"] != "BTC/USDT" || got["quantity"] != 0.5 {
		t.Errorf("stored position = %v, want payload of %+v", got, p)
	}
}

func TestFlushPositions(t *testing.T) {
	d := store.NewMemoryDriver()
	w := newTestWriter(d)

	var positions []model.Position
	for i := range 10 {
		positions = append(positions, model.Position{
			Symbol:   fmt.Sprintf("SYM%d/USDT", i),
			Exchange: "binance",
			Side:     "long",
			Quantity: float64(i + 1),
		})
	}

	if err := w.FlushPositions(context.Background(), positions); err != nil {
		t.Fatalf("FlushPositions failed: %v", err)
	}
	if got := d.Len(CollectionPositions); got != 10 {
		t.Errorf("stored %d positions, want 10", got)
	}
}

func TestFlushPositionsSurfacesFirstFailure(t *testing.T) {
	d := store.NewMemoryDriver()
	w := newTestWriter(d)

	positions := []model.Position{
		{Symbol: "BTC/USDT", Exchange: "binance"},
		{Symbol: "ETH/USDT"}, // no exchange makes a key like "__ETH-USDT"; still valid
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := w.FlushPositions(context.Background(), positions)
	if err == nil {
		t.Fatal("FlushPositions expected error on closed driver, got nil")
	}
	// The gateway retries connection failures; a driver that stays down
	// exhausts the budget and surfaces as transient.
	if !store.IsTransient(err) {
		t.Errorf("error kind = %v, want transient", store.KindOf(err))
	}
}

func TestRecordOrder(t *testing.T) {
	d := store.NewMemoryDriver()
	w := newTestWriter(d)

	o := model.Order{
		ID:       "ord-42",
		Symbol:   "ETH/USDT",
		Side:     "buy",
		Type:     "limit",
		Price:    3200,
		Quantity: 2,
		Status:   "open",
		PlacedAt: time.Now(),
	}
	if err := w.RecordOrder(context.Background(), o); err != nil {
		t.Fatalf("RecordOrder failed: %v", err)
	}

	got, found, err := d.Read(context.Background(), store.Ref{Collection: CollectionOrders, Key: "ord-42"})
	if err != nil || !found {
		t.Fatalf("Read = %v, found=%v", err, found)
	}
	if got["status"] != "open" || got["price"] != 3200.0 {
		t.Errorf("stored order = %v", got)
	}
}

func TestRecordAlertAssignsID(t *testing.T) {
	d := store.NewMemoryDriver()
	w := newTestWriter(d)

	a, err := w.RecordAlert(context.Background(), model.Alert{
		Severity: "critical",
		Message:  "stop loss triggered on BTC/USDT",
	})
	if err != nil {
		t.Fatalf("RecordAlert failed: %v", err)
	}
	if a.ID == uuid.Nil {
		t.Error("RecordAlert left the id unset")
	}
	if a.CreatedAt.IsZero() {
		t.Error("RecordAlert left created_at unset")
	}

	_, found, err := d.Read(context.Background(), store.Ref{Collection: CollectionAlerts, Key: a.ID.String()})
	if err != nil || !found {
		t.Fatalf("Read = %v, found=%v", err, found)
	}
}

func TestRecordAlertKeepsCallerID(t *testing.T) {
	w := newTestWriter(store.NewMemoryDriver())

	id := uuid.New()
	a, err := w.RecordAlert(context.Background(), model.Alert{ID: id, Severity: "info", Message: "m"})
	if err != nil {
		t.Fatalf("RecordAlert failed: %v", err)
	}
	if a.ID != id {
		t.Errorf("RecordAlert replaced the caller's id: got %v, want %v", a.ID, id)
	}
}

func TestRunLifecycle(t *testing.T) {
	d := store.NewMemoryDriver()
	w := newTestWriter(d)
	ctx := context.Background()

	run, err := w.StartRun(ctx, "live", "qaoa")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.Status != model.RunRunning {
		t.Errorf("Status = %q, want %q", run.Status, model.RunRunning)
	}

	ref := store.Ref{Collection: CollectionRuns, Key: run.ID.String()}
	got, found, err := d.Read(ctx, ref)
	if err != nil || !found {
		t.Fatalf("Read = %v, found=%v", err, found)
	}
	if got["mode"] != "live" || got["algorithm"] != "qaoa" {
		t.Errorf("stored run = %v", got)
	}
	if _, ok := got["finished_at"]; ok {
		t.Error("finished_at present on a running run")
	}

	if err := w.FinishRun(ctx, run, model.RunFinished); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, _, err = d.Read(ctx, ref)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got["status"] != model.RunFinished {
		t.Errorf("status = %v, want %q", got["status"], model.RunFinished)
	}
	if _, ok := got["finished_at"]; !ok {
		t.Error("finished_at missing after FinishRun")
	}
	// FinishRun is a field merge; the original metadata survives.
	if got["mode"] != "live" {
		t.Errorf("mode = %v, want untouched %q", got["mode"], "live")
	}
}

func TestFinishRunErrorsSurface(t *testing.T) {
	d := store.NewMemoryDriver()
	w := newTestWriter(d)

	run, err := w.StartRun(context.Background(), "paper", "vqe")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err = w.FinishRun(context.Background(), run, model.RunAborted)
	if err == nil {
		t.Fatal("FinishRun expected error on closed driver, got nil")
	}
	var serr *store.Error
	if !errors.As(err, &serr) {
		t.Errorf("FinishRun error = %v, want a store error", err)
	}
}
