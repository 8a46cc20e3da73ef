package heartbeat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/acqdte/tradestate/internal/store"
)

// StatusCollection holds one liveness document per process.
const StatusCollection = "system_status"

// Config holds recorder configuration.
type Config struct {
	ProcessID string        // document key; required
	Interval  time.Duration // beat interval (default: 60s)
	Timeout   time.Duration // per-write deadline (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 60 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Recorder periodically merge-writes a liveness document. Merge
// semantics keep concurrent writers of other status fields on the same
// document from clobbering each other.
type Recorder struct {
	cfg     Config
	gateway *store.Gateway
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Recorder.
func New(cfg Config, gateway *store.Gateway, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Recorder{
		cfg:     cfg,
		gateway: gateway,
		logger:  logger,
	}
}

// Record writes one heartbeat for processID at ts. The write is a field
// merge on the process's status document. Failures are returned, never
// swallowed; deciding whether they are fatal is the caller's business.
func (r *Recorder) Record(ctx context.Context, processID string, ts time.Time) error {
	ref := store.Ref{Collection: StatusCollection, Key: processID}
	payload := store.Payload{
		"process_id":     processID,
		"status":         "alive",
		"last_heartbeat": ts.UTC(),
	}
	return r.gateway.Merge(ctx, ref, payload)
}

// Start begins the periodic heartbeat loop.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("heartbeat recorder started",
		"process_id", r.cfg.ProcessID,
		"interval", r.cfg.Interval,
	)
	return nil
}

// Stop gracefully shuts down the loop.
func (r *Recorder) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("heartbeat recorder stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the heartbeat loop. A failed beat is a warning, not a reason
// to stop: the next tick tries again.
func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Beat immediately on start.
	r.beat()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.beat()
		}
	}
}

func (r *Recorder) beat() {
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.Timeout)
	defer cancel()

	if err := r.Record(ctx, r.cfg.ProcessID, time.Now()); err != nil {
		r.logger.Warn("failed to record heartbeat",
			"process_id", r.cfg.ProcessID,
			"error", err,
		)
	}
}
