package expiry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper cancels an engine's stale pending reservations.
type Sweeper interface {
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

// Worker periodically releases reservations held by pending orders older
// than the configured TTL. The engine itself never blocks on expiry; this
// worker is the bounded-TTL mechanism behind abandoned checkouts.
type Worker struct {
	engine   Sweeper
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(engine Sweeper, ttl, interval time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		engine:   engine,
		ttl:      ttl,
		interval: interval,
		logger:   logger.With(zap.String("component", "expiry_worker")),
	}
}

func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("expiry_worker_started",
			zap.Duration("ttl", w.ttl),
			zap.Duration("interval", w.interval),
		)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	w.logger.Info("expiry_worker_stopped")
}

func (w *Worker) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	if _, err := w.engine.ExpireStale(sweepCtx, w.ttl); err != nil {
		w.logger.Error("expiry_sweep_failed", zap.Error(err))
	}
}
