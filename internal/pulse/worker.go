package pulse

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const stopWaitTimeout = 5 * time.Second

// Worker drives the sweeper on a fixed interval. It owns the window cursor:
// each tick sweeps (lastChecked, now] and advances the cursor only after the
// sweep ran, so no reminder time can fall between two windows.
type Worker struct {
	sweeper  *Sweeper
	interval time.Duration
	logger   *zap.Logger

	mu          sync.Mutex
	lastChecked time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// now is swapped out in tests.
	now func() time.Time
}

func NewWorker(sweeper *Sweeper, interval time.Duration, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// Start begins the periodic sweep loop.
func (w *Worker) Start() {
	w.mu.Lock()
	w.lastChecked = w.now()
	w.mu.Unlock()

	w.logger.Info("pulse worker starting", zap.Duration("interval", w.interval))

	w.wg.Add(1)
	go w.loop()
}

// Stop gracefully shuts down the worker.
func (w *Worker) Stop() {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("pulse worker stopped")
	case <-time.After(stopWaitTimeout):
		w.logger.Warn("pulse worker stop timed out, continuing shutdown",
			zap.Duration("timeout", stopWaitTimeout))
	}
}

// SweepNow runs one sweep immediately, advancing the cursor. It is also the
// tick body.
func (w *Worker) SweepNow(ctx context.Context) (Stats, error) {
	w.mu.Lock()
	after := w.lastChecked
	before := w.now()
	w.lastChecked = before
	w.mu.Unlock()

	return w.sweeper.Check(ctx, after, before)
}

func (w *Worker) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			stats, err := w.SweepNow(w.ctx)
			if err != nil {
				w.logger.Error("pulse sweep failed", zap.Error(err))
				continue
			}
			if stats.Due > 0 {
				w.logger.Info("pulse sweep completed",
					zap.Int("due", stats.Due),
					zap.Int("notified", stats.Notified),
					zap.Int("failed", stats.Failed))
			}
		}
	}
}
