package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one periodic unit of work. It receives a context that is canceled on Stop.
type Job func(ctx context.Context) error

// Runner runs a single Job on a fixed interval in the background. Runs never overlap.
type Runner struct {
	name       string
	interval   time.Duration
	runOnStart bool
	job        Job
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewRunner creates a runner. With runOnStart the job also runs once immediately.
func NewRunner(name string, interval time.Duration, runOnStart bool, job Job, logger *zap.Logger) *Runner {
	return &Runner{
		name:       name,
		interval:   interval,
		runOnStart: runOnStart,
		job:        job,
		logger:     logger.With(zap.String("job", name)),
	}
}

// Start launches the background loop. Calling Start on a running runner is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.stopCh = make(chan struct{})
	r.running = true

	r.wg.Add(1)
	go r.loop(ctx, r.stopCh)

	r.logger.Info("Scheduler started", zap.Duration("interval", r.interval))
}

// Stop cancels an in-flight run and waits for the loop to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	close(r.stopCh)
	r.cancel()
	r.running = false
	r.wg.Wait()

	r.logger.Info("Scheduler stopped")
}

func (r *Runner) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if r.runOnStart {
		r.runOnce(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Scheduled job panicked", zap.Any("panic", rec))
		}
	}()

	if err := r.job(ctx); err != nil {
		r.logger.Error("Scheduled job failed",
			zap.Duration("duration", time.Since(started)),
			zap.Error(err))
		return
	}
	r.logger.Debug("Scheduled job completed", zap.Duration("duration", time.Since(started)))
}
