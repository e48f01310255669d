package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
)

// PeriodicRunner runs a job at start and then every interval in its own
// goroutine. A failed or panicking job is retried with exponential backoff
// capped at the interval, so one bad run does not wait a full period.
type PeriodicRunner struct {
	name     string
	job      func(ctx context.Context) error
	interval time.Duration
	backoff  time.Duration

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastError error
	runs      int
}

const maxRetryBackoff = 5 * time.Minute

// RunnerConfig contains configuration for PeriodicRunner.
type RunnerConfig struct {
	Name string
	// Interval between successful runs. Zero runs the job once.
	Interval time.Duration
	// RetryBackoff is the first delay after a failure (default: 1s).
	RetryBackoff time.Duration
}

// NewPeriodicRunner creates a runner for job.
func NewPeriodicRunner(cfg RunnerConfig, job func(ctx context.Context) error) *PeriodicRunner {
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Second
	}
	return &PeriodicRunner{
		name:     cfg.Name,
		job:      job,
		interval: cfg.Interval,
		backoff:  cfg.RetryBackoff,
	}
}

// Start starts the runner loop.
func (r *PeriodicRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("%s is already running", r.name)
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.running = true

	go r.loop(ctx, r.done)
	return nil
}

// Stop cancels the current run and waits for the loop to exit.
func (r *PeriodicRunner) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		return fmt.Errorf("%s: timeout waiting for stop", r.name)
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

// Wait blocks until the loop exits on its own or is stopped.
func (r *PeriodicRunner) Wait() {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// LastError returns the error of the last run, nil when it succeeded.
func (r *PeriodicRunner) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastError
}

// Runs returns the number of completed runs, failed ones included.
func (r *PeriodicRunner) Runs() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs
}

func (r *PeriodicRunner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	backoff := r.backoff
	for {
		err := r.runWithRecovery(ctx)
		if ctx.Err() != nil {
			log.Infof("%s: stopped", r.name)
			return
		}

		r.mu.Lock()
		r.runs++
		r.lastError = err
		r.mu.Unlock()

		var wait time.Duration
		switch {
		case err != nil:
			wait = backoff
			if r.interval > 0 && wait > r.interval {
				wait = r.interval
			}
			backoff = min(backoff*2, maxRetryBackoff)
			log.Errorf("%s: run failed: %v. Retrying in %v", r.name, err, wait)
		case r.interval <= 0:
			return
		default:
			wait = r.interval
			backoff = r.backoff
			log.Debugf("%s: next run in %v", r.name, wait)
		}

		select {
		case <-ctx.Done():
			log.Infof("%s: stopped", r.name)
			return
		case <-time.After(wait):
		}
	}
}

// runWithRecovery runs the job and turns a panic into an error.
func (r *PeriodicRunner) runWithRecovery(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()

	return r.job(ctx)
}
