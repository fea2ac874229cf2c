// Package worker runs background tasks on a fixed set of goroutines fed by a
// bounded queue.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

var ErrPoolClosed = errors.New("worker pool is stopped")

// Config controls pool size and retry behavior.
type Config struct {
	Workers      int           // Goroutines draining the queue. Default 4.
	QueueSize    int           // Tasks that may wait before Submit rejects. Default 64.
	MaxAttempts  int           // Runs per task including the first. Default 3.
	RetryBackoff time.Duration // Delay before the second attempt, doubled after each failure. Default 2s.
}

func DefaultConfig() Config {
	return Config{
		Workers:      4,
		QueueSize:    64,
		MaxAttempts:  3,
		RetryBackoff: 2 * time.Second,
	}
}

// Task is one unit of background work. Done, if set, is called exactly once
// with the error of the last attempt. Retryable, if set, decides whether a
// failed attempt is worth repeating; by default every failure is retried.
type Task struct {
	ID        string
	Run       func(ctx context.Context) error
	Done      func(err error)
	Retryable func(err error) bool
}

type Pool struct {
	cfg    Config
	queue  chan Task
	logger *slog.Logger
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewPool(cfg Config, logger *slog.Logger) *Pool {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		cfg:    cfg,
		queue:  make(chan Task, cfg.QueueSize),
		logger: logger.With("component", "worker_pool"),
	}
}

// Start launches the workers. Tasks run with ctx; cancelling it stops
// retries but queued tasks are still handed to their Done callbacks.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("worker pool starting",
		"workers", p.cfg.Workers,
		"queue_size", p.cfg.QueueSize,
		"max_attempts", p.cfg.MaxAttempts)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			p.workerLoop(ctx, workerID)
		}(i)
	}
}

// Submit enqueues t without blocking. It returns domain.ErrQueueFull when the
// queue is at capacity.
func (p *Pool) Submit(t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolClosed
	}

	select {
	case p.queue <- t:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Stop refuses new tasks, lets the workers drain the queue and waits for
// them to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.logger.Info("worker pool shutting down, waiting for workers to finish")
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) workerLoop(ctx context.Context, workerID int) {
	for t := range p.queue {
		err := p.runWithRetry(ctx, workerID, t)
		if t.Done != nil {
			t.Done(err)
		}
	}
}

func (p *Pool) runWithRetry(ctx context.Context, workerID int, t Task) error {
	backoff := p.cfg.RetryBackoff
	var err error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		err = t.Run(ctx)
		if err == nil {
			p.logger.Debug("task completed", "worker_id", workerID, "task_id", t.ID, "attempt", attempt)
			return nil
		}

		p.logger.Error("task failed",
			"worker_id", workerID,
			"task_id", t.ID,
			"attempt", attempt,
			"error", err)

		if attempt == p.cfg.MaxAttempts {
			break
		}
		if t.Retryable != nil && !t.Retryable(err) {
			p.logger.Warn("task failed permanently, not retrying", "worker_id", workerID, "task_id", t.ID)
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
