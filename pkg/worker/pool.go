package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/taskqueue"
)

// Pool runs several Workers on their own goroutines.
type Pool struct {
	worker *Worker
	logger *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewPool creates a Pool whose workers feed tasks from queue to proc.
// A nil logger disables logging.
func NewPool(proc Processor, queue taskqueue.Queue, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		worker: New(proc, queue),
		logger: logger,
	}
}

// Start launches concurrency goroutines that call ProcessOne until ctx is
// cancelled, Stop is called, or the queue is closed and drained.
//
// If Start is called more than once without Stop, it returns an error.
func (p *Pool) Start(ctx context.Context, concurrency int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("worker: pool already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(id int) {
			defer p.wg.Done()

			for {
				_, err := p.worker.ProcessOne(ctx)
				if err != nil {
					if isShutdown(err) {
						return
					}
					// Keep going so one bad dequeue doesn't kill the loop.
					p.logger.Warn("worker error", zap.Int("worker", id), zap.Error(err))
				}
			}
		}(i)
	}

	p.logger.Debug("worker pool started", zap.Int("workers", concurrency))
	return nil
}

// Stop cancels all worker goroutines and waits for them to exit. Tasks
// still queued are abandoned.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Wait blocks until every worker has exited on its own, which happens once
// the queue is closed and drained.
func (p *Pool) Wait() {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.running = false
		if p.cancel != nil {
			p.cancel()
			p.cancel = nil
		}
	}
}
