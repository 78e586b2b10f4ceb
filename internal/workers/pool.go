package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrPoolFull   = errors.New("worker pool queue is full")
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Job is a unit of background work. ctx is cancelled when shutdown gives up waiting.
type Job func(ctx context.Context)

// Pool runs jobs on a fixed number of goroutines fed by a bounded queue.
// Submit never blocks the caller.
type Pool struct {
	jobs   chan Job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

func NewPool(workers, queueSize int, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:   make(chan Job, queueSize),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	log.Info().Int("workers", workers).Int("queue_size", queueSize).Msg("Worker pool started")
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(id, job)
	}
}

func (p *Pool) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Interface("panic", r).Msg("Job panicked")
		}
	}()
	job(p.ctx)
}

// Submit enqueues job or fails fast with ErrPoolFull / ErrPoolClosed.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. If ctx ends
// first, running jobs see their context cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.log.Info().Msg("Worker pool stopped")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.log.Warn().Msg("Worker pool shutdown timed out, cancelling running jobs")
		return ctx.Err()
	}
}
