package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
)

// Job is a unit of work run by the pool
type Job func(ctx context.Context) error

// Pool runs submitted jobs on a fixed number of workers and collects their errors.
// Start, then Submit, then Wait. Shutdown abandons queued jobs.
type Pool struct {
	jobs       chan Job
	maxWorkers int
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
	errors     []error
	errorsMu   sync.Mutex
	logger     arbor.ILogger
}

// NewPool creates a pool whose jobs receive a context derived from parent
func NewPool(parent context.Context, maxWorkers int, logger arbor.ILogger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		jobs:       make(chan Job, maxWorkers*2),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
}

func (p *Pool) Start() {
	p.logger.Debug().Int("max_workers", p.maxWorkers).Msg("Starting worker pool")
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues a job, blocking while the queue is full
func (p *Pool) Submit(job Job) error {
	select {
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	default:
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Wait closes the queue and blocks until every queued job has run
func (p *Pool) Wait() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
	p.cancel()
}

// Shutdown cancels running jobs and drops queued ones
func (p *Pool) Shutdown() {
	p.cancel()
	p.Wait()
}

// Errors returns the errors returned or panicked by jobs
func (p *Pool) Errors() []error {
	p.errorsMu.Lock()
	defer p.errorsMu.Unlock()
	out := make([]error, len(p.errors))
	copy(out, p.errors)
	return out
}

func (p *Pool) record(err error) {
	p.errorsMu.Lock()
	p.errors = append(p.errors, err)
	p.errorsMu.Unlock()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.run(job); err != nil {
				p.record(err)
				p.logger.Warn().Err(err).Int("worker_id", id).Msg("Job failed")
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job(p.ctx)
}
