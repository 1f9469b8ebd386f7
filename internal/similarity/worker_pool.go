package similarity

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

type Job interface {
	Execute(ctx context.Context) error
}

// WorkerPool runs Jobs on a fixed set of goroutines.
type WorkerPool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	closed   sync.Once
}

// NewWorkerPool starts size workers. A size <= 0 leaves a quarter of the CPUs
// to the rest of the process and uses the remainder.
func NewWorkerPool(ctx context.Context, size int) *WorkerPool {
	if size <= 0 {
		totalCPU := runtime.NumCPU()
		systemReserve := max(1, totalCPU/4)
		size = max(1, totalCPU-systemReserve)
	}
	poolCtx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		workers:  size,
		jobQueue: make(chan Job, size*2),
		ctx:      poolCtx,
		cancel:   cancel,
	}
	pool.start()

	log.Info().Int("workers", size).Msg("Comparison worker pool initialized")
	return pool
}

func (p *WorkerPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			if err := job.Execute(p.ctx); err != nil {
				log.Debug().Err(err).Msg("Comparison job failed")
			}
		}
	}
}

// Submit queues job, blocking while the queue is full. It fails once the
// pool or ctx is done.
func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	case p.jobQueue <- job:
		return nil
	}
}

// Close stops the workers and waits for them to exit. Queued jobs that
// have not started are dropped.
func (p *WorkerPool) Close() {
	p.closed.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

// Done is closed once the pool has been closed.
func (p *WorkerPool) Done() <-chan struct{} {
	return p.ctx.Done()
}

func (p *WorkerPool) Size() int {
	return p.workers
}
