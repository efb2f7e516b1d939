package workers

import (
	"context"
	"sync"
)

// Task is one unit of offloaded work.
type Task func(ctx context.Context)

// Pool runs tasks on a bounded number of workers behind a bounded queue.
// Submit blocks the caller once the queue is full; that backpressure is the
// intended throughput/latency trade-off.
type Pool struct {
	workers int
	tasks   chan Task
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		workers: workers,
		tasks:   make(chan Task, queueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the workers. Each runs until the pool is stopped or the
// context is cancelled; on stop the queue is drained before exiting.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case task := <-p.tasks:
					task(ctx)
				case <-p.done:
					for {
						select {
						case task := <-p.tasks:
							task(ctx)
						default:
							return
						}
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

// Submit enqueues a task, blocking while the queue is full. It returns false
// once the pool has been stopped, including when the caller was already
// blocked on a full queue when Stop ran. The task channel is never closed, so
// a Submit racing Stop can never panic; at worst its task lands in the queue
// too late to run.
func (p *Pool) Submit(task Task) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.tasks <- task:
		return true
	case <-p.done:
		return false
	}
}

// Stop signals shutdown, unblocks pending Submits and waits for the workers
// to drain the queue.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()
}
