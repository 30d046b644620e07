package workerpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ThreadPool runs Tasks on a bounded set of goroutines, modeled on the
// worker-goroutine fan-out in rda/pkg/rda/realizer.go's RealizeGraph: a
// fixed number of workers pull jobs and a WaitGroup tracks shutdown. The
// concurrency cap itself is enforced with golang.org/x/sync/semaphore
// rather than a fixed number of pre-spun goroutines, so Submit can be
// called from the single scheduler thread without pre-sizing a channel.
type ThreadPool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewThreadPool returns a pool that runs at most concurrency tasks at
// once. concurrency < 1 is treated as 1.
func NewThreadPool(concurrency int) *ThreadPool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ThreadPool{sem: semaphore.NewWeighted(int64(concurrency))}
}

// Submit runs t on a pool goroutine once a concurrency slot is free. The
// returned Future completes when t returns or ctx is cancelled.
func (p *ThreadPool) Submit(ctx context.Context, t Task) Future {
	taskCtx, cancel := context.WithCancel(ctx)
	f := newFuture(cancel)

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		cancel()
		f.complete(nil, context.Canceled)
		return f
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		if err := p.sem.Acquire(taskCtx, 1); err != nil {
			f.complete(nil, err)
			return
		}
		defer p.sem.Release(1)

		val, err := t(taskCtx)
		f.complete(val, err)
	}()

	return f
}

// Close waits for all outstanding tasks to finish and rejects future
// Submit calls.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
