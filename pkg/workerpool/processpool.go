package workerpool

import "context"

// ProcessPool documents the process-isolation contract spec.md §6 allows
// for CPU-bound compute functions ("process pool (for CPU-bound
// compute)"). Pool affinity and sizing are configuration, a Non-goal of
// spec.md §1, so this implementation is a single-process fallback that
// satisfies the Pool interface rather than a subprocess manager: wiring a
// real process pool (fork/exec workers communicating over a pipe) is
// deployment-specific and left to the embedder, who can supply any Pool
// implementation to NewComputer.
type ProcessPool struct {
	inner *ThreadPool
}

// NewProcessPool returns a ProcessPool that currently executes tasks
// in-process on a bounded goroutine set; swap in a real multi-process
// implementation by satisfying Pool directly.
func NewProcessPool(concurrency int) *ProcessPool {
	return &ProcessPool{inner: NewThreadPool(concurrency)}
}

func (p *ProcessPool) Submit(ctx context.Context, t Task) Future {
	return p.inner.Submit(ctx, t)
}

func (p *ProcessPool) Close() { p.inner.Close() }
