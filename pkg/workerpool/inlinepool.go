package workerpool

import "context"

// InlinePool runs every task synchronously inside Submit, exactly as
// spec.md §6 specifies for the test pool ("inline pool (for tests — runs
// on submit, completes synchronously)"). This makes the actor graph's
// tests deterministic: a tick that submits work observes its completion
// message before the tick returns, with no goroutines or timing
// assumptions involved.
type InlinePool struct{}

// NewInlinePool returns a Pool that executes tasks immediately.
func NewInlinePool() *InlinePool { return &InlinePool{} }

func (InlinePool) Submit(ctx context.Context, t Task) Future {
	f := newFuture(func() {})
	val, err := t(ctx)
	f.complete(val, err)
	return f
}

func (InlinePool) Close() {}
