package scheduler

import (
	"testing"

	"github.com/preligens-lab/buzzard/pkg/compute"
)

func TestOutputQueuePushDrainOrder(t *testing.T) {
	q := newOutputQueue(2)

	q.push(outputQueueItem{seq: 0, array: compute.Array{Width: 1}})
	q.push(outputQueueItem{seq: 1, array: compute.Array{Width: 2}})

	if got := q.undeliveredCount(); got != 2 {
		t.Fatalf("undeliveredCount() = %d, want 2", got)
	}

	first := <-q.consumed
	if first.seq != 0 {
		t.Fatalf("first consumed item seq = %d, want 0", first.seq)
	}
	q.drain()
	if got := q.undeliveredCount(); got != 1 {
		t.Fatalf("undeliveredCount() after one drain = %d, want 1", got)
	}

	second := <-q.consumed
	if second.seq != 1 {
		t.Fatalf("second consumed item seq = %d, want 1", second.seq)
	}
	q.drain()
	if got := q.undeliveredCount(); got != 0 {
		t.Fatalf("undeliveredCount() after draining everything = %d, want 0", got)
	}
}

func TestOutputQueueTerminalItemNeverBlocksAtCapacity(t *testing.T) {
	q := newOutputQueue(1)

	// Fill to capacity without any consumer draining yet.
	q.push(outputQueueItem{seq: 0})

	done := make(chan struct{})
	go func() {
		// The terminal push must not block even though a regular item is
		// still sitting undelivered at capacity.
		q.push(outputQueueItem{end: true})
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-q.consumed // drain the regular item
	<-done       // the terminal push must have already completed by now
}

func TestOutputQueueDrainOnEmptyIsANoop(t *testing.T) {
	q := newOutputQueue(1)
	q.drain()
	if got := q.undeliveredCount(); got != 0 {
		t.Fatalf("undeliveredCount() = %d, want 0", got)
	}
}
