package scheduler

import (
	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/compute"
)

// QueryHandle is the consumer-facing side of a posted query, spec §6:
// "query-handle.next()" pulls the next delivered sub-array in order,
// blocking until one is ready; "query-handle.cancel()" requests early
// termination.
type QueryHandle struct {
	loop     *actorbus.Loop
	rasterID string
	queryID  string
	out      *outputQueue
}

// Result is one item QueryHandle.Next returns: either a production array
// (Done == false), or the terminal value (Done == true, Err set only on
// failure or cancellation).
type Result struct {
	Seq   int
	Array compute.Array
	Done  bool
	Err   *Error
}

// Next blocks until the query's next production array, in delivery order,
// is ready, or the query has terminated. After a terminal Result (Done ==
// true), every subsequent call to Next returns the same terminal Result:
// the terminal push closes out.consumed, so a later receive comes back
// zero-value/not-ok and Next falls back to the cached terminal item.
func (h *QueryHandle) Next() Result {
	item, ok := <-h.out.consumed
	if !ok {
		return resultFromItem(h.out.terminal)
	}
	h.out.drain()
	return resultFromItem(item)
}

func resultFromItem(item outputQueueItem) Result {
	if item.end {
		return Result{Done: true}
	}
	if item.err != nil {
		return Result{Done: true, Err: item.err}
	}
	return Result{Seq: item.seq, Array: item.array}
}

// Cancel requests early termination of the query (spec §4.12). It is
// idempotent and does not block on teardown completing; a subsequent call
// to Next observes the resulting KindUserCancelled terminal Result once
// the loop has processed the request.
func (h *QueryHandle) Cancel() {
	h.loop.PostAsync(actorbus.Message{
		To:      key(h.rasterID, roleQueriesHandler),
		Type:    msgKillQuery,
		Payload: killQueryPayload{queryID: h.queryID},
	})
}
