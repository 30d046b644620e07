// Package actorbus is the deterministic, single-threaded message bus
// spec.md §2 and §5 specify: a depth-first event loop hosting a graph of
// actors that exchange strictly typed messages, with all blocking work
// pushed to worker pools and re-entering the loop through a thread-safe
// mailbox.
package actorbus

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Loop is the scheduler thread. All of Register, Emit, and Tick must be
// called from the same goroutine; PostAsync is the sole thread-safe entry
// point, used by callers on other goroutines. The mailbox it fills is
// drained once per tick.
type Loop struct {
	log *logrus.Entry

	actors map[ActorKey]Actor
	polls  []Poller

	// stack is the LIFO used during a single top-level message's
	// depth-first descent (spec.md §9: "a LIFO of emitted messages within
	// a handler's synchronous descent, returning to the FIFO mailbox only
	// when depth is drained").
	stack []Message

	// mailbox is the thread-safe inbox PostAsync messages land in.
	mu      sync.Mutex
	mailbox []Message
	notify  chan struct{}
}

// NewLoop returns an empty Loop. Register actors and pollers, then drive
// it by calling Tick repeatedly.
func NewLoop(log *logrus.Entry) *Loop {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loop{
		log:    log,
		actors: make(map[ActorKey]Actor),
		notify: make(chan struct{}, 1),
	}
}

// Register installs an actor at key, overwriting any prior occupant. Used
// by RastersHandler when it instantiates a raster's per-raster actor set,
// and once at startup for the global actors.
func (l *Loop) Register(key ActorKey, a Actor) {
	l.actors[key] = a
}

// Unregister removes the actor at key. Called during raster/query teardown
// once every pending message and reservation for that key has been
// dropped (spec.md invariant 5).
func (l *Loop) Unregister(key ActorKey) {
	delete(l.actors, key)
}

// AddPoller registers a periodic-poll entry point, called once per tick
// after the mailbox and depth-first dispatch have both drained.
func (l *Loop) AddPoller(p Poller) {
	l.polls = append(l.polls, p)
}

// Emit enqueues msg for depth-first delivery. Call only from within an
// Actor.Handle running on the loop goroutine (i.e. from inside Tick); this
// is how a handler's synchronous reactions get processed before the loop
// returns to earlier queued mailbox messages.
func (l *Loop) Emit(msg Message) {
	l.stack = append(l.stack, msg)
}

// PostAsync is the thread-safe mailbox entry point for cross-goroutine
// producers. It never blocks.
func (l *Loop) PostAsync(msg Message) {
	l.mu.Lock()
	l.mailbox = append(l.mailbox, msg)
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Wake returns a channel that receives a value whenever PostAsync has new
// work; a driver loop can select on it instead of busy-polling Tick.
func (l *Loop) Wake() <-chan struct{} { return l.notify }

// Tick runs exactly the three phases spec.md §5 specifies: drain the
// mailbox, dispatch depth-first until empty, then call every registered
// Poller. A Poller may itself call Emit (e.g. QueriesHandler.poll planning
// new work); those are drained depth-first once every Poller has run, the
// same way top-level mailbox messages are. It never blocks.
func (l *Loop) Tick() {
	l.drainMailbox()
	for _, p := range l.polls {
		p.Poll()
	}
	l.drainPollEmits()
}

func (l *Loop) drainPollEmits() {
	emitted := l.stack
	l.stack = nil
	for _, msg := range emitted {
		l.dispatchOne(msg)
	}
}

func (l *Loop) drainMailbox() {
	l.mu.Lock()
	drained := l.mailbox
	l.mailbox = nil
	l.mu.Unlock()

	for _, msg := range drained {
		l.dispatchOne(msg)
	}
}

// dispatchOne runs one top-level message to full depth-first completion:
// pop the most recently emitted message first, so synchronous reactions to
// msg are observed before any sibling queued after msg in the mailbox.
func (l *Loop) dispatchOne(msg Message) {
	l.stack = append(l.stack[:0:0], msg) // fresh slice per root dispatch
	for len(l.stack) > 0 {
		next := l.stack[len(l.stack)-1]
		l.stack = l.stack[:len(l.stack)-1]
		l.deliver(next)
	}
}

func (l *Loop) deliver(msg Message) {
	a, ok := l.actors[msg.To]
	if !ok {
		l.log.WithFields(logrus.Fields{
			"raster": msg.To.Raster,
			"role":   msg.To.Role,
			"type":   msg.Type,
		}).Debug("actorbus: message dropped, no actor registered at key")
		return
	}
	a.Handle(msg)
}

// Deliver is exposed for actors and tests that need to feed a message
// straight into a depth-first descent without going through the async
// mailbox, e.g. synchronous calls like post_query from outside the loop
// that must be funneled in-thread.
func (l *Loop) Deliver(msg Message) {
	l.dispatchOne(msg)
}
