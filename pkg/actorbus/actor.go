package actorbus

// Actor handles one Message at a time, to completion, before the loop
// dispatches the next one (spec.md §5: "a handler runs to completion
// before the next message is dispatched"). Handle must never block; the
// only way to cross a thread boundary is through a workerpool.Pool, whose
// completions re-enter the loop as ordinary messages that the owning
// actor's Poller emits once it sees the Future done.
type Actor interface {
	Handle(msg Message)
}

// ActorFunc adapts a plain function to the Actor interface.
type ActorFunc func(msg Message)

func (f ActorFunc) Handle(msg Message) { f(msg) }

// Poller is the periodic-poll entry point spec.md §5 calls out for
// RastersHandler, QueriesHandler, and Computer: "each returns promptly".
type Poller interface {
	Poll()
}

// PollerFunc adapts a plain function to the Poller interface.
type PollerFunc func()

func (f PollerFunc) Poll() { f() }
