package actorbus

// ActorKey addresses one mailbox in the registry spec.md §9 describes:
// "a central registry maps (raster-id, actor-role) → mailbox". Global
// actors (RastersHandler) use an empty Raster field.
type ActorKey struct {
	Raster string
	Role   string
}

// Message is what actors exchange. Type names the message per spec.md §4
// (e.g. "make_arrays", "you_may_read", "wrote_tile"); Payload carries the
// typed body defined alongside each actor.
type Message struct {
	To      ActorKey
	Type    string
	Payload interface{}
}
