package chat

// Room keys. Every authenticated connection joins its own personal room
// (keyed by user ID) and the global presence room; conversation rooms are
// joined and left on client request.
const PresenceRoom = "presence"

// ConversationRoom returns the room key for a conversation thread.
func ConversationRoom(conversationID string) string {
	return "conversation-" + conversationID
}

// Effect is one outbound broadcast produced by the dispatch state machine.
// Handlers return effects instead of touching the transport directly, so the
// protocol logic stays testable without a socket server.
type Effect struct {
	Room          string
	Event         string
	Payload       interface{}
	ExcludeSocket string // when set, skip this socket during fan-out
}

// Emitter is the transport-side half of the room router: it delivers a
// payload to every current member of a room, best effort, with no
// acknowledgement. A single member's failed transport must not abort
// delivery to the rest.
type Emitter interface {
	Broadcast(room, event string, payload interface{})
	BroadcastExcluding(excludeSocketID, room, event string, payload interface{})
}

// Apply dispatches each effect through the emitter.
func Apply(e Emitter, effects []Effect) {
	for _, eff := range effects {
		if eff.ExcludeSocket != "" {
			e.BroadcastExcluding(eff.ExcludeSocket, eff.Room, eff.Event, eff.Payload)
		} else {
			e.Broadcast(eff.Room, eff.Event, eff.Payload)
		}
	}
}
