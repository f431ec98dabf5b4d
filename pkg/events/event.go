package events

import "github.com/littlemud/littlemud/pkg/gamedb"

// EventType classifies session lifecycle events.
type EventType int

const (
	EvConnect    EventType = iota // Player bound to a session
	EvDisconnect                  // Player's session went away
	EvRedirect                    // Session closed in favour of a newer login
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvConnect:
		return "connect"
	case EvDisconnect:
		return "disconnect"
	case EvRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Event is something that happened to a session. Subscribers run on the
// executor and may touch the world.
type Event struct {
	Type      EventType
	Player    *gamedb.Object
	Session   string
	Host      string
	Transport string
	Text      string
}
