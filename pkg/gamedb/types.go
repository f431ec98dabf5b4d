package gamedb

import (
	"fmt"
	"strings"
)

// DBRef is the stable identity of an object. It is assigned from a
// monotonic counter when the object is constructed and never reused
// within a process.
type DBRef int

// Nothing is the reference used in logs for the NOWHERE/NOONE sentinel.
const Nothing DBRef = -1

func (r DBRef) String() string {
	return fmt.Sprintf("#%d", int(r))
}

// NothingSpecial is shown when an object has no description.
const NothingSpecial = "You see nothing special."

// Kind tags an object with the component set it carries. The tag is also
// the kind name written into dumps.
type Kind string

const (
	KindObject Kind = "object"
	KindMobile Kind = "mobile"
	KindPlayer Kind = "player"
	KindRoom   Kind = "room"
	KindZone   Kind = "zone"
	KindExtra  Kind = "extra"
)

// Kinds lists every known kind in a stable order.
var Kinds = []Kind{KindObject, KindMobile, KindPlayer, KindRoom, KindZone, KindExtra}

// ParseKind resolves a dumped kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(s))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown object kind %q", s)
}

// AccessLevel is the ordered permission tier of a player.
type AccessLevel int

const (
	Normal AccessLevel = iota
	Builder
	Programmer
	Wizard
)

var accessNames = [...]string{"normal", "builder", "programmer", "wizard"}

// Valid reports whether a is one of the four defined levels.
func (a AccessLevel) Valid() bool {
	return a >= Normal && a <= Wizard
}

func (a AccessLevel) String() string {
	if !a.Valid() {
		return fmt.Sprintf("access(%d)", int(a))
	}
	return accessNames[a]
}

// ParseAccessLevel accepts a level name in any case.
func ParseAccessLevel(s string) (AccessLevel, error) {
	for i, name := range accessNames {
		if strings.EqualFold(s, name) {
			return AccessLevel(i), nil
		}
	}
	return Normal, fmt.Errorf("unknown access level %q", s)
}

// Conn is the live transport bound to a connected player. Implementations
// must be safe to call from the world executor without blocking on the
// network.
type Conn interface {
	// Send queues one line of output.
	Send(line string)
	// Disconnect flushes queued output and closes the transport.
	Disconnect()
	// Read routes the next input line to fn instead of the dispatcher.
	Read(fn func(line string) error, prompt string)
	// Host is the remote host of the transport.
	Host() string
}
