package gamedb

import (
	"errors"
	"fmt"
)

var (
	// ErrExitDenied means the current location refused to let the object
	// go. The object has not moved.
	ErrExitDenied = errors.New("gamedb: exit denied")
	// ErrEntryDenied means the destination refused the object. The object
	// is back in its old location, or NOWHERE if that refused it as well.
	ErrEntryDenied = errors.New("gamedb: entry denied")
)

// ContainmentError reports a move that would put an object inside itself.
type ContainmentError struct {
	Object      *Object
	Destination *Object
}

func (e *ContainmentError) Error() string {
	return fmt.Sprintf("gamedb: cannot move %s into %s: containment cycle", e.Object, e.Destination)
}

// PermissionsError is returned by handlers that refuse an action for
// access-control reasons beyond command gating.
type PermissionsError struct {
	Player *Object
	Action string
}

func (e *PermissionsError) Error() string {
	return fmt.Sprintf("gamedb: %s may not %s", e.Player, e.Action)
}
