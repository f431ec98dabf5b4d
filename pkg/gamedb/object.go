package gamedb

import (
	"fmt"
	"iter"
	"strings"
)

// Default message templates shared by every new object.
const (
	DefaultDropMsg  = "You drop {name}."
	DefaultTakeMsg  = "You take {name}."
	DefaultODropMsg = "{player_title} drops {name}."
	DefaultOTakeMsg = "{player_title} takes {name}."
)

// Hook is consulted when obj wants to enter or leave container. Returning
// false vetoes the move. A hook that grants the move is responsible for
// keeping container.Contents accurate.
type Hook func(container, obj *Object) bool

// Object is an entity in the world. Behaviour beyond the base fields is
// selected by Kind and carried by the optional component pointers.
type Object struct {
	Ref      DBRef
	Kind     Kind
	Name     string
	Desc     string
	Help     string
	Location *Object // nil is NOWHERE
	Contents []*Object
	Owner    *Object // nil means the object owns itself

	DropMsg  string
	TakeMsg  string
	ODropMsg string
	OTakeMsg string

	Mobile  *MobileStats
	Account *AccountInfo
	Room    *RoomInfo
	Zone    *ZoneInfo

	// EnterHook and ExitHook replace the default containment bookkeeping.
	EnterHook Hook
	ExitHook  Hook

	db        *Database
	destroyed bool
}

func (o *Object) String() string {
	if o == nil {
		return "<nowhere>"
	}
	return fmt.Sprintf("<%s %s (%s)>", o.Kind, o.Ref, o.Name)
}

// DB returns the database the object was created in.
func (o *Object) DB() *Database { return o.db }

// Destroyed reports whether Destroy has removed the object from the world.
func (o *Object) Destroyed() bool { return o.destroyed }

// IsPlayer reports whether the object carries account data.
func (o *Object) IsPlayer() bool { return o != nil && o.Account != nil }

// Description falls back to NothingSpecial, and to the dark message for
// unlit rooms.
func (o *Object) Description() string {
	if o.Room != nil && !o.Room.Light {
		return o.Room.DarkMsg
	}
	if o.Desc == "" {
		return NothingSpecial
	}
	return o.Desc
}

// Title is the display form of the name. Rooms include their zone.
func (o *Object) Title() string {
	if o.Room != nil {
		if z := o.Room.Zone; z != nil {
			return fmt.Sprintf("[%s; %s]", z.Title(), o.Name)
		}
		return fmt.Sprintf("[%s]", o.Name)
	}
	return o.Name
}

// EffectiveOwner resolves the self-ownership default.
func (o *Object) EffectiveOwner() *Object {
	if o.Owner == nil {
		return o
	}
	return o.Owner
}

// Locations walks the location chain outwards until NOWHERE. The walk is
// bounded by the size of the object table so that a corrupt chain loaded
// from disk cannot loop forever.
func (o *Object) Locations() iter.Seq[*Object] {
	return func(yield func(*Object) bool) {
		limit := 1
		if o.db != nil {
			limit += o.db.Len()
		}
		for l := o.Location; l != nil && limit > 0; l = l.Location {
			if !yield(l) {
				return
			}
			limit--
		}
	}
}

// Within reports whether container appears in o's location chain.
func (o *Object) Within(container *Object) bool {
	for l := range o.Locations() {
		if l == container {
			return true
		}
	}
	return false
}

// Move relocates o into dest, or to NOWHERE when dest is nil.
//
// Moving to the current location does nothing. Moving into itself, into
// one of its own locations, or into something it contains fails with a
// *ContainmentError. Otherwise the current location's exit hook and the
// destination's entry hook are consulted. When entry is refused the object
// goes back to where it was, or to NOWHERE if the old location also
// refuses it.
func (o *Object) Move(dest *Object) error {
	old := o.Location
	if old == dest {
		return nil
	}
	if dest == o || o.Within(dest) || (dest != nil && dest.Within(o)) {
		return &ContainmentError{Object: o, Destination: dest}
	}
	if old != nil && !old.allowExit(o) {
		return ErrExitDenied
	}
	if dest == nil || dest.allowEnter(o) {
		o.Location = dest
		return nil
	}
	if old != nil && old.allowEnter(o) {
		o.Location = old
		return ErrEntryDenied
	}
	o.Location = nil
	return ErrEntryDenied
}

func (o *Object) allowEnter(obj *Object) bool {
	if o.EnterHook != nil {
		return o.EnterHook(o, obj)
	}
	o.AddContent(obj)
	return true
}

func (o *Object) allowExit(obj *Object) bool {
	if o.ExitHook != nil {
		return o.ExitHook(o, obj)
	}
	o.RemoveContent(obj)
	return true
}

// AddContent appends obj to the contents list unless it is already there.
func (o *Object) AddContent(obj *Object) {
	for _, c := range o.Contents {
		if c == obj {
			return
		}
	}
	o.Contents = append(o.Contents, obj)
}

// RemoveContent drops obj from the contents list. Missing entries are
// ignored.
func (o *Object) RemoveContent(obj *Object) {
	for i, c := range o.Contents {
		if c == obj {
			o.Contents = append(o.Contents[:i:i], o.Contents[i+1:]...)
			return
		}
	}
}

// Notify delivers text to the object. It reports whether anything was
// actually delivered, which only happens for connected players.
func (o *Object) Notify(text string) bool {
	if o == nil || o.Account == nil || o.Account.Conn == nil {
		return false
	}
	o.Account.Conn.Send(text)
	return true
}

// Match finds objects whose name starts with text, case-insensitively.
// A "2." style prefix selects the second match.
func Match(text string, candidates []*Object) []*Object {
	text = strings.ToLower(strings.TrimSpace(text))
	index := -1
	if dot := strings.IndexByte(text, '.'); dot > 0 {
		n := 0
		ok := true
		for _, r := range text[:dot] {
			if r < '0' || r > '9' {
				ok = false
				break
			}
			n = n*10 + int(r-'0')
		}
		if ok {
			index = n
			text = text[dot+1:]
		}
	}
	if text == "" {
		return nil
	}
	var results []*Object
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c.Name), text) {
			results = append(results, c)
		}
	}
	if index >= 0 {
		if index >= len(results) {
			return nil
		}
		return results[index : index+1]
	}
	return results
}
