package gamedb

// RoomInfo holds the environment attributes of a room.
type RoomInfo struct {
	Safe      bool
	Light     bool
	FloorType int
	DarkMsg   string
	Exits     []*Object
	Entrances []*Object
	Extras    []*Object
	Zone      *Object
}

func newRoomInfo() *RoomInfo {
	return &RoomInfo{
		Light:     true,
		FloorType: 1,
		DarkMsg:   "It is too dark to see.",
	}
}

// AddExtra creates an inspectable extra attached to the room.
func (o *Object) AddExtra(name, text string) *Object {
	extra := o.db.create(KindExtra, name)
	extra.Desc = text
	o.Room.Extras = append(o.Room.Extras, extra)
	return extra
}

// RemoveExtra detaches and destroys an extra.
func (o *Object) RemoveExtra(extra *Object) {
	for i, e := range o.Room.Extras {
		if e == extra {
			o.Room.Extras = append(o.Room.Extras[:i:i], o.Room.Extras[i+1:]...)
			break
		}
	}
	extra.Destroy()
}

// Announce notifies everything in o except player.
func (o *Object) Announce(text string, player *Object) {
	o.AnnounceAllBut(text, player)
}

// AnnounceAll notifies everything in o.
func (o *Object) AnnounceAll(text string) {
	o.AnnounceAllBut(text)
}

// AnnounceAllBut notifies everything in o that is not listed in except.
func (o *Object) AnnounceAllBut(text string, except ...*Object) {
	for _, c := range o.Contents {
		skip := false
		for _, e := range except {
			if c == e {
				skip = true
				break
			}
		}
		if !skip {
			c.Notify(text)
		}
	}
}
