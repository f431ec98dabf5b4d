package gamedb

import (
	"sync"

	"github.com/littlemud/littlemud/pkg/logger"
)

// StartRoomKey names the designated starting room in Named.
const StartRoomKey = "start_room"

// Database is the in-memory world: the ordered object table, the derived
// player list, the server settings and the named configuration objects.
//
// Object fields are owned by whichever goroutine runs world jobs. The
// table itself is guarded by mu for the length of a single structural
// change so that metrics and listings can read it from elsewhere.
type Database struct {
	mu      sync.RWMutex
	objects []*Object
	players []*Object
	nextRef DBRef

	Settings *Settings
	Named    map[string]*Object
}

// NewDatabase returns an empty world with default settings.
func NewDatabase() *Database {
	return &Database{
		Settings: NewSettings(),
		Named:    make(map[string]*Object),
	}
}

func (db *Database) create(kind Kind, name string) *Object {
	o := &Object{
		Kind:     kind,
		Name:     name,
		DropMsg:  DefaultDropMsg,
		TakeMsg:  DefaultTakeMsg,
		ODropMsg: DefaultODropMsg,
		OTakeMsg: DefaultOTakeMsg,
		db:       db,
	}
	switch kind {
	case KindMobile:
		o.Mobile = newMobileStats()
	case KindPlayer:
		o.Mobile = newMobileStats()
		o.Account = &AccountInfo{}
	case KindRoom:
		o.Room = newRoomInfo()
	case KindZone:
		o.Zone = &ZoneInfo{ResetInterval: 20}
	}

	db.mu.Lock()
	o.Ref = db.nextRef
	db.nextRef++
	db.objects = append(db.objects, o)
	if o.Account != nil {
		db.players = append(db.players, o)
	}
	db.mu.Unlock()

	logger.Log.WithField("ref", o.Ref).Debugf("created %s %q", kind, name)
	return o
}

// New creates and registers an object of the given kind.
func (db *Database) New(kind Kind, name string) *Object {
	return db.create(kind, name)
}

// NewThing creates a plain object.
func (db *Database) NewThing(name string) *Object { return db.create(KindObject, name) }

// NewMobile creates a mobile.
func (db *Database) NewMobile(name string) *Object { return db.create(KindMobile, name) }

// NewRoom creates a room.
func (db *Database) NewRoom(name string) *Object { return db.create(KindRoom, name) }

// NewZone creates a zone.
func (db *Database) NewZone(name string) *Object { return db.create(KindZone, name) }

// NewPlayer creates a player with the given login identifier and secret.
// The very first player becomes a wizard and takes ownership of every
// object in the world.
func (db *Database) NewPlayer(name, uid, secret string) (*Object, error) {
	p := db.create(KindPlayer, name)
	p.Account.UID = uid
	if err := p.SetPassword(secret); err != nil {
		p.Destroy()
		return nil, err
	}
	if len(db.Players()) == 1 {
		p.Account.Access = Wizard
		for _, o := range db.Objects() {
			o.Owner = p
		}
	}
	return p, nil
}

// Objects returns a snapshot of the object table in table order.
func (db *Database) Objects() []*Object {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]*Object(nil), db.objects...)
}

// Players returns a snapshot of the player list.
func (db *Database) Players() []*Object {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]*Object(nil), db.players...)
}

// Len returns the number of live objects.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.objects)
}

// Index returns the position of o in the object table, or -1.
func (db *Database) Index(o *Object) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for i, obj := range db.objects {
		if obj == o {
			return i
		}
	}
	return -1
}

// Connected returns every player with a bound transport.
func (db *Database) Connected() []*Object {
	var out []*Object
	for _, p := range db.Players() {
		if p.IsConnected() {
			out = append(out, p)
		}
	}
	return out
}

// NotifyPlayers sends text to every connected player at or above access.
func (db *Database) NotifyPlayers(text string, access AccessLevel) {
	for _, p := range db.Players() {
		if p.Access() >= access {
			p.Notify(text)
		}
	}
}

// PlayerByUID finds a player by exact login identifier.
func (db *Database) PlayerByUID(uid string) *Object {
	for _, p := range db.Players() {
		if p.Account.UID == uid {
			return p
		}
	}
	return nil
}

// PlayerByName finds a player by exact display name.
func (db *Database) PlayerByName(name string) *Object {
	for _, p := range db.Players() {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// StartRoom returns the designated starting room, or nil.
func (db *Database) StartRoom() *Object {
	return db.Named[StartRoomKey]
}

// Destroy removes o from its location and from the world. Rooms first
// evict their contents to NOWHERE. Destroying twice is a no-op.
func (o *Object) Destroy() {
	if o.destroyed {
		return
	}
	if o.Room != nil {
		for _, c := range append([]*Object(nil), o.Contents...) {
			if err := c.Move(nil); err != nil {
				logger.Log.WithError(err).Warnf("evicting %s from %s", c, o)
				o.RemoveContent(c)
				c.Location = nil
			}
		}
	}
	if o.Location != nil {
		o.Location.RemoveContent(o)
	}
	o.destroyed = true

	db := o.db
	if db == nil {
		return
	}
	db.mu.Lock()
	db.objects = removeObject(db.objects, o)
	if o.Account != nil {
		db.players = removeObject(db.players, o)
	}
	db.mu.Unlock()
	for k, v := range db.Named {
		if v == o {
			delete(db.Named, k)
		}
	}
	logger.Log.WithField("ref", o.Ref).Infof("destroyed %s", o)
}

// Clear destroys every object.
func (db *Database) Clear() {
	for {
		objs := db.Objects()
		if len(objs) == 0 {
			return
		}
		objs[0].Destroy()
	}
}

func removeObject(list []*Object, o *Object) []*Object {
	for i, obj := range list {
		if obj == o {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
