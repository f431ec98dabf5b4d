package gamedb

import (
	"errors"
	"os"
	"testing"

	descrypt "github.com/digitive/crypt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/littlemud/littlemud/pkg/logger"
	"github.com/littlemud/littlemud/pkg/passwords"
)

func TestMain(m *testing.M) {
	passwords.Cost = bcrypt.MinCost
	logger.Discard()
	os.Exit(m.Run())
}

// fakeConn records output for a player.
type fakeConn struct {
	lines        []string
	disconnected bool
	readFn       func(string) error
}

func (c *fakeConn) Send(line string) { c.lines = append(c.lines, line) }
func (c *fakeConn) Disconnect()      { c.disconnected = true }
func (c *fakeConn) Read(fn func(string) error, prompt string) {
	c.readFn = fn
	if prompt != "" {
		c.Send(prompt)
	}
}
func (c *fakeConn) Host() string { return "127.0.0.1" }

func TestMoveIntoSelf(t *testing.T) {
	db := NewDatabase()
	for _, kind := range Kinds {
		a := db.New(kind, "a")
		var ce *ContainmentError
		require.ErrorAs(t, a.Move(a), &ce, "kind %s", kind)
		assert.Nil(t, a.Location)
	}
}

func TestMoveIntoAncestor(t *testing.T) {
	db := NewDatabase()
	room := db.NewRoom("Room")
	bag := db.NewThing("bag")
	coin := db.NewThing("coin")
	require.NoError(t, bag.Move(room))
	require.NoError(t, coin.Move(bag))

	// room is an ancestor of coin but not its current location.
	var ce *ContainmentError
	require.ErrorAs(t, coin.Move(room), &ce)
	assert.Same(t, bag, coin.Location)

	// Moving to the current location is a no-op.
	require.NoError(t, coin.Move(bag))
	assert.Equal(t, []*Object{coin}, bag.Contents)
}

func TestMoveIntoDescendant(t *testing.T) {
	db := NewDatabase()
	box := db.NewThing("box")
	inner := db.NewThing("inner")
	require.NoError(t, inner.Move(box))

	var ce *ContainmentError
	require.ErrorAs(t, box.Move(inner), &ce)
	assert.Nil(t, box.Location)
	assert.Empty(t, inner.Contents)
}

func TestMoveUpdatesContents(t *testing.T) {
	db := NewDatabase()
	a := db.NewRoom("A")
	b := db.NewRoom("B")
	thing := db.NewThing("thing")

	require.NoError(t, thing.Move(a))
	assert.Equal(t, []*Object{thing}, a.Contents)

	require.NoError(t, thing.Move(b))
	assert.Empty(t, a.Contents)
	assert.Equal(t, []*Object{thing}, b.Contents)

	require.NoError(t, thing.Move(nil))
	assert.Empty(t, b.Contents)
	assert.Nil(t, thing.Location)
}

func TestMoveExitDenied(t *testing.T) {
	db := NewDatabase()
	cell := db.NewRoom("Cell")
	yard := db.NewRoom("Yard")
	prisoner := db.NewMobile("prisoner")
	require.NoError(t, prisoner.Move(cell))

	cell.ExitHook = func(container, obj *Object) bool { return false }
	assert.ErrorIs(t, prisoner.Move(yard), ErrExitDenied)
	assert.Same(t, cell, prisoner.Location)
	assert.Equal(t, []*Object{prisoner}, cell.Contents)
	assert.Empty(t, yard.Contents)
}

func TestMoveEntryDeniedFallsBack(t *testing.T) {
	db := NewDatabase()
	hall := db.NewRoom("Hall")
	vault := db.NewRoom("Vault")
	thief := db.NewMobile("thief")
	require.NoError(t, thief.Move(hall))

	vault.EnterHook = func(container, obj *Object) bool { return false }
	assert.ErrorIs(t, thief.Move(vault), ErrEntryDenied)
	assert.Same(t, hall, thief.Location)
	assert.Equal(t, []*Object{thief}, hall.Contents)
	assert.Empty(t, vault.Contents)
}

func TestMoveEntryDeniedTwiceGoesNowhere(t *testing.T) {
	db := NewDatabase()
	hall := db.NewRoom("Hall")
	vault := db.NewRoom("Vault")
	ghost := db.NewMobile("ghost")
	require.NoError(t, ghost.Move(hall))

	deny := func(container, obj *Object) bool { return false }
	vault.EnterHook = deny
	hall.EnterHook = deny
	assert.ErrorIs(t, ghost.Move(vault), ErrEntryDenied)
	assert.Nil(t, ghost.Location)
	assert.Empty(t, hall.Contents)
	assert.Empty(t, vault.Contents)
}

func TestLocations(t *testing.T) {
	db := NewDatabase()
	zone := db.NewThing("outer")
	room := db.NewThing("middle")
	item := db.NewThing("inner")
	require.NoError(t, room.Move(zone))
	require.NoError(t, item.Move(room))

	var got []*Object
	for l := range item.Locations() {
		got = append(got, l)
	}
	assert.Equal(t, []*Object{room, zone}, got)
	assert.True(t, item.Within(zone))
	assert.False(t, zone.Within(item))
}

func TestLocationsBoundedOnCorruptChain(t *testing.T) {
	db := NewDatabase()
	a := db.NewThing("a")
	b := db.NewThing("b")
	a.Location = b
	b.Location = a

	n := 0
	for range a.Locations() {
		n++
	}
	assert.LessOrEqual(t, n, db.Len()+1)
}

func TestDestroyRoomEvictsContents(t *testing.T) {
	db := NewDatabase()
	room := db.NewRoom("Doomed")
	a := db.NewMobile("a")
	b := db.NewThing("b")
	require.NoError(t, a.Move(room))
	require.NoError(t, b.Move(room))

	room.Destroy()
	assert.Nil(t, a.Location)
	assert.Nil(t, b.Location)
	assert.Empty(t, room.Contents)
	assert.Equal(t, -1, db.Index(room))
	assert.Equal(t, 2, db.Len())

	room.Destroy()
	assert.Equal(t, 2, db.Len())
}

func TestDestroyRemovesFromLocationAndPlayers(t *testing.T) {
	db := NewDatabase()
	room := db.NewRoom("Room")
	p, err := db.NewPlayer("Alice", "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, p.Move(room))

	p.Destroy()
	assert.Empty(t, room.Contents)
	assert.Empty(t, db.Players())
	assert.True(t, p.Destroyed())
}

func TestClear(t *testing.T) {
	db := NewDatabase()
	room := db.NewRoom("Room")
	db.Named[StartRoomKey] = room
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, db.NewThing(name).Move(room))
	}
	_, err := db.NewPlayer("Alice", "alice", "pw")
	require.NoError(t, err)

	db.Clear()
	assert.Zero(t, db.Len())
	assert.Empty(t, db.Players())
	assert.Nil(t, db.StartRoom())
}

func TestFormatMessage(t *testing.T) {
	db := NewDatabase()
	room := db.NewRoom("Kitchen")
	sword := db.NewThing("sword")
	p, err := db.NewPlayer("Alice", "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, sword.Move(room))

	tests := []struct {
		name     string
		template string
		object   *Object
		location *Object
		player   *Object
		want     string
	}{
		{"all present", "{player_title} drops {name} in {location_title}.", sword, room, p, "Alice drops sword in [Kitchen]."},
		{"no player", "{player_name}/{player_title}", sword, room, nil, "noone/Noone"},
		{"no object", "{name}/{title}", nil, room, p, "nothing/Nothing"},
		{"no location", "{location_name}/{location_title}", sword, nil, p, "nowhere/Nowhere"},
		{"defaults", DefaultODropMsg, sword, room, p, "Alice drops sword."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMessage(tt.template, tt.object, tt.location, tt.player))
		})
	}

	assert.Equal(t, "You take sword.", sword.FormatMessage(sword.TakeMsg, p))
}

func TestDescriptionAndTitle(t *testing.T) {
	db := NewDatabase()
	thing := db.NewThing("rock")
	assert.Equal(t, NothingSpecial, thing.Description())
	thing.Desc = "A grey rock."
	assert.Equal(t, "A grey rock.", thing.Description())

	zone := db.NewZone("Town")
	room := db.NewRoom("Square")
	assert.Equal(t, "[Square]", room.Title())
	room.Room.Zone = zone
	assert.Equal(t, "[Town; Square]", room.Title())

	room.Desc = "Cobbles."
	room.Room.Light = false
	assert.Equal(t, "It is too dark to see.", room.Description())
}

func TestAuthenticate(t *testing.T) {
	db := NewDatabase()
	p, err := db.NewPlayer("Test", "test", "test123")
	require.NoError(t, err)

	assert.True(t, p.Authenticate("test", "test123"))
	assert.NotEqual(t, "test123", p.Account.Password)
	assert.False(t, p.Authenticate("test", "wrong"))
	assert.False(t, p.Authenticate("Test", "test123"))
}

func TestAuthenticateUpgradesLegacyDigest(t *testing.T) {
	db := NewDatabase()
	p, err := db.NewPlayer("Old", "old", "unused")
	require.NoError(t, err)
	legacy, err := descrypt.Crypt("hunter2", "ab")
	require.NoError(t, err)
	p.Account.Password = legacy

	assert.False(t, p.Authenticate("old", "wrong"))
	assert.Equal(t, legacy, p.Account.Password)

	require.True(t, p.Authenticate("old", "hunter2"))
	assert.False(t, passwords.NeedsRehash(p.Account.Password))
	assert.True(t, p.Authenticate("old", "hunter2"))
}

func TestFirstPlayerIsWizardAndOwner(t *testing.T) {
	db := NewDatabase()
	room := db.NewRoom("Room")
	first, err := db.NewPlayer("First", "first", "pw")
	require.NoError(t, err)
	second, err := db.NewPlayer("Second", "second", "pw")
	require.NoError(t, err)

	assert.Equal(t, Wizard, first.Access())
	assert.Equal(t, Normal, second.Access())
	assert.Same(t, first, room.EffectiveOwner())
	assert.Same(t, second, second.EffectiveOwner())
}

func TestNotifyAndAnnounce(t *testing.T) {
	db := NewDatabase()
	room := db.NewRoom("Room")
	alice, _ := db.NewPlayer("Alice", "alice", "pw")
	bob, _ := db.NewPlayer("Bob", "bob", "pw")
	carol, _ := db.NewPlayer("Carol", "carol", "pw")
	for _, p := range []*Object{alice, bob, carol} {
		require.NoError(t, p.Move(room))
	}
	ac, bc := &fakeConn{}, &fakeConn{}
	alice.Account.Conn = ac
	bob.Account.Conn = bc

	assert.False(t, carol.Notify("hello"))
	assert.False(t, room.Notify("hello"))

	room.Announce("Alice waves.", alice)
	assert.Empty(t, ac.lines)
	assert.Equal(t, []string{"Alice waves."}, bc.lines)

	room.AnnounceAll("Thunder.")
	assert.Equal(t, []string{"Thunder."}, ac.lines)

	assert.Equal(t, []*Object{alice, bob}, db.Connected())
}

func TestLook(t *testing.T) {
	db := NewDatabase()
	room := db.NewRoom("Hall")
	room.Desc = "A long hall."
	p, _ := db.NewPlayer("Alice", "alice", "pw")
	conn := &fakeConn{}
	p.Account.Conn = conn

	p.Look(nil)
	assert.Equal(t, []string{NothingSpecial}, conn.lines)

	require.NoError(t, p.Move(room))
	conn.lines = nil
	p.OnConnected()
	assert.Equal(t, []string{"[Hall]", "A long hall."}, conn.lines)
}

func TestExtras(t *testing.T) {
	db := NewDatabase()
	room := db.NewRoom("Hall")
	painting := room.AddExtra("painting", "A faded portrait.")
	assert.Equal(t, KindExtra, painting.Kind)
	assert.Equal(t, []*Object{painting}, room.Room.Extras)
	assert.Equal(t, 2, db.Len())

	room.RemoveExtra(painting)
	assert.Empty(t, room.Room.Extras)
	assert.Equal(t, 1, db.Len())
}

func TestHistory(t *testing.T) {
	var h History
	for _, l := range []string{"a", "b", "c", "d"} {
		h.Push(l, 3)
	}
	assert.Equal(t, []string{"b", "c", "d"}, h.Lines())
	last, ok := h.Back(0)
	assert.True(t, ok)
	assert.Equal(t, "d", last)
	prev, ok := h.Back(1)
	assert.True(t, ok)
	assert.Equal(t, "c", prev)
	_, ok = h.Back(3)
	assert.False(t, ok)

	h.Push("e", 0)
	assert.Zero(t, h.Len())
}

func TestMobileCurrentValues(t *testing.T) {
	db := NewDatabase()
	m := db.NewMobile("orc").Mobile
	assert.Equal(t, 5, m.CurrentHP())
	m.SetHP(3)
	assert.Equal(t, 3, m.CurrentHP())
	m.MaxHP = 10
	assert.Equal(t, 3, m.CurrentHP())
	m.SetHP(10)
	assert.Nil(t, m.HP)
	assert.Equal(t, 10, m.CurrentHP())
	assert.Equal(t, 5, m.CurrentEnd())
	assert.Equal(t, 5, m.CurrentAur())
	assert.Same(t, Neutral, m.Gender)
}

func TestMatch(t *testing.T) {
	db := NewDatabase()
	sword := db.NewThing("sword")
	shield := db.NewThing("shield")
	stone := db.NewThing("Stone")
	all := []*Object{sword, shield, stone}

	assert.Equal(t, []*Object{sword, shield, stone}, Match("s", all))
	assert.Equal(t, []*Object{shield}, Match("sh", all))
	assert.Equal(t, []*Object{stone}, Match("ST", all))
	assert.Equal(t, []*Object{shield}, Match("1.s", all))
	assert.Empty(t, Match("5.s", all))
	assert.Empty(t, Match("axe", all))
}

func TestAccessLevels(t *testing.T) {
	assert.True(t, Normal < Builder && Builder < Programmer && Programmer < Wizard)
	assert.False(t, AccessLevel(4).Valid())
	assert.False(t, AccessLevel(-1).Valid())
	lvl, err := ParseAccessLevel("Programmer")
	require.NoError(t, err)
	assert.Equal(t, Programmer, lvl)
	_, err = ParseAccessLevel("god")
	assert.Error(t, err)
}

func TestSchemaRejectsBadTypes(t *testing.T) {
	db := NewDatabase()
	p, _ := db.NewPlayer("Alice", "alice", "pw")
	s := SchemaFor(KindPlayer)

	f, ok := s.Property("level")
	require.True(t, ok)
	assert.Error(t, f.Set(p, "high"))
	require.NoError(t, f.Set(p, 7))
	assert.Equal(t, 7, p.Mobile.Level)

	f, ok = s.Property("access")
	require.True(t, ok)
	assert.Error(t, f.Set(p, 9))

	f, ok = s.ObjectProperty("location")
	require.True(t, ok)
	assert.Error(t, f.Set(p, 3))

	_, ok = SchemaFor(KindObject).Property("level")
	assert.False(t, ok)
}

func TestPermissionsError(t *testing.T) {
	db := NewDatabase()
	p := db.NewMobile("orc")
	err := error(&PermissionsError{Player: p, Action: "dig"})
	var pe *PermissionsError
	assert.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "dig")
}

func TestSchemaSetKeepsValueOnBadInput(t *testing.T) {
	db := NewDatabase()
	zone := db.NewZone("Zone")
	room := db.NewRoom("Room")
	room.Room.Zone = zone
	room.Room.DarkMsg = "Pitch black."
	room.Location = zone

	schema := SchemaFor(KindRoom)
	for name, bad := range map[string]any{
		"floor_type": "granite",
		"dark_msg":   42,
		"light":      "maybe",
		"name":       []any{"x"},
	} {
		f, ok := schema.Property(name)
		require.True(t, ok, name)
		assert.Error(t, f.Set(room, bad), name)
	}
	for name, bad := range map[string]any{"zone": "nope", "location": 7} {
		f, ok := schema.ObjectProperty(name)
		require.True(t, ok, name)
		assert.Error(t, f.Set(room, bad), name)
	}

	assert.Equal(t, 1, room.Room.FloorType)
	assert.Equal(t, "Pitch black.", room.Room.DarkMsg)
	assert.True(t, room.Room.Light)
	assert.Equal(t, "Room", room.Name)
	assert.Same(t, zone, room.Room.Zone)
	assert.Same(t, zone, room.Location)

	f, _ := schema.Property("floor_type")
	require.NoError(t, f.Set(room, 3))
	assert.Equal(t, 3, room.Room.FloorType)
}
