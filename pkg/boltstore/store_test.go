package boltstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bbolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/logger"
	"github.com/littlemud/littlemud/pkg/passwords"
)

func TestMain(m *testing.M) {
	passwords.Cost = bcrypt.MinCost
	logger.Discard()
	os.Exit(m.Run())
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "world.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// populate builds a small world touching every kind and reference shape.
func populate(t *testing.T, db *gamedb.Database) {
	t.Helper()
	zone := db.NewZone("Town")
	zone.Zone.ResetInterval = 12.5

	square := db.NewRoom("Square")
	square.Desc = "A cobbled square."
	square.Room.Zone = zone
	square.Room.FloorType = 3
	square.AddExtra("fountain", "Water splashes.")
	db.Named[gamedb.StartRoomKey] = square

	alley := db.NewRoom("Alley")
	alley.Room.Light = false
	square.Room.Exits = []*gamedb.Object{alley}
	alley.Room.Entrances = []*gamedb.Object{square}

	p, err := db.NewPlayer("Alice", "alice", "secret")
	require.NoError(t, err)
	require.NoError(t, p.Move(square))
	p.Mobile.Gender = gamedb.Female
	p.Mobile.SetHP(3)
	p.Mobile.Skills["swimming"] = 4
	p.Account.LastConnectedHost = "example.org"

	hat := db.NewThing("hat")
	require.NoError(t, hat.Move(p))
	p.Mobile.Wearing["on head"] = hat

	orc := db.NewMobile("orc")
	orc.Mobile.Level = 4
	require.NoError(t, orc.Move(alley))

	db.Settings.Set("server_name", "Round Trip")
	db.Settings.Set("banned_hosts", []string{"10.1.1.1"})
}

// snapshot renders every object through its schema with references as
// table indices, so two worlds can be compared structurally.
func snapshot(db *gamedb.Database) []map[string]any {
	objects := db.Objects()
	index := make(map[*gamedb.Object]int, len(objects))
	for i, o := range objects {
		index[o] = i
	}
	var out []map[string]any
	for _, o := range objects {
		schema := gamedb.SchemaFor(o.Kind)
		m := map[string]any{"kind": o.Kind}
		for _, f := range schema.Properties {
			m[f.Name] = f.Get(o)
		}
		for _, f := range schema.ObjectProperties {
			m["@"+f.Name] = dumpRefs(f.Get(o), index)
		}
		out = append(out, m)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	s := openTemp(t)
	src := gamedb.NewDatabase()
	populate(t, src)

	n, err := s.Dump(src)
	require.NoError(t, err)
	assert.Equal(t, src.Len(), n)

	dst := gamedb.NewDatabase()
	loaded, err := s.Load(dst)
	require.NoError(t, err)
	assert.Equal(t, n, loaded)
	assert.Equal(t, src.Len(), dst.Len())
	assert.Equal(t, snapshot(src), snapshot(dst))

	assert.Equal(t, "Round Trip", dst.Settings.GetString("server_name"))
	assert.Equal(t, []string{"10.1.1.1"}, dst.Settings.GetStrings("banned_hosts"))
	require.NotNil(t, dst.StartRoom())
	assert.Equal(t, "Square", dst.StartRoom().Name)

	alice := dst.PlayerByUID("alice")
	require.NotNil(t, alice)
	assert.True(t, alice.Authenticate("alice", "secret"))
	assert.Equal(t, gamedb.Wizard, alice.Access())
	assert.Same(t, dst.StartRoom(), alice.Location)
	assert.Contains(t, dst.StartRoom().Contents, alice)
	assert.Equal(t, "hat", alice.Mobile.Wearing["on head"].Name)
	assert.Equal(t, 3, alice.Mobile.CurrentHP())
	assert.Same(t, gamedb.Female, alice.Mobile.Gender)
	assert.Equal(t, "[Town; Square]", dst.StartRoom().Title())
}

func TestLoadEmptySynthesizesStartRoom(t *testing.T) {
	s := openTemp(t)
	db := gamedb.NewDatabase()
	n, err := s.Load(db)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NotNil(t, db.StartRoom())
	assert.Equal(t, StartRoomName, db.StartRoom().Name)
	assert.Equal(t, 1, db.Len())
}

func TestDumpReplacesPrevious(t *testing.T) {
	s := openTemp(t)
	db := gamedb.NewDatabase()
	populate(t, db)
	_, err := s.Dump(db)
	require.NoError(t, err)

	small := gamedb.NewDatabase()
	small.NewThing("only")
	_, err = s.Dump(small)
	require.NoError(t, err)

	out := gamedb.NewDatabase()
	n, err := s.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "only", out.Objects()[0].Name)
}

func TestLoadSkipsBadFields(t *testing.T) {
	s := openTemp(t)
	room := record{
		Kind: "room",
		Properties: map[string]any{
			"name":        "Good Room",
			"floor_type":  "granite",
			"renamed_old": true,
		},
		ObjectProperties: map[string]any{
			"contents": []any{1},
			"zone":     99,
		},
	}
	thing := record{
		Kind:             "thing-that-no-longer-exists",
		Properties:       map[string]any{"name": "relic"},
		ObjectProperties: map[string]any{"location": 0},
	}
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		for i, rec := range []record{room, thing} {
			data, err := yaml.Marshal(&rec)
			if err != nil {
				return err
			}
			if err := b.Put(indexToKey(i), data); err != nil {
				return err
			}
		}
		return b.Put(indexToKey(2), []byte("{{{ not yaml"))
	})
	require.NoError(t, err)

	db := gamedb.NewDatabase()
	n, err := s.Load(db)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	objs := db.Objects()
	assert.Equal(t, "Good Room", objs[0].Name)
	assert.Equal(t, 1, objs[0].Room.FloorType)
	assert.Nil(t, objs[0].Room.Zone)
	assert.Equal(t, gamedb.KindObject, objs[1].Kind)
	assert.Equal(t, "relic", objs[1].Name)
	assert.Same(t, objs[0], objs[1].Location)
	assert.Equal(t, []*gamedb.Object{objs[1]}, objs[0].Contents)
}

func TestLoadRepairsContainment(t *testing.T) {
	s := openTemp(t)
	db := gamedb.NewDatabase()
	room := db.NewRoom("Room")
	item := db.NewThing("item")
	require.NoError(t, item.Move(room))
	// Forget the item in the room's list.
	room.Contents = nil
	_, err := s.Dump(db)
	require.NoError(t, err)

	out := gamedb.NewDatabase()
	_, err = s.Load(out)
	require.NoError(t, err)
	objs := out.Objects()
	assert.Equal(t, []*gamedb.Object{objs[1]}, objs[0].Contents)
}

func TestBackupRestore(t *testing.T) {
	s := openTemp(t)
	db := gamedb.NewDatabase()
	populate(t, db)
	_, err := s.Dump(db)
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := s.Backup(dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, BackupExt, filepath.Ext(path))

	restored := filepath.Join(dir, "restored.db")
	require.NoError(t, Restore(path, restored))
	assert.Error(t, Restore(path, restored), "restore must not overwrite")

	s2, err := Open(restored)
	require.NoError(t, err)
	defer s2.Close()
	out := gamedb.NewDatabase()
	n, err := s2.Load(out)
	require.NoError(t, err)
	assert.Equal(t, db.Len(), n)
	assert.Equal(t, snapshot(db), snapshot(out))
}
