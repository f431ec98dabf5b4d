// Package boltstore persists the whole world into a single bbolt file.
package boltstore

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/logger"
	"github.com/littlemud/littlemud/pkg/validate"
	"github.com/sirupsen/logrus"
	bbolt "go.etcd.io/bbolt"
)

// StartRoomName is the name given to a synthesized starting room.
const StartRoomName = "The First Room"

// Store wraps the bbolt file holding a world dump.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates a dump file and ensures all buckets exist. A new
// file is a valid empty dump.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// Dump replaces the stored world with db in a single transaction. Either
// the whole dump is committed or the previous one is left untouched.
// It returns the number of objects written.
func (s *Store) Dump(db *gamedb.Database) (int, error) {
	objects := db.Objects()
	index := make(map[*gamedb.Object]int, len(objects))
	for i, o := range objects {
		index[o] = i
	}

	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}

		b := tx.Bucket(bucketObjects)
		for i, obj := range objects {
			data, err := encodeObject(obj, index)
			if err != nil {
				return fmt.Errorf("encode %s: %w", obj, err)
			}
			if err := b.Put(indexToKey(i), data); err != nil {
				return err
			}
		}

		b = tx.Bucket(bucketServerConfig)
		for key, value := range db.Settings.Snapshot() {
			data, err := encodeValue(value)
			if err != nil {
				return fmt.Errorf("encode setting %s: %w", key, err)
			}
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}

		b = tx.Bucket(bucketObjectsConfig)
		for name, obj := range db.Named {
			data, err := encodeValue(dumpRefs(obj, index))
			if err != nil {
				return fmt.Errorf("encode named object %s: %w", name, err)
			}
			if err := b.Put([]byte(name), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("boltstore: dump: %w", err)
	}
	logger.Log.WithField("path", s.Path()).Infof("dumped %d object%s", len(objects), plural(len(objects)))
	return len(objects), nil
}

type pending struct {
	obj *gamedb.Object
	rec *record
}

// Load replaces the contents of db with the stored world.
//
// Every record is first turned into a bare object of its kind so that all
// indices resolve; properties are applied in a second pass. A property
// that cannot be applied is logged and skipped. A starting room is
// created when the dump does not name one, and containment problems found
// afterwards are repaired. It returns the number of objects loaded.
func (s *Store) Load(db *gamedb.Database) (int, error) {
	db.Clear()
	db.Settings.Reset()
	clear(db.Named)

	var (
		loaded []pending
		table  []*gamedb.Object
		named  = map[string]any{}
	)
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketObjects).ForEach(func(k, v []byte) error {
			i := keyToIndex(k)
			rec, err := decodeObject(v)
			if err != nil {
				logger.Log.WithError(err).Errorf("boltstore: record %d is unreadable, loading an empty object in its place", i)
				rec = &record{Kind: string(gamedb.KindObject)}
			}
			kind, err := gamedb.ParseKind(rec.Kind)
			if err != nil {
				logger.Log.WithError(err).Errorf("boltstore: record %d", i)
				kind = gamedb.KindObject
			}
			obj := db.New(kind, "")
			table = append(table, obj)
			loaded = append(loaded, pending{obj: obj, rec: rec})
			return nil
		})
		if err != nil {
			return err
		}

		settings := map[string]any{}
		err = tx.Bucket(bucketServerConfig).ForEach(func(k, v []byte) error {
			value, err := decodeValue(v)
			if err != nil {
				logger.Log.WithError(err).Warnf("boltstore: setting %s is unreadable", k)
				return nil
			}
			settings[string(k)] = value
			return nil
		})
		if err != nil {
			return err
		}
		db.Settings.Merge(settings)

		return tx.Bucket(bucketObjectsConfig).ForEach(func(k, v []byte) error {
			value, err := decodeValue(v)
			if err != nil {
				logger.Log.WithError(err).Warnf("boltstore: named object %s is unreadable", k)
				return nil
			}
			named[string(k)] = value
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("boltstore: load: %w", err)
	}

	for i, p := range loaded {
		apply(i, p, table)
	}

	for name, raw := range named {
		v, err := loadRefs(raw, table)
		if err != nil {
			logger.Log.WithError(err).Warnf("boltstore: named object %s", name)
			continue
		}
		obj, ok := v.(*gamedb.Object)
		if !ok {
			logger.Log.Warnf("boltstore: named object %s does not refer to an object", name)
			continue
		}
		db.Named[name] = obj
	}

	if db.StartRoom() == nil {
		logger.Log.Info("creating start room")
		db.Named[gamedb.StartRoomKey] = db.NewRoom(StartRoomName)
	} else {
		logger.Log.Infof("start room: %s", db.StartRoom())
	}

	findings := validate.Run(db, &validate.IntegrityChecker{})
	for _, f := range findings {
		logger.Log.WithField("finding", f.ID).Warn(f.String())
	}
	if n := validate.Fix(findings); n > 0 {
		logger.Log.Warnf("boltstore: repaired %d containment problem%s", n, plural(n))
	}

	logger.Log.WithField("path", s.Path()).Infof("loaded %d object%s", len(loaded), plural(len(loaded)))
	return len(loaded), nil
}

func apply(i int, p pending, table []*gamedb.Object) {
	schema := gamedb.SchemaFor(p.obj.Kind)
	log := logger.Log.WithFields(logrus.Fields{"index": i, "kind": p.obj.Kind})

	for _, name := range slices.Sorted(maps.Keys(p.rec.Properties)) {
		f, ok := schema.Property(name)
		if !ok {
			log.Warnf("boltstore: unknown property %s", name)
			continue
		}
		if err := f.Set(p.obj, p.rec.Properties[name]); err != nil {
			log.WithError(err).Warnf("boltstore: could not set property %s", name)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(p.rec.ObjectProperties)) {
		f, ok := schema.ObjectProperty(name)
		if !ok {
			log.Warnf("boltstore: unknown object property %s", name)
			continue
		}
		v, err := loadRefs(p.rec.ObjectProperties[name], table)
		if err == nil {
			err = f.Set(p.obj, v)
		}
		if err != nil {
			log.WithError(err).Warnf("boltstore: could not set object property %s", name)
		}
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
