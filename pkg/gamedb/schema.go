package gamedb

import (
	"fmt"
	"time"
)

// Field is one persisted attribute of an object kind.
//
// For scalar properties Get returns plain values (strings, numbers, bools,
// maps of numbers). For object properties Get returns a tree made of
// *Object leaves, []any and map[string]any; Set receives the same shape.
type Field struct {
	Name string
	Get  func(o *Object) any
	Set  func(o *Object, v any) error
}

// Schema is the ordered persisted shape of one kind.
type Schema struct {
	Properties       []Field
	ObjectProperties []Field
}

// Property looks up a scalar field by name.
func (s Schema) Property(name string) (Field, bool) { return find(s.Properties, name) }

// ObjectProperty looks up an object-valued field by name.
func (s Schema) ObjectProperty(name string) (Field, bool) { return find(s.ObjectProperties, name) }

func find(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// SchemaFor returns the persisted fields of kind.
func SchemaFor(kind Kind) Schema {
	s := Schema{
		Properties:       append([]Field(nil), baseProperties...),
		ObjectProperties: append([]Field(nil), baseObjectProperties...),
	}
	switch kind {
	case KindMobile:
		s.Properties = append(s.Properties, mobileProperties...)
		s.ObjectProperties = append(s.ObjectProperties, mobileObjectProperties...)
	case KindPlayer:
		s.Properties = append(s.Properties, mobileProperties...)
		s.Properties = append(s.Properties, playerProperties...)
		s.ObjectProperties = append(s.ObjectProperties, mobileObjectProperties...)
	case KindRoom:
		s.Properties = append(s.Properties, roomProperties...)
		s.ObjectProperties = append(s.ObjectProperties, roomObjectProperties...)
	case KindZone:
		s.Properties = append(s.Properties, zoneProperties...)
	}
	return s
}

var baseProperties = []Field{
	stringField("name", func(o *Object) *string { return &o.Name }),
	stringField("description", func(o *Object) *string { return &o.Desc }),
	stringField("help", func(o *Object) *string { return &o.Help }),
	stringField("drop_msg", func(o *Object) *string { return &o.DropMsg }),
	stringField("take_msg", func(o *Object) *string { return &o.TakeMsg }),
	stringField("odrop_msg", func(o *Object) *string { return &o.ODropMsg }),
	stringField("otake_msg", func(o *Object) *string { return &o.OTakeMsg }),
}

var baseObjectProperties = []Field{
	{
		Name: "location",
		Get:  func(o *Object) any { return refOrNil(o.Location) },
		Set: func(o *Object, v any) error {
			return assign(&o.Location, toObject, v)
		},
	},
	{
		Name: "contents",
		Get:  func(o *Object) any { return objectList(o.Contents) },
		Set: func(o *Object, v any) error {
			return assign(&o.Contents, toObjects, v)
		},
	},
	{
		Name: "owner",
		Get:  func(o *Object) any { return o.EffectiveOwner() },
		Set: func(o *Object, v any) error {
			owner, err := toObject(v)
			if err != nil {
				return err
			}
			if owner == o {
				owner = nil
			}
			o.Owner = owner
			return nil
		},
	},
}

var mobileProperties = []Field{
	mobileBool("blind", func(m *MobileStats) *bool { return &m.Blind }),
	{
		Name: "speed",
		Get:  func(o *Object) any { return o.Mobile.Speed },
		Set: func(o *Object, v any) error {
			return assign(&o.Mobile.Speed, asFloat, v)
		},
	},
	mobileInt("level", func(m *MobileStats) *int { return &m.Level }),
	mobileInt("experience", func(m *MobileStats) *int { return &m.Experience }),
	mobileInt("max_hp", func(m *MobileStats) *int { return &m.MaxHP }),
	mobileOptInt("hp", func(m *MobileStats) **int { return &m.HP }),
	mobileInt("con", func(m *MobileStats) *int { return &m.Con }),
	mobileInt("str", func(m *MobileStats) *int { return &m.Str }),
	mobileInt("dex", func(m *MobileStats) *int { return &m.Dex }),
	mobileInt("mag", func(m *MobileStats) *int { return &m.Mag }),
	mobileInt("bra", func(m *MobileStats) *int { return &m.Bra }),
	mobileInt("max_aur", func(m *MobileStats) *int { return &m.MaxAur }),
	mobileOptInt("aur", func(m *MobileStats) **int { return &m.Aur }),
	mobileInt("max_end", func(m *MobileStats) *int { return &m.MaxEnd }),
	mobileOptInt("end", func(m *MobileStats) **int { return &m.End }),
	mobileInt("res", func(m *MobileStats) *int { return &m.Res }),
	{
		Name: "gender",
		Get:  func(o *Object) any { return o.Mobile.Gender.Sex },
		Set: func(o *Object, v any) error {
			s, err := asString(v)
			if err != nil {
				return err
			}
			g, ok := GenderBySex(s)
			if !ok {
				return fmt.Errorf("unknown gender %q", s)
			}
			o.Mobile.Gender = g
			return nil
		},
	},
	mobileIntMap("skills", func(m *MobileStats) *map[string]int { return &m.Skills }),
	mobileIntMap("spells", func(m *MobileStats) *map[string]int { return &m.Spells }),
}

var mobileObjectProperties = []Field{
	{
		Name: "wearing",
		Get: func(o *Object) any {
			out := make(map[string]any, len(o.Mobile.Wearing))
			for slot, item := range o.Mobile.Wearing {
				out[slot] = refOrNil(item)
			}
			return out
		},
		Set: func(o *Object, v any) error {
			m, ok := v.(map[string]any)
			if !ok && v != nil {
				return fmt.Errorf("want mapping, got %T", v)
			}
			wearing := make(map[string]*Object, len(m))
			for slot, raw := range m {
				item, err := toObject(raw)
				if err != nil {
					return fmt.Errorf("slot %s: %w", slot, err)
				}
				wearing[slot] = item
			}
			o.Mobile.Wearing = wearing
			return nil
		},
	},
}

var playerProperties = []Field{
	accountString("uid", func(a *AccountInfo) *string { return &a.UID }),
	accountString("password", func(a *AccountInfo) *string { return &a.Password }),
	{
		Name: "banned",
		Get:  func(o *Object) any { return o.Account.Banned },
		Set: func(o *Object, v any) error {
			return assign(&o.Account.Banned, asBool, v)
		},
	},
	{
		Name: "last_connected_time",
		Get: func(o *Object) any {
			if o.Account.LastConnectedTime.IsZero() {
				return nil
			}
			return o.Account.LastConnectedTime.UTC().Format(time.RFC3339)
		},
		Set: func(o *Object, v any) error {
			return assign(&o.Account.LastConnectedTime, asTime, v)
		},
	},
	accountString("last_connected_host", func(a *AccountInfo) *string { return &a.LastConnectedHost }),
	{
		Name: "access",
		Get:  func(o *Object) any { return int(o.Account.Access) },
		Set: func(o *Object, v any) error {
			n, err := asInt(v)
			if err != nil {
				return err
			}
			if !AccessLevel(n).Valid() {
				return fmt.Errorf("invalid access level %d", n)
			}
			o.Account.Access = AccessLevel(n)
			return nil
		},
	},
}

var roomProperties = []Field{
	roomBool("safe", func(r *RoomInfo) *bool { return &r.Safe }),
	roomBool("light", func(r *RoomInfo) *bool { return &r.Light }),
	{
		Name: "floor_type",
		Get:  func(o *Object) any { return o.Room.FloorType },
		Set: func(o *Object, v any) error {
			return assign(&o.Room.FloorType, asInt, v)
		},
	},
	{
		Name: "dark_msg",
		Get:  func(o *Object) any { return o.Room.DarkMsg },
		Set: func(o *Object, v any) error {
			return assign(&o.Room.DarkMsg, asString, v)
		},
	},
}

var roomObjectProperties = []Field{
	roomList("exits", func(r *RoomInfo) *[]*Object { return &r.Exits }),
	roomList("entrances", func(r *RoomInfo) *[]*Object { return &r.Entrances }),
	roomList("extras", func(r *RoomInfo) *[]*Object { return &r.Extras }),
	{
		Name: "zone",
		Get:  func(o *Object) any { return refOrNil(o.Room.Zone) },
		Set: func(o *Object, v any) error {
			return assign(&o.Room.Zone, toObject, v)
		},
	},
}

var zoneProperties = []Field{
	{
		Name: "reset_interval",
		Get:  func(o *Object) any { return o.Zone.ResetInterval },
		Set: func(o *Object, v any) error {
			return assign(&o.Zone.ResetInterval, asFloat, v)
		},
	},
	{
		Name: "last_reset",
		Get: func(o *Object) any {
			if o.Zone.LastReset.IsZero() {
				return nil
			}
			return o.Zone.LastReset.UTC().Format(time.RFC3339)
		},
		Set: func(o *Object, v any) error {
			return assign(&o.Zone.LastReset, asTime, v)
		},
	},
}

func stringField(name string, ptr func(*Object) *string) Field {
	return Field{
		Name: name,
		Get:  func(o *Object) any { return *ptr(o) },
		Set: func(o *Object, v any) error {
			return assign(ptr(o), asString, v)
		},
	}
}

func accountString(name string, ptr func(*AccountInfo) *string) Field {
	return stringField(name, func(o *Object) *string { return ptr(o.Account) })
}

func mobileBool(name string, ptr func(*MobileStats) *bool) Field {
	return Field{
		Name: name,
		Get:  func(o *Object) any { return *ptr(o.Mobile) },
		Set: func(o *Object, v any) error {
			return assign(ptr(o.Mobile), asBool, v)
		},
	}
}

func mobileInt(name string, ptr func(*MobileStats) *int) Field {
	return Field{
		Name: name,
		Get:  func(o *Object) any { return *ptr(o.Mobile) },
		Set: func(o *Object, v any) error {
			return assign(ptr(o.Mobile), asInt, v)
		},
	}
}

func mobileOptInt(name string, ptr func(*MobileStats) **int) Field {
	return Field{
		Name: name,
		Get: func(o *Object) any {
			if p := *ptr(o.Mobile); p != nil {
				return *p
			}
			return nil
		},
		Set: func(o *Object, v any) error {
			if v == nil {
				*ptr(o.Mobile) = nil
				return nil
			}
			n, err := asInt(v)
			if err != nil {
				return err
			}
			*ptr(o.Mobile) = &n
			return nil
		},
	}
}

func mobileIntMap(name string, ptr func(*MobileStats) *map[string]int) Field {
	return Field{
		Name: name,
		Get: func(o *Object) any {
			out := make(map[string]any, len(*ptr(o.Mobile)))
			for k, n := range *ptr(o.Mobile) {
				out[k] = n
			}
			return out
		},
		Set: func(o *Object, v any) error {
			m, ok := v.(map[string]any)
			if !ok && v != nil {
				return fmt.Errorf("want mapping, got %T", v)
			}
			out := make(map[string]int, len(m))
			for k, raw := range m {
				n, err := asInt(raw)
				if err != nil {
					return fmt.Errorf("%s: %w", k, err)
				}
				out[k] = n
			}
			*ptr(o.Mobile) = out
			return nil
		},
	}
}

func roomBool(name string, ptr func(*RoomInfo) *bool) Field {
	return Field{
		Name: name,
		Get:  func(o *Object) any { return *ptr(o.Room) },
		Set: func(o *Object, v any) error {
			return assign(ptr(o.Room), asBool, v)
		},
	}
}

func roomList(name string, ptr func(*RoomInfo) *[]*Object) Field {
	return Field{
		Name: name,
		Get:  func(o *Object) any { return objectList(*ptr(o.Room)) },
		Set: func(o *Object, v any) error {
			list, err := toObjects(v)
			if err != nil {
				return err
			}
			*ptr(o.Room) = list
			return nil
		},
	}
}

// assign stores the converted value only when conversion succeeds, so a
// bad persisted value leaves the field as it was.
func assign[T any](dst *T, conv func(any) (T, error), v any) error {
	x, err := conv(v)
	if err != nil {
		return err
	}
	*dst = x
	return nil
}

// refOrNil keeps a nil *Object from turning into a typed nil inside any.
func refOrNil(o *Object) any {
	if o == nil {
		return nil
	}
	return o
}

func objectList(list []*Object) []any {
	out := make([]any, len(list))
	for i, o := range list {
		out[i] = refOrNil(o)
	}
	return out
}

func toObject(v any) (*Object, error) {
	switch o := v.(type) {
	case nil:
		return nil, nil
	case *Object:
		return o, nil
	}
	return nil, fmt.Errorf("want object reference, got %T", v)
}

func toObjects(v any) ([]*Object, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []*Object:
		return l, nil
	case []any:
		out := make([]*Object, 0, len(l))
		for i, item := range l {
			o, err := toObject(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			if o != nil {
				out = append(out, o)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("want list of object references, got %T", v)
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	}
	return "", fmt.Errorf("want string, got %T", v)
}

func asBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("want bool, got %T", v)
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("want integer, got %T(%v)", v, v)
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("want number, got %T", v)
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339, t)
	}
	return time.Time{}, fmt.Errorf("want timestamp, got %T", v)
}
