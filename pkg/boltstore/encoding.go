package boltstore

import (
	"fmt"

	"github.com/littlemud/littlemud/pkg/gamedb"
	"gopkg.in/yaml.v3"
)

// record is the stored form of one object.
type record struct {
	Kind             string         `yaml:"kind"`
	Properties       map[string]any `yaml:"properties"`
	ObjectProperties map[string]any `yaml:"object_properties"`
}

// encodeObject walks the kind's schema and replaces every object
// reference with its table index.
func encodeObject(obj *gamedb.Object, index map[*gamedb.Object]int) ([]byte, error) {
	schema := gamedb.SchemaFor(obj.Kind)
	rec := record{
		Kind:             string(obj.Kind),
		Properties:       make(map[string]any, len(schema.Properties)),
		ObjectProperties: make(map[string]any, len(schema.ObjectProperties)),
	}
	for _, f := range schema.Properties {
		rec.Properties[f.Name] = f.Get(obj)
	}
	for _, f := range schema.ObjectProperties {
		rec.ObjectProperties[f.Name] = dumpRefs(f.Get(obj), index)
	}
	return yaml.Marshal(&rec)
}

func decodeObject(data []byte) (*record, error) {
	var rec record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func encodeValue(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func decodeValue(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// dumpRefs rewrites objects as indices, recursing into lists and maps.
// References to objects that are no longer in the table become nil.
func dumpRefs(v any, index map[*gamedb.Object]int) any {
	switch x := v.(type) {
	case *gamedb.Object:
		if x == nil {
			return nil
		}
		if i, ok := index[x]; ok {
			return i
		}
		return nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = dumpRefs(item, index)
		}
		return out
	case []*gamedb.Object:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = dumpRefs(item, index)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = dumpRefs(item, index)
		}
		return out
	}
	return v
}

// loadRefs is the inverse of dumpRefs.
func loadRefs(v any, table []*gamedb.Object) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int:
		if x < 0 || x >= len(table) {
			return nil, fmt.Errorf("index %d out of range (%d objects)", x, len(table))
		}
		return table[x], nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			o, err := loadRefs(item, table)
			if err != nil {
				return nil, err
			}
			out[i] = o
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			o, err := loadRefs(item, table)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = o
		}
		return out, nil
	}
	return nil, fmt.Errorf("want object index, got %T(%v)", v, v)
}
