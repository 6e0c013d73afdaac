// internal/domain/models/details.go
package models

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Details is the ordered key/value payload of a SecurityEvent. It is stored
// as an embedded document (so fields like details.email are queryable) and
// rendered as a JSON object in insertion order.
type Details []primitive.E

// Get returns the value stored under key.
func (d Details) Get(key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// String returns the value under key formatted as a string, or "" when absent.
func (d Details) String(key string) string {
	v, ok := d.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// MarshalBSONValue stores Details as an embedded document.
func (d Details) MarshalBSONValue() (bsontype.Type, []byte, error) {
	doc := bson.D(d)
	if doc == nil {
		doc = bson.D{}
	}
	return bson.MarshalValue(doc)
}

// UnmarshalBSONValue reads an embedded document back into Details.
func (d *Details) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*d = nil
		return nil
	}
	var doc bson.D
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&doc); err != nil {
		return err
	}
	*d = Details(doc)
	return nil
}

// MarshalJSON writes Details as a JSON object, keeping key order.
func (d Details) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(jsonValue(e.Value))
		if err != nil {
			return nil, fmt.Errorf("details[%s]: %w", e.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts any JSON object. Incoming objects carry no reliable
// key order, so keys are sorted to keep storage deterministic.
func (d *Details) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = DetailsFromMap(m)
	return nil
}

// DetailsFromMap converts a decoded JSON object into Details with sorted keys.
// Nested objects become nested Details.
func DetailsFromMap(m map[string]any) Details {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Details, 0, len(keys))
	for _, k := range keys {
		out = append(out, primitive.E{Key: k, Value: fromJSONValue(m[k])})
	}
	return out
}

func fromJSONValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return DetailsFromMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = fromJSONValue(t[i])
		}
		return out
	}
	return v
}

// jsonValue maps driver-decoded values onto their JSON rendering.
func jsonValue(v any) any {
	switch t := v.(type) {
	case primitive.D:
		return Details(t)
	case primitive.A:
		return jsonSlice(t)
	case []any:
		return jsonSlice(t)
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	}
	return v
}

func jsonSlice(in []any) []any {
	out := make([]any, len(in))
	for i := range in {
		out[i] = jsonValue(in[i])
	}
	return out
}
