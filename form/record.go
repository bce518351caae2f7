package form

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/lvillar/docforge"
)

// Record is a submitted form: field values keyed by field id, kept in the
// order each key was first set. Overwriting a key keeps its position.
//
// The zero value is an empty record ready to use.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord returns a record holding values in the given order.
func NewRecord(values ...docforge.FormValue) *Record {
	r := &Record{}
	for _, v := range values {
		r.Set(v.ID, v.Value)
	}
	return r
}

// Set stores value under key.
func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of keys.
func (r *Record) Len() int {
	return len(r.keys)
}

// Values returns the record as an ordered slice of form values.
func (r *Record) Values() []docforge.FormValue {
	out := make([]docforge.FormValue, len(r.keys))
	for i, k := range r.keys {
		out[i] = docforge.FormValue{ID: k, Value: r.values[k]}
	}
	return out
}

// Clone returns an independent copy of r.
func (r *Record) Clone() *Record {
	return NewRecord(r.Values()...)
}

// MarshalJSON writes the record as a JSON object whose members follow
// insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object, keeping member order. Numbers and
// booleans are stored in their literal text form.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("form: record: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("form: record: expected object")
	}

	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("form: record: %w", err)
		}
		key, _ := tok.(string)

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("form: record %q: %w", key, err)
		}
		value, err := scalar(raw)
		if err != nil {
			return fmt.Errorf("form: record %q: %w", key, err)
		}
		r.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

// MarshalYAML writes the record as an ordered YAML mapping.
func (r *Record) MarshalYAML() (interface{}, error) {
	ms := make(yaml.MapSlice, len(r.keys))
	for i, k := range r.keys {
		ms[i] = yaml.MapItem{Key: k, Value: r.values[k]}
	}
	return ms, nil
}

// UnmarshalYAML reads a flat YAML mapping, keeping key order.
func (r *Record) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var ms yaml.MapSlice
	if err := unmarshal(&ms); err != nil {
		return err
	}

	*r = Record{}
	for _, item := range ms {
		key := fmt.Sprint(item.Key)
		value, err := scalar(item.Value)
		if err != nil {
			return fmt.Errorf("form: record %q: %w", key, err)
		}
		r.Set(key, value)
	}
	return nil
}

func scalar(v interface{}) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("value of type %T is not a scalar", v)
}
