package params

import (
	"iter"
	"slices"

	"github.com/gofhir/fhir/r4"
)

// Map is an ordered string-keyed map of operation parameters.
// Keys are unique and iterate in insertion order. A nil *Map reads as empty.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Set stores value under key and returns m for chaining. Setting an existing
// key replaces its value and keeps its position.
func (m *Map) Set(key string, value any) *Map {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return m
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// All iterates over the entries in insertion order.
func (m *Map) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Bool returns the boolean stored under key.
func (m *Map) Bool(key string) (bool, bool) {
	v, ok := m.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// String returns the string stored under key. Primitive values such as
// codes and uris are returned in their lexical form.
func (m *Map) String(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case Primitive:
		return s.Text, true
	}
	return "", false
}

// Int returns the integer stored under key.
func (m *Map) Int(key string) (int, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// Coding returns the Coding stored under key.
func (m *Map) Coding(key string) (r4.Coding, bool) {
	v, ok := m.Get(key)
	if !ok {
		return r4.Coding{}, false
	}
	switch c := v.(type) {
	case r4.Coding:
		return c, true
	case *r4.Coding:
		if c != nil {
			return *c, true
		}
	}
	return r4.Coding{}, false
}

// Part returns the nested parameters stored under key.
func (m *Map) Part(key string) (*Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Map)
	return p, ok && p != nil
}
