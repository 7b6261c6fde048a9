package dynamic

// Map is the value stored for a map field. It remembers the order in which
// keys were first inserted: iteration and binary encoding visit entries in
// that order, so a decode/encode round trip does not shuffle entries.
// Overwriting an existing key keeps its original position.
//
// Keys are the valid map-key scalars (bool, int32, int64, uint32, uint64,
// string). Values follow the same representation as singular field values.
//
// A Map is not safe for concurrent mutation, same as the message holding it.
type Map struct {
	keys    []interface{}
	entries map[interface{}]interface{}
}

// NewMap returns an empty map value.
func NewMap() *Map {
	return &Map{entries: map[interface{}]interface{}{}}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Get returns the value for the given key and whether the key is present.
func (m *Map) Get(key interface{}) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.entries[key]
	return v, ok
}

// Put stores the value under the given key. An existing key is overwritten
// in place and keeps its iteration position; a new key is appended.
func (m *Map) Put(key, val interface{}) {
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = val
}

// Delete removes the entry for the given key, if present.
func (m *Map) Delete(key interface{}) {
	if m == nil {
		return
	}
	if _, ok := m.entries[key]; !ok {
		return
	}
	delete(m.entries, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *Map) Range(fn func(key, val interface{}) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.entries[k]) {
			return
		}
	}
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (m *Map) Keys() []interface{} {
	if m == nil {
		return nil
	}
	return append([]interface{}(nil), m.keys...)
}

// clone returns a copy sharing no mutable state with the original except the
// values themselves.
func (m *Map) clone() *Map {
	if m == nil {
		return nil
	}
	c := &Map{
		keys:    append([]interface{}(nil), m.keys...),
		entries: make(map[interface{}]interface{}, len(m.entries)),
	}
	for k, v := range m.entries {
		c.entries[k] = v
	}
	return c
}
