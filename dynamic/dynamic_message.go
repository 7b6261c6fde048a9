package dynamic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-reflect"

	"github.com/slientgoat/prost-reflect/desc"
	dpb "google.golang.org/protobuf/types/descriptorpb"
)

// Message is a message value whose type is known only at runtime, described
// by a *desc.MessageDescriptor instead of generated code.
//
// Field values are stored dynamically and checked against the field's kind
// at every boundary:
//
//	proto kind              Go value
//	int32, sint32, sfixed32 int32
//	int64, sint64, sfixed64 int64
//	uint32, fixed32         uint32
//	uint64, fixed64         uint64
//	float                   float32
//	double                  float64
//	bool                    bool
//	string                  string
//	bytes                   []byte
//	enum                    int32
//	message, group          *Message
//	repeated <any>          []interface{}
//	map<K,V>                *Map
//
// Every accessor comes in two forms: the plain form panics when given a
// field of the wrong message type or a value of the wrong kind (programmer
// errors), and the Try form returns those as errors instead. Bytes decoded
// from the wire never cause a panic in either form.
//
// A Message is not safe for concurrent use. Distinct instances are fully
// independent and may be used in parallel, even when they share a
// descriptor pool.
type Message struct {
	md            *desc.MessageDescriptor
	er            *ExtensionRegistry
	extraFields   map[int32]*desc.FieldDescriptor
	values        map[int32]interface{}
	unknownFields []UnknownField
}

// UnknownField represents a field encountered during decoding whose tag
// number the descriptor (and extension registry, if any) does not know.
// The raw data is retained so that re-encoding the message reproduces it.
type UnknownField struct {
	// Number is the field's tag number.
	Number int32
	// Encoding is the wire type with which the field was encoded. If it is
	// codec.WireBytes or codec.WireStartGroup then Contents holds the raw
	// data. If it is codec.WireFixed32 then the data is in the least
	// significant 32 bits of Value. Otherwise the data is in all 64 bits of
	// Value.
	Encoding int8
	Contents []byte
	Value    uint64
}

// NewMessage returns an empty message of the given type.
func NewMessage(md *desc.MessageDescriptor) *Message {
	return NewMessageWithExtensionRegistry(md, nil)
}

// NewMessageWithExtensionRegistry returns an empty message of the given type.
// During decoding, unknown tag numbers are looked up in the given registry
// before being retained as unknown fields, and messages created for nested
// fields inherit the registry.
func NewMessageWithExtensionRegistry(md *desc.MessageDescriptor, er *ExtensionRegistry) *Message {
	return &Message{md: md, er: er}
}

// GetMessageDescriptor returns the descriptor this message is bound to.
func (m *Message) GetMessageDescriptor() *desc.MessageDescriptor {
	return m.md
}

// GetKnownFields returns the fields this message knows about: the fields of
// its type plus any extensions that have been set or decoded.
func (m *Message) GetKnownFields() []*desc.FieldDescriptor {
	if len(m.extraFields) == 0 {
		return m.md.GetFields()
	}
	flds := make([]*desc.FieldDescriptor, 0, len(m.md.GetFields())+len(m.extraFields))
	flds = append(flds, m.md.GetFields()...)
	extraTags := make([]int, 0, len(m.extraFields))
	for tag := range m.extraFields {
		extraTags = append(extraTags, int(tag))
	}
	sort.Ints(extraTags)
	for _, tag := range extraTags {
		flds = append(flds, m.extraFields[int32(tag)])
	}
	return flds
}

// GetUnknownFields returns the tag numbers for which unknown data is
// retained, in order of first appearance in the decoded input.
func (m *Message) GetUnknownFields() []int32 {
	var tags []int32
	seen := map[int32]bool{}
	for _, u := range m.unknownFields {
		if !seen[u.Number] {
			seen[u.Number] = true
			tags = append(tags, u.Number)
		}
	}
	return tags
}

// GetUnknownField returns the retained unknown data for the given tag
// number, in the order it appeared in the decoded input, or nil if there is
// none.
func (m *Message) GetUnknownField(tagNumber int32) []UnknownField {
	var ret []UnknownField
	for _, u := range m.unknownFields {
		if u.Number == tagNumber {
			ret = append(ret, u)
		}
	}
	return ret
}

// FindFieldDescriptor returns the descriptor for the given tag number: a
// field of this message's type, a registered extension, or an extension
// already present in the message. Returns nil if the tag is not known.
func (m *Message) FindFieldDescriptor(tagNumber int32) *desc.FieldDescriptor {
	if fd := m.md.FindFieldByNumber(tagNumber); fd != nil {
		return fd
	}
	if fd := m.er.FindExtension(m.md.GetFullyQualifiedName(), tagNumber); fd != nil {
		return fd
	}
	return m.extraFields[tagNumber]
}

// FindFieldDescriptorByName returns the descriptor for the given name. For
// extensions, the fully-qualified extension name is expected, optionally
// enclosed in parentheses or brackets: "(foo.bar)" and "[foo.bar]" are
// accepted alongside "foo.bar".
func (m *Message) FindFieldDescriptorByName(name string) *desc.FieldDescriptor {
	if name == "" {
		return nil
	}
	mustBeExt := false
	if name[0] == '(' {
		if name[len(name)-1] != ')' {
			return nil
		}
		mustBeExt = true
		name = name[1 : len(name)-1]
	} else if name[0] == '[' {
		if name[len(name)-1] != ']' {
			return nil
		}
		mustBeExt = true
		name = name[1 : len(name)-1]
	}
	if !mustBeExt {
		if fd := m.md.FindFieldByName(name); fd != nil {
			return fd
		}
	}
	if fd := m.er.FindExtensionByName(m.md.GetFullyQualifiedName(), name); fd != nil {
		return fd
	}
	for _, fd := range m.extraFields {
		if fd.IsExtension() && name == fd.GetFullyQualifiedName() {
			return fd
		} else if !mustBeExt && !fd.IsExtension() && name == fd.GetName() {
			return fd
		}
	}
	return nil
}

// FindFieldDescriptorByJSONName is like FindFieldDescriptorByName but also
// matches fields by their JSON names.
func (m *Message) FindFieldDescriptorByJSONName(name string) *desc.FieldDescriptor {
	if name == "" {
		return nil
	}
	if name[0] != '(' && name[0] != '[' {
		if fd := m.md.FindFieldByJSONName(name); fd != nil {
			return fd
		}
	}
	return m.FindFieldDescriptorByName(name)
}

// checkField verifies that fd actually describes a field of this message's
// type, including extensions landing inside an extension range.
func (m *Message) checkField(fd *desc.FieldDescriptor) error {
	owner := fd.GetOwner()
	if owner == nil || owner.GetFullyQualifiedName() != m.md.GetFullyQualifiedName() {
		return fmt.Errorf("field %s is for wrong message type: %s; expecting %s",
			fd.GetName(), ownerName(fd), m.md.GetFullyQualifiedName())
	}
	if fd.IsExtension() && !m.md.IsExtension(fd.GetNumber()) {
		return fmt.Errorf("field %s is an extension, but is not in message extension range: %v",
			fd.GetFullyQualifiedName(), m.md.GetExtensionRanges())
	}
	return nil
}

func ownerName(fd *desc.FieldDescriptor) string {
	if o := fd.GetOwner(); o != nil {
		return o.GetFullyQualifiedName()
	}
	return "<unknown>"
}

// GetField returns the value of the given field. If the field is not set,
// the default is returned: the declared or zero default for scalars, a nil
// *Message for message fields, and empty collections for repeated and map
// fields. Returned slices and maps are copies; mutate through the message.
func (m *Message) GetField(fd *desc.FieldDescriptor) interface{} {
	v, err := m.TryGetField(fd)
	if err != nil {
		panic(err.Error())
	}
	return v
}

// TryGetField is like GetField but returns an error instead of panicking if
// the given field does not belong to this message's type.
func (m *Message) TryGetField(fd *desc.FieldDescriptor) (interface{}, error) {
	if err := m.checkField(fd); err != nil {
		return nil, err
	}
	return m.getField(fd)
}

func (m *Message) GetFieldByNumber(tagNumber int) interface{} {
	v, err := m.TryGetFieldByNumber(tagNumber)
	if err != nil {
		panic(err.Error())
	}
	return v
}

func (m *Message) TryGetFieldByNumber(tagNumber int) (interface{}, error) {
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return nil, UnknownTagNumberError
	}
	return m.getField(fd)
}

func (m *Message) GetFieldByName(name string) interface{} {
	v, err := m.TryGetFieldByName(name)
	if err != nil {
		panic(err.Error())
	}
	return v
}

func (m *Message) TryGetFieldByName(name string) (interface{}, error) {
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return nil, UnknownFieldNameError
	}
	return m.getField(fd)
}

func (m *Message) getField(fd *desc.FieldDescriptor) (interface{}, error) {
	return m.doGetField(fd, false)
}

func (m *Message) doGetField(fd *desc.FieldDescriptor, nilIfAbsent bool) (interface{}, error) {
	res := m.values[fd.GetNumber()]
	if res == nil {
		var err error
		if res, err = m.parseUnknownField(fd); err != nil {
			return nil, err
		}
		if res == nil {
			if nilIfAbsent {
				return nil, nil
			}
			return defaultFieldValue(fd), nil
		}
	}
	// defensive copies, so callers cannot place unchecked values into the
	// message through the returned collection
	switch v := res.(type) {
	case []interface{}:
		return append(make([]interface{}, 0, len(v)), v...), nil
	case *Map:
		return v.clone(), nil
	}
	return res, nil
}

// defaultFieldValue returns the value GetField reports for an unset field.
func defaultFieldValue(fd *desc.FieldDescriptor) interface{} {
	if fd.IsMap() {
		return NewMap()
	}
	if fd.IsRepeated() {
		return []interface{}{}
	}
	if def := fd.GetDefaultValue(); def != nil {
		return def
	}
	// message and group fields have no default instance
	return (*Message)(nil)
}

// HasField reports whether the field is explicitly set. For fields without
// presence (proto3 singular scalars outside oneofs), setting the zero value
// leaves the field unset, mirroring what a wire round trip would produce.
func (m *Message) HasField(fd *desc.FieldDescriptor) bool {
	ok, err := m.TryHasField(fd)
	if err != nil {
		panic(err.Error())
	}
	return ok
}

func (m *Message) TryHasField(fd *desc.FieldDescriptor) (bool, error) {
	if err := m.checkField(fd); err != nil {
		return false, err
	}
	_, ok := m.values[fd.GetNumber()]
	return ok, nil
}

func (m *Message) HasFieldByNumber(tagNumber int) bool {
	ok, err := m.TryHasFieldByNumber(tagNumber)
	if err != nil {
		panic(err.Error())
	}
	return ok
}

func (m *Message) TryHasFieldByNumber(tagNumber int) (bool, error) {
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return false, UnknownTagNumberError
	}
	_, ok := m.values[fd.GetNumber()]
	return ok, nil
}

func (m *Message) HasFieldByName(name string) bool {
	ok, err := m.TryHasFieldByName(name)
	if err != nil {
		panic(err.Error())
	}
	return ok
}

func (m *Message) TryHasFieldByName(name string) (bool, error) {
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return false, UnknownFieldNameError
	}
	_, ok := m.values[fd.GetNumber()]
	return ok, nil
}

// SetField changes the value of the given field. The value must match the
// field's kind per the table in the Message doc. Setting a member of a
// oneof clears the other members; setting a field whose number has retained
// unknown data replaces that data.
func (m *Message) SetField(fd *desc.FieldDescriptor, val interface{}) {
	if err := m.TrySetField(fd, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TrySetField(fd *desc.FieldDescriptor, val interface{}) error {
	if err := m.checkField(fd); err != nil {
		return err
	}
	return m.setField(fd, val)
}

func (m *Message) SetFieldByNumber(tagNumber int, val interface{}) {
	if err := m.TrySetFieldByNumber(tagNumber, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TrySetFieldByNumber(tagNumber int, val interface{}) error {
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return UnknownTagNumberError
	}
	return m.setField(fd, val)
}

func (m *Message) SetFieldByName(name string, val interface{}) {
	if err := m.TrySetFieldByName(name, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TrySetFieldByName(name string, val interface{}) error {
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return UnknownFieldNameError
	}
	return m.setField(fd, val)
}

func (m *Message) setField(fd *desc.FieldDescriptor, val interface{}) error {
	val, err := validFieldValue(fd, val)
	if err != nil {
		return err
	}
	m.internalSetField(fd, val)
	return nil
}

// internalSetField stores an already-validated value. Zero values of fields
// without presence, and empty lists and maps, normalize to unset.
func (m *Message) internalSetField(fd *desc.FieldDescriptor, val interface{}) {
	switch v := val.(type) {
	case []interface{}:
		if len(v) == 0 {
			m.unsetField(fd)
			return
		}
	case *Map:
		if v.Len() == 0 {
			m.unsetField(fd)
			return
		}
	default:
		if !fd.HasPresence() && isZeroValue(val) {
			m.unsetField(fd)
			return
		}
	}
	if m.values == nil {
		m.values = map[int32]interface{}{}
	}
	m.values[fd.GetNumber()] = val
	// a oneof holds at most one member
	if od := fd.GetOneOf(); od != nil {
		for _, other := range od.GetChoices() {
			if other.GetNumber() != fd.GetNumber() {
				delete(m.values, other.GetNumber())
			}
		}
	}
	m.dropUnknownsFor(fd.GetNumber())
	// track extensions the base descriptor does not know
	if m.md.FindFieldByNumber(fd.GetNumber()) == nil && m.extraFields[fd.GetNumber()] == nil {
		m.addField(fd)
	}
}

func (m *Message) addField(fd *desc.FieldDescriptor) {
	if m.extraFields == nil {
		m.extraFields = map[int32]*desc.FieldDescriptor{}
	}
	m.extraFields[fd.GetNumber()] = fd
}

func (m *Message) unsetField(fd *desc.FieldDescriptor) {
	if m.values != nil {
		delete(m.values, fd.GetNumber())
	}
	m.dropUnknownsFor(fd.GetNumber())
}

func (m *Message) dropUnknownsFor(tagNumber int32) {
	if len(m.unknownFields) == 0 {
		return
	}
	kept := m.unknownFields[:0]
	for _, u := range m.unknownFields {
		if u.Number != tagNumber {
			kept = append(kept, u)
		}
	}
	if len(kept) == 0 {
		m.unknownFields = nil
	} else {
		m.unknownFields = kept
	}
}

func isZeroValue(val interface{}) bool {
	switch v := val.(type) {
	case bool:
		return !v
	case int32:
		return v == 0
	case int64:
		return v == 0
	case uint32:
		return v == 0
	case uint64:
		return v == 0
	case float32:
		return v == 0
	case float64:
		return v == 0
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}
	return false
}

// ClearField unsets the given field, discarding any unknown data retained
// for its number.
func (m *Message) ClearField(fd *desc.FieldDescriptor) {
	if err := m.TryClearField(fd); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryClearField(fd *desc.FieldDescriptor) error {
	if err := m.checkField(fd); err != nil {
		return err
	}
	m.unsetField(fd)
	return nil
}

func (m *Message) ClearFieldByNumber(tagNumber int) {
	if err := m.TryClearFieldByNumber(tagNumber); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryClearFieldByNumber(tagNumber int) error {
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return UnknownTagNumberError
	}
	m.unsetField(fd)
	return nil
}

func (m *Message) ClearFieldByName(name string) {
	if err := m.TryClearFieldByName(name); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryClearFieldByName(name string) error {
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return UnknownFieldNameError
	}
	m.unsetField(fd)
	return nil
}

// GetOneOfField returns which member of the given oneof is set, and its
// value. Returns nil, nil if none is set.
func (m *Message) GetOneOfField(od *desc.OneOfDescriptor) (*desc.FieldDescriptor, interface{}) {
	fd, val, err := m.TryGetOneOfField(od)
	if err != nil {
		panic(err.Error())
	}
	return fd, val
}

func (m *Message) TryGetOneOfField(od *desc.OneOfDescriptor) (*desc.FieldDescriptor, interface{}, error) {
	if od.GetOwner().GetFullyQualifiedName() != m.md.GetFullyQualifiedName() {
		return nil, nil, fmt.Errorf("oneof %s is for wrong message type: %s; expecting %s",
			od.GetName(), od.GetOwner().GetFullyQualifiedName(), m.md.GetFullyQualifiedName())
	}
	for _, fd := range od.GetChoices() {
		val, err := m.doGetField(fd, true)
		if err != nil {
			return nil, nil, err
		}
		if val != nil {
			return fd, val, nil
		}
	}
	return nil, nil, nil
}

// GetMapField returns the value stored under the given key, or nil if the
// key is absent.
func (m *Message) GetMapField(fd *desc.FieldDescriptor, key interface{}) interface{} {
	v, err := m.TryGetMapField(fd, key)
	if err != nil {
		panic(err.Error())
	}
	return v
}

func (m *Message) TryGetMapField(fd *desc.FieldDescriptor, key interface{}) (interface{}, error) {
	if err := m.checkField(fd); err != nil {
		return nil, err
	}
	return m.getMapField(fd, key)
}

func (m *Message) GetMapFieldByNumber(tagNumber int, key interface{}) interface{} {
	v, err := m.TryGetMapFieldByNumber(tagNumber, key)
	if err != nil {
		panic(err.Error())
	}
	return v
}

func (m *Message) TryGetMapFieldByNumber(tagNumber int, key interface{}) (interface{}, error) {
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return nil, UnknownTagNumberError
	}
	return m.getMapField(fd, key)
}

func (m *Message) GetMapFieldByName(name string, key interface{}) interface{} {
	v, err := m.TryGetMapFieldByName(name, key)
	if err != nil {
		panic(err.Error())
	}
	return v
}

func (m *Message) TryGetMapFieldByName(name string, key interface{}) (interface{}, error) {
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return nil, UnknownFieldNameError
	}
	return m.getMapField(fd, key)
}

func (m *Message) getMapField(fd *desc.FieldDescriptor, key interface{}) (interface{}, error) {
	if !fd.IsMap() {
		return nil, FieldIsNotMapError
	}
	kfd := fd.GetMessageType().GetFields()[0]
	ki, err := validElementFieldValue(kfd, key)
	if err != nil {
		return nil, err
	}
	mp, err := m.storedMap(fd)
	if err != nil || mp == nil {
		return nil, err
	}
	v, _ := mp.Get(ki)
	return v, nil
}

// storedMap returns the live *Map for the field, parsing retained unknown
// data if necessary. Returns nil if the field is unset.
func (m *Message) storedMap(fd *desc.FieldDescriptor) (*Map, error) {
	if v := m.values[fd.GetNumber()]; v != nil {
		return v.(*Map), nil
	}
	v, err := m.parseUnknownField(fd)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*Map), nil
}

// ForEachMapFieldEntry calls fn for each entry of the map field, in
// insertion order, until fn returns false. The map must not be mutated
// during iteration.
func (m *Message) ForEachMapFieldEntry(fd *desc.FieldDescriptor, fn func(key, val interface{}) bool) {
	if err := m.TryForEachMapFieldEntry(fd, fn); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryForEachMapFieldEntry(fd *desc.FieldDescriptor, fn func(key, val interface{}) bool) error {
	if err := m.checkField(fd); err != nil {
		return err
	}
	return m.forEachMapFieldEntry(fd, fn)
}

func (m *Message) ForEachMapFieldEntryByNumber(tagNumber int, fn func(key, val interface{}) bool) {
	if err := m.TryForEachMapFieldEntryByNumber(tagNumber, fn); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryForEachMapFieldEntryByNumber(tagNumber int, fn func(key, val interface{}) bool) error {
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return UnknownTagNumberError
	}
	return m.forEachMapFieldEntry(fd, fn)
}

func (m *Message) ForEachMapFieldEntryByName(name string, fn func(key, val interface{}) bool) {
	if err := m.TryForEachMapFieldEntryByName(name, fn); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryForEachMapFieldEntryByName(name string, fn func(key, val interface{}) bool) error {
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return UnknownFieldNameError
	}
	return m.forEachMapFieldEntry(fd, fn)
}

func (m *Message) forEachMapFieldEntry(fd *desc.FieldDescriptor, fn func(key, val interface{}) bool) error {
	if !fd.IsMap() {
		return FieldIsNotMapError
	}
	mp, err := m.storedMap(fd)
	if err != nil || mp == nil {
		return err
	}
	mp.Range(fn)
	return nil
}

// PutMapField stores val under key in the map field. An existing key is
// overwritten in place.
func (m *Message) PutMapField(fd *desc.FieldDescriptor, key, val interface{}) {
	if err := m.TryPutMapField(fd, key, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryPutMapField(fd *desc.FieldDescriptor, key, val interface{}) error {
	if err := m.checkField(fd); err != nil {
		return err
	}
	return m.putMapField(fd, key, val)
}

func (m *Message) PutMapFieldByNumber(tagNumber int, key, val interface{}) {
	if err := m.TryPutMapFieldByNumber(tagNumber, key, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryPutMapFieldByNumber(tagNumber int, key, val interface{}) error {
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return UnknownTagNumberError
	}
	return m.putMapField(fd, key, val)
}

func (m *Message) PutMapFieldByName(name string, key, val interface{}) {
	if err := m.TryPutMapFieldByName(name, key, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryPutMapFieldByName(name string, key, val interface{}) error {
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return UnknownFieldNameError
	}
	return m.putMapField(fd, key, val)
}

func (m *Message) putMapField(fd *desc.FieldDescriptor, key, val interface{}) error {
	if !fd.IsMap() {
		return FieldIsNotMapError
	}
	entryFields := fd.GetMessageType().GetFields()
	ki, err := validElementFieldValue(entryFields[0], key)
	if err != nil {
		return err
	}
	vi, err := validElementFieldValue(entryFields[1], val)
	if err != nil {
		return err
	}
	mp, err := m.storedMap(fd)
	if err != nil {
		return err
	}
	if mp == nil {
		mp = NewMap()
		mp.Put(ki, vi)
		m.internalSetField(fd, mp)
		return nil
	}
	mp.Put(ki, vi)
	return nil
}

// RemoveMapField deletes the entry for the given key, if present. Removing
// the last entry unsets the field.
func (m *Message) RemoveMapField(fd *desc.FieldDescriptor, key interface{}) {
	if err := m.TryRemoveMapField(fd, key); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryRemoveMapField(fd *desc.FieldDescriptor, key interface{}) error {
	if err := m.checkField(fd); err != nil {
		return err
	}
	return m.removeMapField(fd, key)
}

func (m *Message) RemoveMapFieldByNumber(tagNumber int, key interface{}) {
	if err := m.TryRemoveMapFieldByNumber(tagNumber, key); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryRemoveMapFieldByNumber(tagNumber int, key interface{}) error {
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return UnknownTagNumberError
	}
	return m.removeMapField(fd, key)
}

func (m *Message) RemoveMapFieldByName(name string, key interface{}) {
	if err := m.TryRemoveMapFieldByName(name, key); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryRemoveMapFieldByName(name string, key interface{}) error {
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return UnknownFieldNameError
	}
	return m.removeMapField(fd, key)
}

func (m *Message) removeMapField(fd *desc.FieldDescriptor, key interface{}) error {
	if !fd.IsMap() {
		return FieldIsNotMapError
	}
	kfd := fd.GetMessageType().GetFields()[0]
	ki, err := validElementFieldValue(kfd, key)
	if err != nil {
		return err
	}
	mp, err := m.storedMap(fd)
	if err != nil || mp == nil {
		return err
	}
	mp.Delete(ki)
	if mp.Len() == 0 {
		m.unsetField(fd)
	}
	return nil
}

// GetRepeatedField returns the element at the given index of a repeated
// field.
func (m *Message) GetRepeatedField(fd *desc.FieldDescriptor, index int) interface{} {
	v, err := m.TryGetRepeatedField(fd, index)
	if err != nil {
		panic(err.Error())
	}
	return v
}

func (m *Message) TryGetRepeatedField(fd *desc.FieldDescriptor, index int) (interface{}, error) {
	if index < 0 {
		return nil, IndexOutOfRangeError
	}
	if err := m.checkField(fd); err != nil {
		return nil, err
	}
	return m.getRepeatedField(fd, index)
}

func (m *Message) GetRepeatedFieldByNumber(tagNumber int, index int) interface{} {
	v, err := m.TryGetRepeatedFieldByNumber(tagNumber, index)
	if err != nil {
		panic(err.Error())
	}
	return v
}

func (m *Message) TryGetRepeatedFieldByNumber(tagNumber int, index int) (interface{}, error) {
	if index < 0 {
		return nil, IndexOutOfRangeError
	}
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return nil, UnknownTagNumberError
	}
	return m.getRepeatedField(fd, index)
}

func (m *Message) GetRepeatedFieldByName(name string, index int) interface{} {
	v, err := m.TryGetRepeatedFieldByName(name, index)
	if err != nil {
		panic(err.Error())
	}
	return v
}

func (m *Message) TryGetRepeatedFieldByName(name string, index int) (interface{}, error) {
	if index < 0 {
		return nil, IndexOutOfRangeError
	}
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return nil, UnknownFieldNameError
	}
	return m.getRepeatedField(fd, index)
}

func (m *Message) getRepeatedField(fd *desc.FieldDescriptor, index int) (interface{}, error) {
	if fd.IsMap() || !fd.IsRepeated() {
		return nil, FieldIsNotRepeatedError
	}
	sl, err := m.storedSlice(fd)
	if err != nil {
		return nil, err
	}
	if index >= len(sl) {
		return nil, IndexOutOfRangeError
	}
	return sl[index], nil
}

func (m *Message) storedSlice(fd *desc.FieldDescriptor) ([]interface{}, error) {
	if v := m.values[fd.GetNumber()]; v != nil {
		return v.([]interface{}), nil
	}
	v, err := m.parseUnknownField(fd)
	if err != nil || v == nil {
		return nil, err
	}
	return v.([]interface{}), nil
}

// AddRepeatedField appends a value to a repeated field. For map fields it
// accepts an entry message, mirroring the wire representation.
func (m *Message) AddRepeatedField(fd *desc.FieldDescriptor, val interface{}) {
	if err := m.TryAddRepeatedField(fd, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryAddRepeatedField(fd *desc.FieldDescriptor, val interface{}) error {
	if err := m.checkField(fd); err != nil {
		return err
	}
	return m.addRepeatedField(fd, val)
}

func (m *Message) AddRepeatedFieldByNumber(tagNumber int, val interface{}) {
	if err := m.TryAddRepeatedFieldByNumber(tagNumber, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryAddRepeatedFieldByNumber(tagNumber int, val interface{}) error {
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return UnknownTagNumberError
	}
	return m.addRepeatedField(fd, val)
}

func (m *Message) AddRepeatedFieldByName(name string, val interface{}) {
	if err := m.TryAddRepeatedFieldByName(name, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TryAddRepeatedFieldByName(name string, val interface{}) error {
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return UnknownFieldNameError
	}
	return m.addRepeatedField(fd, val)
}

func (m *Message) addRepeatedField(fd *desc.FieldDescriptor, val interface{}) error {
	if !fd.IsRepeated() {
		return FieldIsNotRepeatedError
	}
	if fd.IsMap() {
		// adding an entry message to a map field works like one decoded
		// entry: last write for a key wins
		entry, ok := val.(*Message)
		if !ok || entry.md.GetFullyQualifiedName() != fd.GetMessageType().GetFullyQualifiedName() {
			return fmt.Errorf("value for map field %s must be a %s entry message",
				fd.GetName(), fd.GetMessageType().GetFullyQualifiedName())
		}
		k, err := entry.TryGetFieldByNumber(1)
		if err != nil {
			return err
		}
		v, err := entry.TryGetFieldByNumber(2)
		if err != nil {
			return err
		}
		return m.putMapField(fd, k, v)
	}
	val, err := validElementFieldValue(fd, val)
	if err != nil {
		return err
	}
	sl, err := m.storedSlice(fd)
	if err != nil {
		return err
	}
	m.internalSetField(fd, append(sl, val))
	return nil
}

// SetRepeatedField replaces the element at the given index of a repeated
// field.
func (m *Message) SetRepeatedField(fd *desc.FieldDescriptor, index int, val interface{}) {
	if err := m.TrySetRepeatedField(fd, index, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TrySetRepeatedField(fd *desc.FieldDescriptor, index int, val interface{}) error {
	if index < 0 {
		return IndexOutOfRangeError
	}
	if err := m.checkField(fd); err != nil {
		return err
	}
	return m.setRepeatedField(fd, index, val)
}

func (m *Message) SetRepeatedFieldByNumber(tagNumber int, index int, val interface{}) {
	if err := m.TrySetRepeatedFieldByNumber(tagNumber, index, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TrySetRepeatedFieldByNumber(tagNumber int, index int, val interface{}) error {
	if index < 0 {
		return IndexOutOfRangeError
	}
	fd := m.FindFieldDescriptor(int32(tagNumber))
	if fd == nil {
		return UnknownTagNumberError
	}
	return m.setRepeatedField(fd, index, val)
}

func (m *Message) SetRepeatedFieldByName(name string, index int, val interface{}) {
	if err := m.TrySetRepeatedFieldByName(name, index, val); err != nil {
		panic(err.Error())
	}
}

func (m *Message) TrySetRepeatedFieldByName(name string, index int, val interface{}) error {
	if index < 0 {
		return IndexOutOfRangeError
	}
	fd := m.FindFieldDescriptorByName(name)
	if fd == nil {
		return UnknownFieldNameError
	}
	return m.setRepeatedField(fd, index, val)
}

func (m *Message) setRepeatedField(fd *desc.FieldDescriptor, index int, val interface{}) error {
	if fd.IsMap() || !fd.IsRepeated() {
		return FieldIsNotRepeatedError
	}
	val, err := validElementFieldValue(fd, val)
	if err != nil {
		return err
	}
	sl, err := m.storedSlice(fd)
	if err != nil {
		return err
	}
	if index >= len(sl) {
		return IndexOutOfRangeError
	}
	sl[index] = val
	return nil
}

// Reset unsets every field and discards all retained unknown data.
func (m *Message) Reset() {
	m.values = nil
	m.unknownFields = nil
	m.extraFields = nil
}

// Validate returns an error if any required field of the message's type is
// not set.
func (m *Message) Validate() error {
	var missing []string
	for _, fd := range m.md.GetFields() {
		if fd.IsRequired() {
			if _, ok := m.values[fd.GetNumber()]; !ok {
				missing = append(missing, fd.GetName())
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("some required fields missing: %v", strings.Join(missing, ", "))
	}
	return nil
}

// String returns a compact JSON rendering, for debugging.
func (m *Message) String() string {
	b, err := m.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%s{<malformed: %v>}", m.md.GetFullyQualifiedName(), err)
	}
	return string(b)
}

// knownFieldTags returns the tags of all set fields, sorted.
func (m *Message) knownFieldTags() []int {
	keys := make([]int, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	return keys
}

// allKnownFieldTags returns the tags of all fields the message knows about,
// the declared fields plus extensions present in the message, sorted.
func (m *Message) allKnownFieldTags() []int {
	fds := m.md.GetFields()
	keys := make([]int, 0, len(fds)+len(m.extraFields))
	for _, fd := range fds {
		keys = append(keys, int(fd.GetNumber()))
	}
	for k := range m.extraFields {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	return keys
}

// validFieldValue checks that val is a legal value for the field as a
// whole: a slice for repeated fields, a map for map fields, an element
// value otherwise. It returns the value in storage form, copying any
// caller-owned collections.
func validFieldValue(fd *desc.FieldDescriptor, val interface{}) (interface{}, error) {
	if val == nil {
		return nil, fmt.Errorf("field %s may not be set to nil", fd.GetFullyQualifiedName())
	}
	if fd.IsMap() {
		return validMapValue(fd, val)
	}
	if fd.IsRepeated() {
		rv := reflect.ValueOf(val)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("value for repeated field %s must be a slice, not %T",
				fd.GetFullyQualifiedName(), val)
		}
		sl := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := validElementFieldValue(fd, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			sl[i] = e
		}
		return sl, nil
	}
	return validElementFieldValue(fd, val)
}

func validMapValue(fd *desc.FieldDescriptor, val interface{}) (interface{}, error) {
	entryFields := fd.GetMessageType().GetFields()
	kfd, vfd := entryFields[0], entryFields[1]

	checked := NewMap()
	put := func(k, v interface{}) error {
		ki, err := validElementFieldValue(kfd, k)
		if err != nil {
			return err
		}
		vi, err := validElementFieldValue(vfd, v)
		if err != nil {
			return err
		}
		checked.Put(ki, vi)
		return nil
	}

	if mp, ok := val.(*Map); ok {
		var err error
		mp.Range(func(k, v interface{}) bool {
			err = put(k, v)
			return err == nil
		})
		return checked, err
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Map:
		// plain Go maps have no deterministic order; insert sorted by key
		// so two messages built from equal maps encode identically
		type pair struct{ k, v interface{} }
		pairs := make([]pair, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			ki, err := validElementFieldValue(kfd, k.Interface())
			if err != nil {
				return nil, err
			}
			vi, err := validElementFieldValue(vfd, rv.MapIndex(k).Interface())
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair{ki, vi})
		}
		sort.Slice(pairs, func(i, j int) bool { return mapKeyLess(pairs[i].k, pairs[j].k) })
		for _, p := range pairs {
			checked.Put(p.k, p.v)
		}
		return checked, nil
	case reflect.Slice, reflect.Array:
		// a slice of entry messages is accepted the same way the wire
		// format carries map fields
		for i := 0; i < rv.Len(); i++ {
			entry, ok := rv.Index(i).Interface().(*Message)
			if !ok {
				return nil, fmt.Errorf("value for map field %s must be a *Map, a Go map, or a slice of entry messages",
					fd.GetFullyQualifiedName())
			}
			k, err := entry.TryGetFieldByNumber(1)
			if err != nil {
				return nil, err
			}
			v, err := entry.TryGetFieldByNumber(2)
			if err != nil {
				return nil, err
			}
			if err := put(k, v); err != nil {
				return nil, err
			}
		}
		return checked, nil
	default:
		return nil, fmt.Errorf("value for map field %s must be a *Map, a Go map, or a slice of entry messages; got %T",
			fd.GetFullyQualifiedName(), val)
	}
}

// validElementFieldValue checks a single element value against the field's
// kind: for repeated fields this is one element, for map fields one key or
// one value.
func validElementFieldValue(fd *desc.FieldDescriptor, val interface{}) (interface{}, error) {
	t := fd.GetType()
	switch t {
	case dpb.FieldDescriptorProto_TYPE_SFIXED32, dpb.FieldDescriptorProto_TYPE_INT32,
		dpb.FieldDescriptorProto_TYPE_SINT32, dpb.FieldDescriptorProto_TYPE_ENUM:
		return toInt32(fd, val)

	case dpb.FieldDescriptorProto_TYPE_SFIXED64, dpb.FieldDescriptorProto_TYPE_INT64,
		dpb.FieldDescriptorProto_TYPE_SINT64:
		return toInt64(fd, val)

	case dpb.FieldDescriptorProto_TYPE_FIXED32, dpb.FieldDescriptorProto_TYPE_UINT32:
		return toUint32(fd, val)

	case dpb.FieldDescriptorProto_TYPE_FIXED64, dpb.FieldDescriptorProto_TYPE_UINT64:
		return toUint64(fd, val)

	case dpb.FieldDescriptorProto_TYPE_FLOAT:
		return toFloat32(fd, val)

	case dpb.FieldDescriptorProto_TYPE_DOUBLE:
		return toFloat64(fd, val)

	case dpb.FieldDescriptorProto_TYPE_BOOL:
		return toBool(fd, val)

	case dpb.FieldDescriptorProto_TYPE_STRING:
		return toString(fd, val)

	case dpb.FieldDescriptorProto_TYPE_BYTES:
		return toBytes(fd, val)

	case dpb.FieldDescriptorProto_TYPE_MESSAGE, dpb.FieldDescriptorProto_TYPE_GROUP:
		dm, ok := val.(*Message)
		if !ok || dm == nil {
			return nil, fmt.Errorf("value for field %s must be a non-nil *dynamic.Message, not %T",
				fd.GetFullyQualifiedName(), val)
		}
		want := fd.GetMessageType().GetFullyQualifiedName()
		if got := dm.md.GetFullyQualifiedName(); got != want {
			return nil, fmt.Errorf("message value for field %s has wrong type: %s; expecting %s",
				fd.GetFullyQualifiedName(), got, want)
		}
		return dm, nil

	default:
		return nil, fmt.Errorf("unable to handle field type %v for %s", t, fd.GetFullyQualifiedName())
	}
}

// the to* converters accept the exact Go type for the kind, plus named
// types with the same underlying representation

func toInt32(fd *desc.FieldDescriptor, val interface{}) (int32, error) {
	if v, ok := val.(int32); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.Int32 {
		return int32(rv.Int()), nil
	}
	return 0, badElementType(fd, "int32", val)
}

func toInt64(fd *desc.FieldDescriptor, val interface{}) (int64, error) {
	if v, ok := val.(int64); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.Int64 {
		return rv.Int(), nil
	}
	return 0, badElementType(fd, "int64", val)
}

func toUint32(fd *desc.FieldDescriptor, val interface{}) (uint32, error) {
	if v, ok := val.(uint32); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.Uint32 {
		return uint32(rv.Uint()), nil
	}
	return 0, badElementType(fd, "uint32", val)
}

func toUint64(fd *desc.FieldDescriptor, val interface{}) (uint64, error) {
	if v, ok := val.(uint64); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.Uint64 {
		return rv.Uint(), nil
	}
	return 0, badElementType(fd, "uint64", val)
}

func toFloat32(fd *desc.FieldDescriptor, val interface{}) (float32, error) {
	if v, ok := val.(float32); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.Float32 {
		return float32(rv.Float()), nil
	}
	return 0, badElementType(fd, "float32", val)
}

func toFloat64(fd *desc.FieldDescriptor, val interface{}) (float64, error) {
	if v, ok := val.(float64); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.Float64 {
		return rv.Float(), nil
	}
	return 0, badElementType(fd, "float64", val)
}

func toBool(fd *desc.FieldDescriptor, val interface{}) (bool, error) {
	if v, ok := val.(bool); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.Bool {
		return rv.Bool(), nil
	}
	return false, badElementType(fd, "bool", val)
}

func toString(fd *desc.FieldDescriptor, val interface{}) (string, error) {
	if v, ok := val.(string); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return "", badElementType(fd, "string", val)
}

func toBytes(fd *desc.FieldDescriptor, val interface{}) ([]byte, error) {
	if v, ok := val.([]byte); ok {
		return append([]byte(nil), v...), nil
	}
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return append([]byte(nil), rv.Bytes()...), nil
	}
	return nil, badElementType(fd, "[]byte", val)
}

func badElementType(fd *desc.FieldDescriptor, want string, got interface{}) error {
	return fmt.Errorf("value for field %s must be %s, not %T", fd.GetFullyQualifiedName(), want, got)
}

// mapKeyLess orders validated map keys: false before true, then
// numerically, then lexically.
func mapKeyLess(a, b interface{}) bool {
	switch av := a.(type) {
	case bool:
		return !av && b.(bool)
	case int32:
		return av < b.(int32)
	case int64:
		return av < b.(int64)
	case uint32:
		return av < b.(uint32)
	case uint64:
		return av < b.(uint64)
	case string:
		return av < b.(string)
	}
	return false
}
