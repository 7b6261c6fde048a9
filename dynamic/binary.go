package dynamic

import (
	"fmt"
	"io"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/slientgoat/prost-reflect/codec"
	"github.com/slientgoat/prost-reflect/desc"
	dpb "google.golang.org/protobuf/types/descriptorpb"
)

var varintTypes = map[dpb.FieldDescriptorProto_Type]bool{}
var fixed32Types = map[dpb.FieldDescriptorProto_Type]bool{}
var fixed64Types = map[dpb.FieldDescriptorProto_Type]bool{}

func init() {
	varintTypes[dpb.FieldDescriptorProto_TYPE_BOOL] = true
	varintTypes[dpb.FieldDescriptorProto_TYPE_INT32] = true
	varintTypes[dpb.FieldDescriptorProto_TYPE_INT64] = true
	varintTypes[dpb.FieldDescriptorProto_TYPE_UINT32] = true
	varintTypes[dpb.FieldDescriptorProto_TYPE_UINT64] = true
	varintTypes[dpb.FieldDescriptorProto_TYPE_SINT32] = true
	varintTypes[dpb.FieldDescriptorProto_TYPE_SINT64] = true
	varintTypes[dpb.FieldDescriptorProto_TYPE_ENUM] = true

	fixed32Types[dpb.FieldDescriptorProto_TYPE_FIXED32] = true
	fixed32Types[dpb.FieldDescriptorProto_TYPE_SFIXED32] = true
	fixed32Types[dpb.FieldDescriptorProto_TYPE_FLOAT] = true

	fixed64Types[dpb.FieldDescriptorProto_TYPE_FIXED64] = true
	fixed64Types[dpb.FieldDescriptorProto_TYPE_SFIXED64] = true
	fixed64Types[dpb.FieldDescriptorProto_TYPE_DOUBLE] = true
}

// wireTypeForKind returns the wire type used for a single record of the
// given field type, ignoring packing.
func wireTypeForKind(t dpb.FieldDescriptorProto_Type) int8 {
	switch {
	case varintTypes[t]:
		return codec.WireVarint
	case fixed32Types[t]:
		return codec.WireFixed32
	case fixed64Types[t]:
		return codec.WireFixed64
	case t == dpb.FieldDescriptorProto_TYPE_GROUP:
		return codec.WireStartGroup
	default:
		return codec.WireBytes
	}
}

// Marshal serializes the message to the binary wire format. Known fields
// are written in ascending tag order, followed by any retained unknown
// fields in the order they were decoded, so a decode/encode round trip
// reproduces serialized extensions and unknown data byte for byte.
func (m *Message) Marshal() ([]byte, error) {
	var b codec.Buffer
	if err := m.marshal(&b, false); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// MarshalAppend appends the wire-format serialization of the message to the
// given byte slice and returns the extended slice.
func (m *Message) MarshalAppend(b []byte) ([]byte, error) {
	buf := codec.NewBuffer(b)
	if err := m.marshal(buf, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalDeterministic is like Marshal but emits map entries sorted by key
// instead of in insertion order, so equal messages produce identical bytes
// regardless of the order in which their maps were populated.
func (m *Message) MarshalDeterministic() ([]byte, error) {
	var b codec.Buffer
	if err := m.marshal(&b, true); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (m *Message) marshal(b *codec.Buffer, deterministic bool) error {
	if err := m.checkOneOfsForEncode(); err != nil {
		return err
	}
	for _, tag := range m.knownFieldTags() {
		itag := int32(tag)
		fd := m.FindFieldDescriptor(itag)
		if fd == nil {
			// values are only stored under known tags
			return encodeErrf(m.md.GetFullyQualifiedName(), "", "no descriptor for tag %d", itag)
		}
		if err := m.marshalField(b, fd, m.values[itag], deterministic); err != nil {
			return err
		}
	}
	for _, u := range m.unknownFields {
		if err := marshalUnknownField(b, u); err != nil {
			return wrapEncodeErr(m, nil, err)
		}
	}
	return nil
}

// checkOneOfsForEncode verifies that no oneof holds more than one member.
// The accessors maintain that invariant, so this guards only against storage
// corrupted by racing mutations.
func (m *Message) checkOneOfsForEncode() error {
	for _, od := range m.md.GetOneOfs() {
		set := 0
		for _, fd := range od.GetChoices() {
			if _, ok := m.values[fd.GetNumber()]; ok {
				set++
			}
		}
		if set > 1 {
			return encodeErrf(m.md.GetFullyQualifiedName(), od.GetName(), "oneof has %d fields set", set)
		}
	}
	return nil
}

func (m *Message) marshalField(b *codec.Buffer, fd *desc.FieldDescriptor, val interface{}, deterministic bool) error {
	switch v := val.(type) {
	case *Map:
		return m.marshalMapField(b, fd, v, deterministic)
	case []interface{}:
		if fd.IsPacked() {
			return m.marshalPacked(b, fd, v)
		}
		for _, e := range v {
			if err := m.marshalSingle(b, fd, e, deterministic); err != nil {
				return err
			}
		}
		return nil
	default:
		return m.marshalSingle(b, fd, val, deterministic)
	}
}

func (m *Message) marshalMapField(b *codec.Buffer, fd *desc.FieldDescriptor, mp *Map, deterministic bool) error {
	entryFields := fd.GetMessageType().GetFields()
	kfd, vfd := entryFields[0], entryFields[1]
	keys := mp.Keys()
	if deterministic {
		sort.Slice(keys, func(i, j int) bool { return mapKeyLess(keys[i], keys[j]) })
	}
	for _, k := range keys {
		v, _ := mp.Get(k)
		var entry codec.Buffer
		if !isZeroValue(k) {
			if err := m.marshalSingle(&entry, kfd, k, deterministic); err != nil {
				return err
			}
		}
		if _, isMsg := v.(*Message); isMsg || !isZeroValue(v) {
			if err := m.marshalSingle(&entry, vfd, v, deterministic); err != nil {
				return err
			}
		}
		if err := b.EncodeTagAndWireType(fd.GetNumber(), codec.WireBytes); err != nil {
			return wrapEncodeErr(m, fd, err)
		}
		if err := b.EncodeRawBytes(entry.Bytes()); err != nil {
			return wrapEncodeErr(m, fd, err)
		}
	}
	return nil
}

func (m *Message) marshalPacked(b *codec.Buffer, fd *desc.FieldDescriptor, vals []interface{}) error {
	var packed codec.Buffer
	for _, e := range vals {
		if err := m.marshalScalar(&packed, fd, e); err != nil {
			return err
		}
	}
	if err := b.EncodeTagAndWireType(fd.GetNumber(), codec.WireBytes); err != nil {
		return wrapEncodeErr(m, fd, err)
	}
	return b.EncodeRawBytes(packed.Bytes())
}

// marshalSingle writes one tagged record: tag then value.
func (m *Message) marshalSingle(b *codec.Buffer, fd *desc.FieldDescriptor, val interface{}, deterministic bool) error {
	t := fd.GetType()
	switch t {
	case dpb.FieldDescriptorProto_TYPE_MESSAGE:
		dm, ok := val.(*Message)
		if !ok {
			return badEncodeType(m, fd, "*dynamic.Message", val)
		}
		var nested codec.Buffer
		if dm != nil {
			if err := dm.marshal(&nested, deterministic); err != nil {
				return err
			}
		}
		if err := b.EncodeTagAndWireType(fd.GetNumber(), codec.WireBytes); err != nil {
			return wrapEncodeErr(m, fd, err)
		}
		return b.EncodeRawBytes(nested.Bytes())

	case dpb.FieldDescriptorProto_TYPE_GROUP:
		dm, ok := val.(*Message)
		if !ok {
			return badEncodeType(m, fd, "*dynamic.Message", val)
		}
		if err := b.EncodeTagAndWireType(fd.GetNumber(), codec.WireStartGroup); err != nil {
			return wrapEncodeErr(m, fd, err)
		}
		if dm != nil {
			if err := dm.marshal(b, deterministic); err != nil {
				return err
			}
		}
		return b.EncodeTagAndWireType(fd.GetNumber(), codec.WireEndGroup)

	default:
		if err := b.EncodeTagAndWireType(fd.GetNumber(), wireTypeForKind(t)); err != nil {
			return wrapEncodeErr(m, fd, err)
		}
		return m.marshalScalar(b, fd, val)
	}
}

// marshalScalar writes the value portion of a scalar record, without a tag.
func (m *Message) marshalScalar(b *codec.Buffer, fd *desc.FieldDescriptor, val interface{}) error {
	switch fd.GetType() {
	case dpb.FieldDescriptorProto_TYPE_BOOL:
		v, ok := val.(bool)
		if !ok {
			return badEncodeType(m, fd, "bool", val)
		}
		var x uint64
		if v {
			x = 1
		}
		return b.EncodeVarint(x)

	case dpb.FieldDescriptorProto_TYPE_INT32, dpb.FieldDescriptorProto_TYPE_ENUM:
		v, ok := val.(int32)
		if !ok {
			return badEncodeType(m, fd, "int32", val)
		}
		// negative values sign-extend to ten bytes
		return b.EncodeVarint(uint64(int64(v)))

	case dpb.FieldDescriptorProto_TYPE_INT64:
		v, ok := val.(int64)
		if !ok {
			return badEncodeType(m, fd, "int64", val)
		}
		return b.EncodeVarint(uint64(v))

	case dpb.FieldDescriptorProto_TYPE_UINT32:
		v, ok := val.(uint32)
		if !ok {
			return badEncodeType(m, fd, "uint32", val)
		}
		return b.EncodeVarint(uint64(v))

	case dpb.FieldDescriptorProto_TYPE_UINT64:
		v, ok := val.(uint64)
		if !ok {
			return badEncodeType(m, fd, "uint64", val)
		}
		return b.EncodeVarint(v)

	case dpb.FieldDescriptorProto_TYPE_SINT32:
		v, ok := val.(int32)
		if !ok {
			return badEncodeType(m, fd, "int32", val)
		}
		return b.EncodeVarint(codec.EncodeZigZag32(v))

	case dpb.FieldDescriptorProto_TYPE_SINT64:
		v, ok := val.(int64)
		if !ok {
			return badEncodeType(m, fd, "int64", val)
		}
		return b.EncodeVarint(codec.EncodeZigZag64(v))

	case dpb.FieldDescriptorProto_TYPE_FIXED32:
		v, ok := val.(uint32)
		if !ok {
			return badEncodeType(m, fd, "uint32", val)
		}
		return b.EncodeFixed32(uint64(v))

	case dpb.FieldDescriptorProto_TYPE_SFIXED32:
		v, ok := val.(int32)
		if !ok {
			return badEncodeType(m, fd, "int32", val)
		}
		return b.EncodeFixed32(uint64(uint32(v)))

	case dpb.FieldDescriptorProto_TYPE_FLOAT:
		v, ok := val.(float32)
		if !ok {
			return badEncodeType(m, fd, "float32", val)
		}
		return b.EncodeFixed32(uint64(math.Float32bits(v)))

	case dpb.FieldDescriptorProto_TYPE_FIXED64:
		v, ok := val.(uint64)
		if !ok {
			return badEncodeType(m, fd, "uint64", val)
		}
		return b.EncodeFixed64(v)

	case dpb.FieldDescriptorProto_TYPE_SFIXED64:
		v, ok := val.(int64)
		if !ok {
			return badEncodeType(m, fd, "int64", val)
		}
		return b.EncodeFixed64(uint64(v))

	case dpb.FieldDescriptorProto_TYPE_DOUBLE:
		v, ok := val.(float64)
		if !ok {
			return badEncodeType(m, fd, "float64", val)
		}
		return b.EncodeFixed64(math.Float64bits(v))

	case dpb.FieldDescriptorProto_TYPE_STRING:
		v, ok := val.(string)
		if !ok {
			return badEncodeType(m, fd, "string", val)
		}
		if !utf8.ValidString(v) {
			return encodeErrf(m.md.GetFullyQualifiedName(), fd.GetName(), "string field contains invalid UTF-8")
		}
		return b.EncodeRawBytes(([]byte)(v))

	case dpb.FieldDescriptorProto_TYPE_BYTES:
		v, ok := val.([]byte)
		if !ok {
			return badEncodeType(m, fd, "[]byte", val)
		}
		return b.EncodeRawBytes(v)

	default:
		return encodeErrf(m.md.GetFullyQualifiedName(), fd.GetName(), "unexpected type %v", fd.GetType())
	}
}

// marshalUnknownField re-emits one retained unknown record verbatim.
func marshalUnknownField(b *codec.Buffer, u UnknownField) error {
	if err := b.EncodeTagAndWireType(u.Number, u.Encoding); err != nil {
		return err
	}
	switch u.Encoding {
	case codec.WireVarint:
		return b.EncodeVarint(u.Value)
	case codec.WireFixed32:
		return b.EncodeFixed32(u.Value)
	case codec.WireFixed64:
		return b.EncodeFixed64(u.Value)
	case codec.WireBytes:
		return b.EncodeRawBytes(u.Contents)
	case codec.WireStartGroup:
		if _, err := b.Write(u.Contents); err != nil {
			return err
		}
		return b.EncodeTagAndWireType(u.Number, codec.WireEndGroup)
	default:
		return fmt.Errorf("unknown field has unrecognized encoding %d", u.Encoding)
	}
}

func badEncodeType(m *Message, fd *desc.FieldDescriptor, want string, got interface{}) error {
	return encodeErrf(m.md.GetFullyQualifiedName(), fd.GetName(), "stored value must be %s, not %T", want, got)
}

func wrapEncodeErr(m *Message, fd *desc.FieldDescriptor, err error) error {
	name := ""
	if fd != nil {
		name = fd.GetName()
	}
	return &EncodeError{MessageName: m.md.GetFullyQualifiedName(), FieldName: name, Underlying: err}
}

// Unmarshal replaces the message's contents with the wire-format data in b.
// It fails if the data is malformed or, for proto2 types, if a required
// field is missing afterwards.
func (m *Message) Unmarshal(b []byte) error {
	m.Reset()
	if err := m.UnmarshalMerge(b); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return &DecodeError{MessageName: m.md.GetFullyQualifiedName(), Underlying: err}
	}
	return nil
}

// UnmarshalMerge decodes the wire-format data in b into the message without
// first resetting it: repeated fields are extended, singular messages are
// merged, and singular scalars are replaced.
func (m *Message) UnmarshalMerge(b []byte) error {
	return m.unmarshal(codec.NewBuffer(b), 0)
}

// unmarshal decodes records until the buffer is exhausted or, when
// groupTag is non-zero, until the matching end-group record.
func (m *Message) unmarshal(buf *codec.Buffer, groupTag int32) error {
	msgName := m.md.GetFullyQualifiedName()
	for !buf.EOF() {
		tag, wt, err := buf.DecodeTagAndWireType()
		if err != nil {
			return wrapDecodeErr(msgName, "", err)
		}
		if tag < 1 {
			return decodeErrf(msgName, "", "invalid tag number: %d", tag)
		}
		if wt == codec.WireEndGroup {
			if groupTag == 0 {
				return decodeErrf(msgName, "", "unexpected end-group tag")
			}
			if tag != groupTag {
				return decodeErrf(msgName, "", "end-group tag %d does not match start-group tag %d", tag, groupTag)
			}
			return nil
		}
		fd := m.FindFieldDescriptor(tag)
		if fd == nil {
			if err := m.unmarshalUnknownField(buf, tag, wt); err != nil {
				return wrapDecodeErr(msgName, "", err)
			}
			continue
		}
		if err := m.unmarshalKnownField(buf, fd, wt); err != nil {
			return err
		}
	}
	if groupTag != 0 {
		return wrapDecodeErr(msgName, "", io.ErrUnexpectedEOF)
	}
	return nil
}

// unmarshalUnknownField consumes one record for an unrecognized tag and
// retains it.
func (m *Message) unmarshalUnknownField(buf *codec.Buffer, tag int32, wt int8) error {
	u := UnknownField{Number: tag, Encoding: wt}
	var err error
	switch wt {
	case codec.WireVarint:
		u.Value, err = buf.DecodeVarint()
	case codec.WireFixed32:
		u.Value, err = buf.DecodeFixed32()
	case codec.WireFixed64:
		u.Value, err = buf.DecodeFixed64()
	case codec.WireBytes:
		u.Contents, err = buf.DecodeRawBytes(true)
	case codec.WireStartGroup:
		u.Contents, err = buf.ReadGroup(true)
	default:
		return codec.ErrBadWireType
	}
	if err != nil {
		return err
	}
	m.unknownFields = append(m.unknownFields, u)
	return nil
}

func (m *Message) unmarshalKnownField(buf *codec.Buffer, fd *desc.FieldDescriptor, wt int8) error {
	msgName := m.md.GetFullyQualifiedName()
	t := fd.GetType()

	switch t {
	case dpb.FieldDescriptorProto_TYPE_GROUP:
		if wt != codec.WireStartGroup {
			return badWireType(m, fd, wt)
		}
		dm := m.messageToDecodeInto(fd)
		if err := dm.unmarshal(buf, fd.GetNumber()); err != nil {
			return err
		}
		return m.storeDecodedMessage(fd, dm)

	case dpb.FieldDescriptorProto_TYPE_MESSAGE:
		if wt != codec.WireBytes {
			return badWireType(m, fd, wt)
		}
		raw, err := buf.DecodeRawBytes(false)
		if err != nil {
			return wrapDecodeErr(msgName, fd.GetName(), err)
		}
		if fd.IsMap() {
			return m.unmarshalMapEntry(fd, raw)
		}
		dm := m.messageToDecodeInto(fd)
		if err := dm.unmarshal(codec.NewBuffer(raw), 0); err != nil {
			return err
		}
		return m.storeDecodedMessage(fd, dm)
	}

	// scalar kinds; a length-delimited record for a packable kind holds a
	// packed run regardless of the field's declared packing
	if wt == codec.WireBytes && t != dpb.FieldDescriptorProto_TYPE_STRING && t != dpb.FieldDescriptorProto_TYPE_BYTES {
		if !fd.IsRepeated() {
			return badWireType(m, fd, wt)
		}
		raw, err := buf.DecodeRawBytes(false)
		if err != nil {
			return wrapDecodeErr(msgName, fd.GetName(), err)
		}
		packed := codec.NewBuffer(raw)
		var vals []interface{}
		for !packed.EOF() {
			v, err := m.unmarshalScalar(packed, fd, wireTypeForKind(t))
			if err != nil {
				return err
			}
			vals = append(vals, v)
		}
		return m.storeDecodedScalars(fd, vals)
	}

	if wt != wireTypeForKind(t) {
		return badWireType(m, fd, wt)
	}
	v, err := m.unmarshalScalar(buf, fd, wt)
	if err != nil {
		return err
	}
	return m.storeDecodedScalars(fd, []interface{}{v})
}

// messageToDecodeInto returns the message a nested record should decode
// into: the existing value for singular merging, otherwise a fresh one.
func (m *Message) messageToDecodeInto(fd *desc.FieldDescriptor) *Message {
	if !fd.IsRepeated() {
		if existing, ok := m.values[fd.GetNumber()].(*Message); ok && existing != nil {
			return existing
		}
	}
	return NewMessageWithExtensionRegistry(fd.GetMessageType(), m.er)
}

func (m *Message) storeDecodedMessage(fd *desc.FieldDescriptor, dm *Message) error {
	if fd.IsRepeated() {
		sl, _ := m.values[fd.GetNumber()].([]interface{})
		m.internalSetField(fd, append(sl, dm))
		return nil
	}
	m.internalSetField(fd, dm)
	return nil
}

func (m *Message) storeDecodedScalars(fd *desc.FieldDescriptor, vals []interface{}) error {
	if fd.IsRepeated() {
		sl, _ := m.values[fd.GetNumber()].([]interface{})
		m.internalSetField(fd, append(sl, vals...))
		return nil
	}
	// non-repeated: last record wins
	m.internalSetField(fd, vals[len(vals)-1])
	return nil
}

// unmarshalMapEntry decodes one map entry record and stores it; a repeated
// key overwrites the earlier entry.
func (m *Message) unmarshalMapEntry(fd *desc.FieldDescriptor, raw []byte) error {
	entryMd := fd.GetMessageType()
	entry := NewMessageWithExtensionRegistry(entryMd, m.er)
	if err := entry.unmarshal(codec.NewBuffer(raw), 0); err != nil {
		return err
	}
	entryFields := entryMd.GetFields()
	kfd, vfd := entryFields[0], entryFields[1]

	k, err := entry.doGetField(kfd, false)
	if err != nil {
		return wrapDecodeErr(m.md.GetFullyQualifiedName(), fd.GetName(), err)
	}
	v, err := entry.doGetField(vfd, false)
	if err != nil {
		return wrapDecodeErr(m.md.GetFullyQualifiedName(), fd.GetName(), err)
	}
	// an absent message value decodes as an empty message, not nil
	if dm, ok := v.(*Message); ok && dm == nil {
		v = NewMessageWithExtensionRegistry(vfd.GetMessageType(), m.er)
	}

	mp, ok := m.values[fd.GetNumber()].(*Map)
	if !ok || mp == nil {
		mp = NewMap()
		mp.Put(k, v)
		m.internalSetField(fd, mp)
		return nil
	}
	mp.Put(k, v)
	return nil
}

// unmarshalScalar decodes the value portion of one scalar record.
func (m *Message) unmarshalScalar(buf *codec.Buffer, fd *desc.FieldDescriptor, wt int8) (interface{}, error) {
	msgName := m.md.GetFullyQualifiedName()
	var raw uint64
	var err error
	switch wt {
	case codec.WireVarint:
		raw, err = buf.DecodeVarint()
	case codec.WireFixed32:
		raw, err = buf.DecodeFixed32()
	case codec.WireFixed64:
		raw, err = buf.DecodeFixed64()
	case codec.WireBytes:
		var b []byte
		b, err = buf.DecodeRawBytes(true)
		if err != nil {
			return nil, wrapDecodeErr(msgName, fd.GetName(), err)
		}
		if fd.GetType() == dpb.FieldDescriptorProto_TYPE_STRING {
			if !utf8.Valid(b) {
				return nil, decodeErrf(msgName, fd.GetName(), "string field contains invalid UTF-8")
			}
			return string(b), nil
		}
		return b, nil
	default:
		return nil, badWireType(m, fd, wt)
	}
	if err != nil {
		return nil, wrapDecodeErr(msgName, fd.GetName(), err)
	}

	switch fd.GetType() {
	case dpb.FieldDescriptorProto_TYPE_BOOL:
		return raw != 0, nil
	case dpb.FieldDescriptorProto_TYPE_INT32, dpb.FieldDescriptorProto_TYPE_ENUM:
		return int32(raw), nil
	case dpb.FieldDescriptorProto_TYPE_INT64:
		return int64(raw), nil
	case dpb.FieldDescriptorProto_TYPE_UINT32:
		return uint32(raw), nil
	case dpb.FieldDescriptorProto_TYPE_UINT64:
		return raw, nil
	case dpb.FieldDescriptorProto_TYPE_SINT32:
		return codec.DecodeZigZag32(raw), nil
	case dpb.FieldDescriptorProto_TYPE_SINT64:
		return codec.DecodeZigZag64(raw), nil
	case dpb.FieldDescriptorProto_TYPE_FIXED32:
		return uint32(raw), nil
	case dpb.FieldDescriptorProto_TYPE_SFIXED32:
		return int32(raw), nil
	case dpb.FieldDescriptorProto_TYPE_FLOAT:
		return math.Float32frombits(uint32(raw)), nil
	case dpb.FieldDescriptorProto_TYPE_FIXED64:
		return raw, nil
	case dpb.FieldDescriptorProto_TYPE_SFIXED64:
		return int64(raw), nil
	case dpb.FieldDescriptorProto_TYPE_DOUBLE:
		return math.Float64frombits(raw), nil
	default:
		return nil, decodeErrf(msgName, fd.GetName(), "unexpected type %v", fd.GetType())
	}
}

func badWireType(m *Message, fd *desc.FieldDescriptor, wt int8) error {
	return decodeErrf(m.md.GetFullyQualifiedName(), fd.GetName(), "wire type %d cannot hold field type %v", wt, fd.GetType())
}

// parseUnknownField is invoked when a field lookup finds retained unknown
// data under the field's tag number, which happens when an extension
// becomes known only after decoding. The raw records are re-decoded through
// the regular path and promoted to a known field value.
func (m *Message) parseUnknownField(fd *desc.FieldDescriptor) (interface{}, error) {
	if len(m.unknownFields) == 0 {
		return nil, nil
	}
	n := fd.GetNumber()
	var replay codec.Buffer
	found := false
	for _, u := range m.unknownFields {
		if u.Number != n {
			continue
		}
		found = true
		if err := marshalUnknownField(&replay, u); err != nil {
			return nil, wrapDecodeErr(m.md.GetFullyQualifiedName(), fd.GetName(), err)
		}
	}
	if !found {
		return nil, nil
	}
	buf := codec.NewBuffer(replay.Bytes())
	for !buf.EOF() {
		_, wt, err := buf.DecodeTagAndWireType()
		if err != nil {
			return nil, wrapDecodeErr(m.md.GetFullyQualifiedName(), fd.GetName(), err)
		}
		if err := m.unmarshalKnownField(buf, fd, wt); err != nil {
			return nil, err
		}
	}
	m.dropUnknownsFor(n)
	if m.md.FindFieldByNumber(n) == nil && m.extraFields[n] == nil {
		m.addField(fd)
	}
	return m.values[n], nil
}
