package dynamic

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/slientgoat/prost-reflect/desc"
	dpb "google.golang.org/protobuf/types/descriptorpb"
)

// MarshalJSONOptions controls the JSON produced by MarshalJSONPB. The zero
// value yields the canonical mapping: compact output, camel-cased names,
// enums by name, and unset fields omitted.
type MarshalJSONOptions struct {
	// EmitDefaults also emits fields that are unset: zero values for
	// scalars, null for message fields, and empty collections. Unset oneof
	// members and extensions are still omitted.
	EmitDefaults bool
	// EnumsAsInts emits enum fields by number even when the number has a
	// declared name.
	EnumsAsInts bool
	// OrigName uses the field names from the .proto source instead of
	// their camel-cased JSON names.
	OrigName bool
	// Indent, when non-empty, pretty-prints the output using the given
	// string once per nesting level.
	Indent string
}

// UnmarshalJSONOptions controls UnmarshalJSONPB.
type UnmarshalJSONOptions struct {
	// DisallowUnknownFields rejects object members that do not correspond
	// to any field of the message instead of skipping them.
	DisallowUnknownFields bool
}

// MarshalJSON serializes the message using the canonical JSON mapping:
// camel-cased names, 64-bit integers as strings, bytes as base64, enums by
// name, and the special forms for the well-known types.
func (m *Message) MarshalJSON() ([]byte, error) {
	return m.MarshalJSONPB(&MarshalJSONOptions{})
}

// MarshalJSONIndent is like MarshalJSON with two-space indentation.
func (m *Message) MarshalJSONIndent() ([]byte, error) {
	return m.MarshalJSONPB(&MarshalJSONOptions{Indent: "  "})
}

// MarshalJSONPB serializes the message to JSON per the given options.
func (m *Message) MarshalJSONPB(opts *MarshalJSONOptions) ([]byte, error) {
	var b indentBuffer
	b.indent = opts.Indent
	if len(opts.Indent) == 0 {
		b.indentCount = -1
	}
	b.comma = true
	if err := m.marshalJSON(&b, opts); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (m *Message) marshalJSON(b *indentBuffer, opts *MarshalJSONOptions) error {
	if m == nil {
		_, err := b.WriteString("null")
		return err
	}
	if isWellKnownType(m.md.GetFullyQualifiedName()) {
		return m.marshalWellKnownJSON(b, opts)
	}

	if err := b.WriteByte('{'); err != nil {
		return err
	}
	if err := b.start(); err != nil {
		return err
	}
	first := true
	if err := m.marshalFieldsJSON(b, opts, &first); err != nil {
		return err
	}
	if err := b.end(); err != nil {
		return err
	}
	return b.WriteByte('}')
}

// marshalFieldsJSON writes the message's fields as object members, without
// the enclosing braces.
func (m *Message) marshalFieldsJSON(b *indentBuffer, opts *MarshalJSONOptions, first *bool) error {
	var tags []int
	if opts.EmitDefaults {
		tags = m.allKnownFieldTags()
	} else {
		tags = m.knownFieldTags()
	}

	for _, tag := range tags {
		itag := int32(tag)
		fd := m.FindFieldDescriptor(itag)
		v, set := m.values[itag]
		if !set {
			// only reachable with EmitDefaults
			if fd.IsExtension() || fd.GetOneOf() != nil {
				continue
			}
			v = defaultFieldValue(fd)
		}
		if err := b.maybeNext(first); err != nil {
			return err
		}
		if err := m.marshalFieldJSON(b, fd, v, opts); err != nil {
			return err
		}
	}
	return nil
}

func (m *Message) marshalFieldJSON(b *indentBuffer, fd *desc.FieldDescriptor, v interface{}, opts *MarshalJSONOptions) error {
	var name string
	switch {
	case fd.IsExtension():
		name = fmt.Sprintf("[%s]", fd.GetFullyQualifiedName())
	case opts.OrigName:
		name = fd.GetName()
	default:
		name = fd.GetJSONName()
	}
	if err := writeJSONString(b, name); err != nil {
		return err
	}
	if err := b.sep(); err != nil {
		return err
	}

	switch val := v.(type) {
	case *Map:
		return m.marshalMapJSON(b, fd, val, opts)
	case []interface{}:
		if err := b.WriteByte('['); err != nil {
			return err
		}
		if err := b.start(); err != nil {
			return err
		}
		first := true
		for _, e := range val {
			if err := b.maybeNext(&first); err != nil {
				return err
			}
			if err := m.marshalValueJSON(b, fd, e, opts); err != nil {
				return err
			}
		}
		if err := b.end(); err != nil {
			return err
		}
		return b.WriteByte(']')
	default:
		return m.marshalValueJSON(b, fd, v, opts)
	}
}

func (m *Message) marshalMapJSON(b *indentBuffer, fd *desc.FieldDescriptor, mp *Map, opts *MarshalJSONOptions) error {
	vfd := fd.GetMessageType().GetFields()[1]
	if err := b.WriteByte('{'); err != nil {
		return err
	}
	if err := b.start(); err != nil {
		return err
	}
	first := true
	var err error
	mp.Range(func(k, v interface{}) bool {
		if err = b.maybeNext(&first); err != nil {
			return false
		}
		// map keys are always JSON strings
		if err = writeJSONString(b, mapKeyString(k)); err != nil {
			return false
		}
		if err = b.sep(); err != nil {
			return false
		}
		err = m.marshalValueJSON(b, vfd, v, opts)
		return err == nil
	})
	if err != nil {
		return err
	}
	if err := b.end(); err != nil {
		return err
	}
	return b.WriteByte('}')
}

func mapKeyString(k interface{}) string {
	switch v := k.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (m *Message) marshalValueJSON(b *indentBuffer, fd *desc.FieldDescriptor, v interface{}, opts *MarshalJSONOptions) error {
	switch val := v.(type) {
	case *Message:
		return val.marshalJSON(b, opts)

	case bool:
		_, err := b.WriteString(strconv.FormatBool(val))
		return err

	case int32:
		if fd.GetType() == dpb.FieldDescriptorProto_TYPE_ENUM {
			et := fd.GetEnumType()
			if et.GetFullyQualifiedName() == nullValueTypeName {
				_, err := b.WriteString("null")
				return err
			}
			if !opts.EnumsAsInts {
				if evd := et.FindValueByNumber(val); evd != nil {
					return writeJSONString(b, evd.GetName())
				}
			}
		}
		_, err := b.WriteString(strconv.FormatInt(int64(val), 10))
		return err

	case uint32:
		_, err := b.WriteString(strconv.FormatUint(uint64(val), 10))
		return err

	case int64:
		// 64-bit values are strings so JavaScript readers keep precision
		return writeJSONString(b, strconv.FormatInt(val, 10))

	case uint64:
		return writeJSONString(b, strconv.FormatUint(val, 10))

	case float32:
		return writeJSONFloat(b, float64(val), 32)

	case float64:
		return writeJSONFloat(b, val, 64)

	case string:
		return writeJSONString(b, val)

	case []byte:
		return writeJSONString(b, base64.StdEncoding.EncodeToString(val))

	default:
		return jsonErrf(m.md.GetFullyQualifiedName(), fd.GetName(), "unexpected stored type %T", v)
	}
}

func writeJSONFloat(b *indentBuffer, f float64, bits int) error {
	switch {
	case math.IsNaN(f):
		return writeJSONString(b, "NaN")
	case math.IsInf(f, 1):
		return writeJSONString(b, "Infinity")
	case math.IsInf(f, -1):
		return writeJSONString(b, "-Infinity")
	}
	_, err := b.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return err
}

func writeJSONString(b *indentBuffer, s string) error {
	enc, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = b.Write(enc)
	return err
}

// UnmarshalJSON replaces the message's contents by parsing the given JSON,
// accepting both camel-cased JSON names and original field names. It fails
// if the input is not valid JSON for the message's type or, for proto2
// types, if a required field is missing afterwards.
func (m *Message) UnmarshalJSON(js []byte) error {
	return m.unmarshalJSON(js, true, &UnmarshalJSONOptions{})
}

// UnmarshalMergeJSON is like UnmarshalJSON but does not reset the message
// first; fields present in the JSON replace their current values and other
// fields are left alone.
func (m *Message) UnmarshalMergeJSON(js []byte) error {
	return m.unmarshalJSON(js, false, &UnmarshalJSONOptions{})
}

// UnmarshalJSONPB is like UnmarshalJSON with explicit options.
func (m *Message) UnmarshalJSONPB(opts *UnmarshalJSONOptions, js []byte) error {
	return m.unmarshalJSON(js, true, opts)
}

func (m *Message) unmarshalJSON(js []byte, reset bool, opts *UnmarshalJSONOptions) error {
	if reset {
		m.Reset()
	}
	r := newJsReader(js)
	if err := m.unmarshalJSONStream(r, opts); err != nil {
		return wrapJsonErr(m.md.GetFullyQualifiedName(), "", err)
	}
	if t, err := r.poll(); err != io.EOF {
		return jsonErrf(m.md.GetFullyQualifiedName(), "", "superfluous data found after JSON object: %v", t)
	}
	if err := m.Validate(); err != nil {
		return &JsonError{MessageName: m.md.GetFullyQualifiedName(), Underlying: err}
	}
	return nil
}

func (m *Message) unmarshalJSONStream(r *jsReader, opts *UnmarshalJSONOptions) error {
	if isWellKnownType(m.md.GetFullyQualifiedName()) {
		return m.unmarshalWellKnownJSON(r, opts)
	}
	return m.unmarshalJSONObject(r, opts)
}

func (m *Message) unmarshalJSONObject(r *jsReader, opts *UnmarshalJSONOptions) error {
	if err := r.beginObject(); err != nil {
		return err
	}
	for r.hasNext() {
		key, err := r.nextObjectKey()
		if err != nil {
			return err
		}
		fd := m.FindFieldDescriptorByJSONName(key)
		if fd == nil {
			if opts.DisallowUnknownFields {
				return jsonErrf(m.md.GetFullyQualifiedName(), "", "message has no field named %q", key)
			}
			if err := r.skip(); err != nil {
				return err
			}
			continue
		}
		if err := m.unmarshalFieldJSON(r, fd, opts); err != nil {
			return wrapJsonErr(m.md.GetFullyQualifiedName(), fd.GetName(), err)
		}
	}
	return r.endObject()
}

func (m *Message) unmarshalFieldJSON(r *jsReader, fd *desc.FieldDescriptor, opts *UnmarshalJSONOptions) error {
	t, err := r.peek()
	if err != nil {
		return err
	}

	if t == nil {
		// null clears the field, except that a Value field treats null as
		// a real value
		if fd.GetMessageType() != nil && fd.GetMessageType().GetFullyQualifiedName() == valueTypeName && !fd.IsRepeated() {
			val := NewMessageWithExtensionRegistry(fd.GetMessageType(), m.er)
			if err := val.unmarshalWellKnownJSON(r, opts); err != nil {
				return err
			}
			m.internalSetField(fd, val)
			return nil
		}
		if _, err := r.poll(); err != nil {
			return err
		}
		m.unsetField(fd)
		return nil
	}

	if fd.IsMap() {
		return m.unmarshalMapJSON(r, fd, t, opts)
	}

	if fd.IsRepeated() {
		var vals []interface{}
		if t == json.Delim('[') {
			if err := r.beginArray(); err != nil {
				return err
			}
			for r.hasNext() {
				v, err := m.unmarshalElementJSON(r, fd, opts)
				if err != nil {
					return err
				}
				if v != nil {
					vals = append(vals, v)
				}
			}
			if err := r.endArray(); err != nil {
				return err
			}
		} else {
			// a bare value is accepted as a single-element list
			v, err := m.unmarshalElementJSON(r, fd, opts)
			if err != nil {
				return err
			}
			if v != nil {
				vals = append(vals, v)
			}
		}
		m.internalSetField(fd, vals)
		return nil
	}

	if t == json.Delim('[') {
		return fmt.Errorf("field %s is not repeated but value is an array", fd.GetName())
	}

	v, err := m.unmarshalElementJSON(r, fd, opts)
	if err != nil {
		return err
	}
	if v == nil {
		m.unsetField(fd)
		return nil
	}
	m.internalSetField(fd, v)
	return nil
}

func (m *Message) unmarshalMapJSON(r *jsReader, fd *desc.FieldDescriptor, t json.Token, opts *UnmarshalJSONOptions) error {
	entryFields := fd.GetMessageType().GetFields()
	kfd, vfd := entryFields[0], entryFields[1]

	mp := NewMap()

	if t == json.Delim('[') {
		// tolerated alternative: an array of entry messages, mirroring the
		// wire representation
		if err := r.beginArray(); err != nil {
			return err
		}
		for r.hasNext() {
			entry := NewMessageWithExtensionRegistry(fd.GetMessageType(), m.er)
			if err := entry.unmarshalJSONObject(r, opts); err != nil {
				return err
			}
			k, err := entry.doGetField(kfd, false)
			if err != nil {
				return err
			}
			v, err := entry.doGetField(vfd, false)
			if err != nil {
				return err
			}
			if dm, ok := v.(*Message); ok && dm == nil {
				v = NewMessageWithExtensionRegistry(vfd.GetMessageType(), m.er)
			}
			mp.Put(k, v)
		}
		if err := r.endArray(); err != nil {
			return err
		}
		m.internalSetField(fd, mp)
		return nil
	}

	if err := r.beginObject(); err != nil {
		return err
	}
	for r.hasNext() {
		keyStr, err := r.nextObjectKey()
		if err != nil {
			return err
		}
		k, err := parseMapKey(kfd, keyStr)
		if err != nil {
			return err
		}
		v, err := m.unmarshalElementJSON(r, vfd, opts)
		if err != nil {
			return err
		}
		if v == nil {
			// null is not a valid map value; treat as the default
			v = defaultMapValue(vfd, m.er)
		}
		mp.Put(k, v)
	}
	if err := r.endObject(); err != nil {
		return err
	}
	m.internalSetField(fd, mp)
	return nil
}

func defaultMapValue(vfd *desc.FieldDescriptor, er *ExtensionRegistry) interface{} {
	if md := vfd.GetMessageType(); md != nil {
		return NewMessageWithExtensionRegistry(md, er)
	}
	return defaultFieldValue(vfd)
}

func parseMapKey(kfd *desc.FieldDescriptor, s string) (interface{}, error) {
	switch kfd.GetType() {
	case dpb.FieldDescriptorProto_TYPE_STRING:
		return s, nil
	case dpb.FieldDescriptorProto_TYPE_BOOL:
		switch s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid bool map key %q", s)
	case dpb.FieldDescriptorProto_TYPE_INT32, dpb.FieldDescriptorProto_TYPE_SINT32, dpb.FieldDescriptorProto_TYPE_SFIXED32:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid int32 map key %q", s)
		}
		return int32(i), nil
	case dpb.FieldDescriptorProto_TYPE_INT64, dpb.FieldDescriptorProto_TYPE_SINT64, dpb.FieldDescriptorProto_TYPE_SFIXED64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int64 map key %q", s)
		}
		return i, nil
	case dpb.FieldDescriptorProto_TYPE_UINT32, dpb.FieldDescriptorProto_TYPE_FIXED32:
		u, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid uint32 map key %q", s)
		}
		return uint32(u), nil
	case dpb.FieldDescriptorProto_TYPE_UINT64, dpb.FieldDescriptorProto_TYPE_FIXED64:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid uint64 map key %q", s)
		}
		return u, nil
	default:
		return nil, fmt.Errorf("invalid map key type %v", kfd.GetType())
	}
}

// unmarshalElementJSON parses one value of the field's element type. It
// returns nil (with no error) when the input is a null literal for a field
// where null means absent.
func (m *Message) unmarshalElementJSON(r *jsReader, fd *desc.FieldDescriptor, opts *UnmarshalJSONOptions) (interface{}, error) {
	t, err := r.peek()
	if err != nil {
		return nil, err
	}

	switch fd.GetType() {
	case dpb.FieldDescriptorProto_TYPE_MESSAGE, dpb.FieldDescriptorProto_TYPE_GROUP:
		md := fd.GetMessageType()
		if t == nil && md.GetFullyQualifiedName() != valueTypeName {
			if _, err := r.poll(); err != nil {
				return nil, err
			}
			return nil, nil
		}
		nested := NewMessageWithExtensionRegistry(md, m.er)
		if err := nested.unmarshalJSONStream(r, opts); err != nil {
			return nil, err
		}
		return nested, nil

	case dpb.FieldDescriptorProto_TYPE_ENUM:
		et := fd.GetEnumType()
		if t == nil {
			// null is the one value of NullValue
			if _, err := r.poll(); err != nil {
				return nil, err
			}
			if et.GetFullyQualifiedName() == nullValueTypeName {
				return int32(0), nil
			}
			return nil, nil
		}
		if s, ok := t.(string); ok {
			if _, err := r.poll(); err != nil {
				return nil, err
			}
			if evd := et.FindValueByName(s); evd != nil {
				return evd.GetNumber(), nil
			}
			// an enum name can also arrive as a stringified number
			if i, err := strconv.ParseInt(s, 10, 32); err == nil {
				return int32(i), nil
			}
			return nil, fmt.Errorf("enum %s has no value named %q", et.GetFullyQualifiedName(), s)
		}
		i, err := r.nextInt()
		if err != nil {
			return nil, err
		}
		if i > math.MaxInt32 || i < math.MinInt32 {
			return nil, NumericOverflowError
		}
		return int32(i), nil

	case dpb.FieldDescriptorProto_TYPE_INT32, dpb.FieldDescriptorProto_TYPE_SINT32, dpb.FieldDescriptorProto_TYPE_SFIXED32:
		if t == nil {
			return nullScalar(r)
		}
		i, err := r.nextInt()
		if err != nil {
			return nil, err
		}
		if i > math.MaxInt32 || i < math.MinInt32 {
			return nil, NumericOverflowError
		}
		return int32(i), nil

	case dpb.FieldDescriptorProto_TYPE_INT64, dpb.FieldDescriptorProto_TYPE_SINT64, dpb.FieldDescriptorProto_TYPE_SFIXED64:
		if t == nil {
			return nullScalar(r)
		}
		return r.nextInt()

	case dpb.FieldDescriptorProto_TYPE_UINT32, dpb.FieldDescriptorProto_TYPE_FIXED32:
		if t == nil {
			return nullScalar(r)
		}
		u, err := r.nextUint()
		if err != nil {
			return nil, err
		}
		if u > math.MaxUint32 {
			return nil, NumericOverflowError
		}
		return uint32(u), nil

	case dpb.FieldDescriptorProto_TYPE_UINT64, dpb.FieldDescriptorProto_TYPE_FIXED64:
		if t == nil {
			return nullScalar(r)
		}
		return r.nextUint()

	case dpb.FieldDescriptorProto_TYPE_FLOAT:
		if t == nil {
			return nullScalar(r)
		}
		f, err := r.nextFloat()
		if err != nil {
			return nil, err
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, NumericOverflowError
		}
		return float32(f), nil

	case dpb.FieldDescriptorProto_TYPE_DOUBLE:
		if t == nil {
			return nullScalar(r)
		}
		return r.nextFloat()

	case dpb.FieldDescriptorProto_TYPE_BOOL:
		if t == nil {
			return nullScalar(r)
		}
		return r.nextBool()

	case dpb.FieldDescriptorProto_TYPE_STRING:
		if t == nil {
			return nullScalar(r)
		}
		return r.nextString()

	case dpb.FieldDescriptorProto_TYPE_BYTES:
		if t == nil {
			return nullScalar(r)
		}
		return r.nextBytes()

	default:
		return nil, fmt.Errorf("unexpected field type %v", fd.GetType())
	}
}

// nullScalar consumes a null literal and reports the value as absent.
func nullScalar(r *jsReader) (interface{}, error) {
	if _, err := r.poll(); err != nil {
		return nil, err
	}
	return nil, nil
}

// jsReader wraps a json.Decoder with one token of lookahead. Numbers are
// surfaced as json.Number so 64-bit values survive intact.
type jsReader struct {
	dec     *json.Decoder
	current json.Token
	peeked  bool
}

func newJsReader(b []byte) *jsReader {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return &jsReader{dec: dec}
}

func (r *jsReader) hasNext() bool {
	return r.dec.More()
}

func (r *jsReader) peek() (json.Token, error) {
	if !r.peeked {
		t, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		r.current = t
		r.peeked = true
	}
	return r.current, nil
}

func (r *jsReader) poll() (json.Token, error) {
	if r.peeked {
		r.peeked = false
		return r.current, nil
	}
	return r.dec.Token()
}

func (r *jsReader) expect(pred func(json.Token) bool, expected string) (json.Token, error) {
	t, err := r.poll()
	if err != nil {
		return nil, err
	}
	if !pred(t) {
		return t, fmt.Errorf("bad input: expecting %s, instead got %v", expected, t)
	}
	return t, nil
}

func (r *jsReader) beginObject() error {
	_, err := r.expect(func(t json.Token) bool { return t == json.Delim('{') }, "start of JSON object: '{'")
	return err
}

func (r *jsReader) endObject() error {
	_, err := r.expect(func(t json.Token) bool { return t == json.Delim('}') }, "end of JSON object: '}'")
	return err
}

func (r *jsReader) beginArray() error {
	_, err := r.expect(func(t json.Token) bool { return t == json.Delim('[') }, "start of JSON array: '['")
	return err
}

func (r *jsReader) endArray() error {
	_, err := r.expect(func(t json.Token) bool { return t == json.Delim(']') }, "end of JSON array: ']'")
	return err
}

func (r *jsReader) nextObjectKey() (string, error) {
	return r.nextString()
}

func (r *jsReader) nextString() (string, error) {
	t, err := r.expect(func(t json.Token) bool { _, ok := t.(string); return ok }, "string")
	if err != nil {
		return "", err
	}
	return t.(string), nil
}

func (r *jsReader) nextBytes() ([]byte, error) {
	s, err := r.nextString()
	if err != nil {
		return nil, err
	}
	return decodeBase64(s)
}

// decodeBase64 accepts both the standard and URL-safe alphabets, with or
// without padding.
func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.URLEncoding,
		base64.RawStdEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("malformed base64 data: %q", s)
}

func (r *jsReader) nextBool() (bool, error) {
	t, err := r.poll()
	if err != nil {
		return false, err
	}
	switch v := t.(type) {
	case bool:
		return v, nil
	case string:
		// tolerated for map keys that leaked into values
		if v == "true" {
			return true, nil
		}
		if v == "false" {
			return false, nil
		}
	}
	return false, fmt.Errorf("bad input: expecting boolean, instead got %v", t)
}

func (r *jsReader) nextNumber() (json.Number, error) {
	t, err := r.poll()
	if err != nil {
		return "", err
	}
	switch v := t.(type) {
	case json.Number:
		return v, nil
	case string:
		return json.Number(v), nil
	}
	return "", fmt.Errorf("bad input: expecting number, instead got %v", t)
}

func (r *jsReader) nextInt() (int64, error) {
	n, err := r.nextNumber()
	if err != nil {
		return 0, err
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	// the canonical mapping allows exponent notation for integers
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if math.Trunc(f) != f {
		return 0, fmt.Errorf("expecting integer but got %v", n)
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, NumericOverflowError
	}
	return int64(f), nil
}

func (r *jsReader) nextUint() (uint64, error) {
	n, err := r.nextNumber()
	if err != nil {
		return 0, err
	}
	if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		return u, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if math.Trunc(f) != f || f < 0 {
		return 0, fmt.Errorf("expecting unsigned integer but got %v", n)
	}
	if f > math.MaxUint64 {
		return 0, NumericOverflowError
	}
	return uint64(f), nil
}

func (r *jsReader) nextFloat() (float64, error) {
	t, err := r.poll()
	if err != nil {
		return 0, err
	}
	switch v := t.(type) {
	case json.Number:
		return v.Float64()
	case string:
		switch v {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return strconv.ParseFloat(v, 64)
	}
	return 0, fmt.Errorf("bad input: expecting float, instead got %v", t)
}

// skip consumes the next value, whatever its shape.
func (r *jsReader) skip() error {
	t, err := r.poll()
	if err != nil {
		return err
	}
	if t == json.Delim('[') {
		return r.skipArray()
	}
	if t == json.Delim('{') {
		return r.skipObject()
	}
	return nil
}

func (r *jsReader) skipArray() error {
	for r.hasNext() {
		if err := r.skip(); err != nil {
			return err
		}
	}
	return r.endArray()
}

func (r *jsReader) skipObject() error {
	for r.hasNext() {
		if _, err := r.nextObjectKey(); err != nil {
			return err
		}
		if err := r.skip(); err != nil {
			return err
		}
	}
	return r.endObject()
}
