package dynamic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/slientgoat/prost-reflect/internal/strs"
)

const (
	durationTypeName  = "google.protobuf.Duration"
	timestampTypeName = "google.protobuf.Timestamp"
	anyTypeName       = "google.protobuf.Any"
	structTypeName    = "google.protobuf.Struct"
	valueTypeName     = "google.protobuf.Value"
	listValueTypeName = "google.protobuf.ListValue"
	fieldMaskTypeName = "google.protobuf.FieldMask"
	emptyTypeName     = "google.protobuf.Empty"
	nullValueTypeName = "google.protobuf.NullValue"
)

// Durations must stay within +-10000 years, and timestamps within
// 0001-01-01T00:00:00Z and 9999-12-31T23:59:59.999999999Z.
const (
	maxDurationSeconds  = 315576000000
	minTimestampSeconds = -62135596800
	maxTimestampSeconds = 253402300799
)

var wrapperTypeNames = map[string]bool{
	"google.protobuf.DoubleValue": true,
	"google.protobuf.FloatValue":  true,
	"google.protobuf.Int64Value":  true,
	"google.protobuf.UInt64Value": true,
	"google.protobuf.Int32Value":  true,
	"google.protobuf.UInt32Value": true,
	"google.protobuf.BoolValue":   true,
	"google.protobuf.StringValue": true,
	"google.protobuf.BytesValue":  true,
}

// isWellKnownType reports whether messages of the given type use a special
// JSON shape instead of the regular object form.
func isWellKnownType(fqn string) bool {
	switch fqn {
	case durationTypeName, timestampTypeName, anyTypeName, structTypeName,
		valueTypeName, listValueTypeName, fieldMaskTypeName, emptyTypeName:
		return true
	}
	return wrapperTypeNames[fqn]
}

func (m *Message) marshalWellKnownJSON(b *indentBuffer, opts *MarshalJSONOptions) error {
	switch m.md.GetFullyQualifiedName() {
	case durationTypeName:
		return m.marshalDurationJSON(b)
	case timestampTypeName:
		return m.marshalTimestampJSON(b)
	case anyTypeName:
		return m.marshalAnyJSON(b, opts)
	case structTypeName:
		return m.marshalStructJSON(b, opts)
	case valueTypeName:
		return m.marshalValueWKTJSON(b, opts)
	case listValueTypeName:
		return m.marshalListValueJSON(b, opts)
	case fieldMaskTypeName:
		return m.marshalFieldMaskJSON(b)
	case emptyTypeName:
		_, err := b.WriteString("{}")
		return err
	default:
		return m.marshalWrapperJSON(b, opts)
	}
}

func (m *Message) unmarshalWellKnownJSON(r *jsReader, opts *UnmarshalJSONOptions) error {
	switch m.md.GetFullyQualifiedName() {
	case durationTypeName:
		return m.unmarshalDurationJSON(r)
	case timestampTypeName:
		return m.unmarshalTimestampJSON(r)
	case anyTypeName:
		return m.unmarshalAnyJSON(r, opts)
	case structTypeName:
		return m.unmarshalStructJSON(r, opts)
	case valueTypeName:
		return m.unmarshalValueWKTJSON(r, opts)
	case listValueTypeName:
		return m.unmarshalListValueJSON(r, opts)
	case fieldMaskTypeName:
		return m.unmarshalFieldMaskJSON(r)
	case emptyTypeName:
		return m.unmarshalEmptyJSON(r, opts)
	default:
		return m.unmarshalWrapperJSON(r, opts)
	}
}

func (m *Message) wktInt64(tag int32) int64 {
	if v, ok := m.values[tag].(int64); ok {
		return v
	}
	return 0
}

func (m *Message) wktInt32(tag int32) int32 {
	if v, ok := m.values[tag].(int32); ok {
		return v
	}
	return 0
}

// trimFraction shortens a nine-digit fraction to six or three digits when
// the trailing digits are zero, per the canonical form.
func trimFraction(frac string) string {
	frac = strings.TrimSuffix(frac, "000")
	return strings.TrimSuffix(frac, "000")
}

func (m *Message) marshalDurationJSON(b *indentBuffer) error {
	secs := m.wktInt64(1)
	nanos := m.wktInt32(2)
	if secs > maxDurationSeconds || secs < -maxDurationSeconds {
		return jsonErrf(durationTypeName, "seconds", "%d is out of range", secs)
	}
	if nanos <= -1e9 || nanos >= 1e9 {
		return jsonErrf(durationTypeName, "nanos", "%d is out of range", nanos)
	}
	if (secs > 0 && nanos < 0) || (secs < 0 && nanos > 0) {
		return jsonErrf(durationTypeName, "", "seconds and nanos have different signs")
	}
	sign := ""
	if secs < 0 || nanos < 0 {
		sign = "-"
		secs, nanos = -secs, -nanos
	}
	if nanos == 0 {
		return writeJSONString(b, fmt.Sprintf("%s%ds", sign, secs))
	}
	frac := trimFraction(fmt.Sprintf("%09d", nanos))
	return writeJSONString(b, fmt.Sprintf("%s%d.%ss", sign, secs, frac))
}

func (m *Message) unmarshalDurationJSON(r *jsReader) error {
	s, err := r.nextString()
	if err != nil {
		return err
	}
	orig := s
	if !strings.HasSuffix(s, "s") {
		return fmt.Errorf("duration %q does not end in 's'", orig)
	}
	s = strings.TrimSuffix(s, "s")
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	secsStr, fracStr := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		secsStr, fracStr = s[:i], s[i+1:]
	}
	secs, err := strconv.ParseInt(secsStr, 10, 64)
	if err != nil || secs < 0 {
		return fmt.Errorf("invalid duration %q", orig)
	}
	var nanos int64
	if fracStr != "" {
		if len(fracStr) > 9 {
			return fmt.Errorf("duration %q has too many fractional digits", orig)
		}
		fracStr += strings.Repeat("0", 9-len(fracStr))
		nanos, err = strconv.ParseInt(fracStr, 10, 64)
		if err != nil || nanos < 0 {
			return fmt.Errorf("invalid duration %q", orig)
		}
	}
	if secs > maxDurationSeconds {
		return fmt.Errorf("duration %q is out of range", orig)
	}
	if neg {
		secs, nanos = -secs, -nanos
	}
	m.internalSetField(m.md.FindFieldByNumber(1), secs)
	m.internalSetField(m.md.FindFieldByNumber(2), int32(nanos))
	return nil
}

func (m *Message) marshalTimestampJSON(b *indentBuffer) error {
	secs := m.wktInt64(1)
	nanos := m.wktInt32(2)
	if secs < minTimestampSeconds || secs > maxTimestampSeconds {
		return jsonErrf(timestampTypeName, "seconds", "%d is out of range", secs)
	}
	if nanos < 0 || nanos >= 1e9 {
		return jsonErrf(timestampTypeName, "nanos", "%d is out of range", nanos)
	}
	s := time.Unix(secs, 0).UTC().Format("2006-01-02T15:04:05")
	if nanos != 0 {
		s += "." + trimFraction(fmt.Sprintf("%09d", nanos))
	}
	return writeJSONString(b, s+"Z")
}

func (m *Message) unmarshalTimestampJSON(r *jsReader) error {
	s, err := r.nextString()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %v", s, err)
	}
	t = t.UTC()
	secs := t.Unix()
	if secs < minTimestampSeconds || secs > maxTimestampSeconds {
		return fmt.Errorf("timestamp %q is out of range", s)
	}
	m.internalSetField(m.md.FindFieldByNumber(1), secs)
	m.internalSetField(m.md.FindFieldByNumber(2), int32(t.Nanosecond()))
	return nil
}

func (m *Message) marshalAnyJSON(b *indentBuffer, opts *MarshalJSONOptions) error {
	typeURL, hasURL := m.values[1].(string)
	if !hasURL {
		if len(m.values) == 0 {
			_, err := b.WriteString("{}")
			return err
		}
		return jsonErrf(anyTypeName, "type_url", "value is set but type URL is not")
	}
	name := typeURL
	if i := strings.LastIndexByte(typeURL, '/'); i >= 0 {
		name = typeURL[i+1:]
	}
	md := m.md.GetFile().GetPool().FindMessage(name)
	if md == nil {
		return jsonErrf(anyTypeName, "type_url", "unknown message type %q", name)
	}
	inner := NewMessageWithExtensionRegistry(md, m.er)
	if raw, ok := m.values[2].([]byte); ok {
		if err := inner.Unmarshal(raw); err != nil {
			return wrapJsonErr(anyTypeName, "value", err)
		}
	}

	if err := b.WriteByte('{'); err != nil {
		return err
	}
	if err := b.start(); err != nil {
		return err
	}
	if err := writeJSONString(b, "@type"); err != nil {
		return err
	}
	if err := b.sep(); err != nil {
		return err
	}
	if err := writeJSONString(b, typeURL); err != nil {
		return err
	}
	if isWellKnownType(md.GetFullyQualifiedName()) {
		if err := b.next(); err != nil {
			return err
		}
		if err := writeJSONString(b, "value"); err != nil {
			return err
		}
		if err := b.sep(); err != nil {
			return err
		}
		if err := inner.marshalWellKnownJSON(b, opts); err != nil {
			return err
		}
	} else {
		first := false
		if err := inner.marshalFieldsJSON(b, opts, &first); err != nil {
			return err
		}
	}
	if err := b.end(); err != nil {
		return err
	}
	return b.WriteByte('}')
}

func (m *Message) unmarshalAnyJSON(r *jsReader, opts *UnmarshalJSONOptions) error {
	if err := r.beginObject(); err != nil {
		return err
	}
	var typeURL string
	members := map[string]json.RawMessage{}
	for r.hasNext() {
		key, err := r.nextObjectKey()
		if err != nil {
			return err
		}
		if key == "@type" {
			typeURL, err = r.nextString()
			if err != nil {
				return err
			}
			continue
		}
		var raw bytes.Buffer
		if err := readRawValue(r, &raw); err != nil {
			return err
		}
		members[key] = json.RawMessage(raw.Bytes())
	}
	if err := r.endObject(); err != nil {
		return err
	}
	if typeURL == "" {
		if len(members) == 0 {
			return nil
		}
		return fmt.Errorf("message is missing the @type member")
	}

	name := typeURL
	if i := strings.LastIndexByte(typeURL, '/'); i >= 0 {
		name = typeURL[i+1:]
	}
	md := m.md.GetFile().GetPool().FindMessage(name)
	if md == nil {
		return fmt.Errorf("unknown message type %q", name)
	}
	inner := NewMessageWithExtensionRegistry(md, m.er)
	if isWellKnownType(md.GetFullyQualifiedName()) {
		raw, ok := members["value"]
		if !ok {
			return fmt.Errorf("message carries %s but has no \"value\" member", name)
		}
		if err := inner.unmarshalJSON(raw, true, opts); err != nil {
			return err
		}
	} else {
		var obj bytes.Buffer
		obj.WriteByte('{')
		first := true
		for k, v := range members {
			if !first {
				obj.WriteByte(',')
			}
			first = false
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			obj.Write(kb)
			obj.WriteByte(':')
			obj.Write(v)
		}
		obj.WriteByte('}')
		if err := inner.unmarshalJSON(obj.Bytes(), true, opts); err != nil {
			return err
		}
	}
	raw, err := inner.Marshal()
	if err != nil {
		return err
	}
	m.internalSetField(m.md.FindFieldByNumber(1), typeURL)
	m.internalSetField(m.md.FindFieldByNumber(2), raw)
	return nil
}

// readRawValue re-serializes the next value from the token stream so it can
// be parsed again once the target type is known.
func readRawValue(r *jsReader, buf *bytes.Buffer) error {
	t, err := r.poll()
	if err != nil {
		return err
	}
	switch v := t.(type) {
	case json.Delim:
		switch v {
		case '{':
			buf.WriteByte('{')
			first := true
			for r.hasNext() {
				if !first {
					buf.WriteByte(',')
				}
				first = false
				key, err := r.nextObjectKey()
				if err != nil {
					return err
				}
				kb, err := json.Marshal(key)
				if err != nil {
					return err
				}
				buf.Write(kb)
				buf.WriteByte(':')
				if err := readRawValue(r, buf); err != nil {
					return err
				}
			}
			if err := r.endObject(); err != nil {
				return err
			}
			buf.WriteByte('}')
			return nil
		case '[':
			buf.WriteByte('[')
			first := true
			for r.hasNext() {
				if !first {
					buf.WriteByte(',')
				}
				first = false
				if err := readRawValue(r, buf); err != nil {
					return err
				}
			}
			if err := r.endArray(); err != nil {
				return err
			}
			buf.WriteByte(']')
			return nil
		default:
			return fmt.Errorf("unexpected delimiter %v", v)
		}
	case string:
		sb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(sb)
		return nil
	case json.Number:
		buf.WriteString(v.String())
		return nil
	case bool:
		buf.WriteString(strconv.FormatBool(v))
		return nil
	case nil:
		buf.WriteString("null")
		return nil
	default:
		return fmt.Errorf("unexpected JSON token %v", t)
	}
}

func (m *Message) marshalStructJSON(b *indentBuffer, opts *MarshalJSONOptions) error {
	if err := b.WriteByte('{'); err != nil {
		return err
	}
	if err := b.start(); err != nil {
		return err
	}
	if mp, ok := m.values[1].(*Map); ok {
		first := true
		var err error
		mp.Range(func(k, v interface{}) bool {
			if err = b.maybeNext(&first); err != nil {
				return false
			}
			if err = writeJSONString(b, k.(string)); err != nil {
				return false
			}
			if err = b.sep(); err != nil {
				return false
			}
			val, _ := v.(*Message)
			err = val.marshalJSON(b, opts)
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	if err := b.end(); err != nil {
		return err
	}
	return b.WriteByte('}')
}

func (m *Message) unmarshalStructJSON(r *jsReader, opts *UnmarshalJSONOptions) error {
	fd := m.md.FindFieldByNumber(1)
	valueMd := fd.GetMessageType().GetFields()[1].GetMessageType()
	if err := r.beginObject(); err != nil {
		return err
	}
	mp := NewMap()
	for r.hasNext() {
		key, err := r.nextObjectKey()
		if err != nil {
			return err
		}
		v := NewMessageWithExtensionRegistry(valueMd, m.er)
		if err := v.unmarshalValueWKTJSON(r, opts); err != nil {
			return err
		}
		mp.Put(key, v)
	}
	if err := r.endObject(); err != nil {
		return err
	}
	m.internalSetField(fd, mp)
	return nil
}

// Value's JSON form is whichever kind it holds. An unset kind serializes as
// null.
func (m *Message) marshalValueWKTJSON(b *indentBuffer, opts *MarshalJSONOptions) error {
	if _, ok := m.values[1]; ok {
		_, err := b.WriteString("null")
		return err
	}
	if v, ok := m.values[2]; ok {
		f := v.(float64)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return jsonErrf(valueTypeName, "number_value", "%v has no JSON representation", f)
		}
		_, err := b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		return err
	}
	if v, ok := m.values[3]; ok {
		return writeJSONString(b, v.(string))
	}
	if v, ok := m.values[4]; ok {
		_, err := b.WriteString(strconv.FormatBool(v.(bool)))
		return err
	}
	if v, ok := m.values[5]; ok {
		return v.(*Message).marshalJSON(b, opts)
	}
	if v, ok := m.values[6]; ok {
		return v.(*Message).marshalJSON(b, opts)
	}
	_, err := b.WriteString("null")
	return err
}

func (m *Message) unmarshalValueWKTJSON(r *jsReader, opts *UnmarshalJSONOptions) error {
	t, err := r.peek()
	if err != nil {
		return err
	}
	switch v := t.(type) {
	case nil:
		if _, err := r.poll(); err != nil {
			return err
		}
		m.internalSetField(m.md.FindFieldByNumber(1), int32(0))
		return nil
	case json.Number:
		if _, err := r.poll(); err != nil {
			return err
		}
		f, err := v.Float64()
		if err != nil {
			return err
		}
		m.internalSetField(m.md.FindFieldByNumber(2), f)
		return nil
	case string:
		if _, err := r.poll(); err != nil {
			return err
		}
		m.internalSetField(m.md.FindFieldByNumber(3), v)
		return nil
	case bool:
		if _, err := r.poll(); err != nil {
			return err
		}
		m.internalSetField(m.md.FindFieldByNumber(4), v)
		return nil
	case json.Delim:
		switch v {
		case '{':
			fd := m.md.FindFieldByNumber(5)
			nested := NewMessageWithExtensionRegistry(fd.GetMessageType(), m.er)
			if err := nested.unmarshalStructJSON(r, opts); err != nil {
				return err
			}
			m.internalSetField(fd, nested)
			return nil
		case '[':
			fd := m.md.FindFieldByNumber(6)
			nested := NewMessageWithExtensionRegistry(fd.GetMessageType(), m.er)
			if err := nested.unmarshalListValueJSON(r, opts); err != nil {
				return err
			}
			m.internalSetField(fd, nested)
			return nil
		}
	}
	return fmt.Errorf("unexpected JSON token %v", t)
}

func (m *Message) marshalListValueJSON(b *indentBuffer, opts *MarshalJSONOptions) error {
	if err := b.WriteByte('['); err != nil {
		return err
	}
	if err := b.start(); err != nil {
		return err
	}
	if sl, ok := m.values[1].([]interface{}); ok {
		first := true
		for _, e := range sl {
			if err := b.maybeNext(&first); err != nil {
				return err
			}
			val, _ := e.(*Message)
			if err := val.marshalJSON(b, opts); err != nil {
				return err
			}
		}
	}
	if err := b.end(); err != nil {
		return err
	}
	return b.WriteByte(']')
}

func (m *Message) unmarshalListValueJSON(r *jsReader, opts *UnmarshalJSONOptions) error {
	fd := m.md.FindFieldByNumber(1)
	valueMd := fd.GetMessageType()
	if err := r.beginArray(); err != nil {
		return err
	}
	var vals []interface{}
	for r.hasNext() {
		v := NewMessageWithExtensionRegistry(valueMd, m.er)
		if err := v.unmarshalValueWKTJSON(r, opts); err != nil {
			return err
		}
		vals = append(vals, v)
	}
	if err := r.endArray(); err != nil {
		return err
	}
	m.internalSetField(fd, vals)
	return nil
}

func (m *Message) marshalFieldMaskJSON(b *indentBuffer) error {
	sl, _ := m.values[1].([]interface{})
	parts := make([]string, len(sl))
	for i, e := range sl {
		// dots separating path segments pass through unchanged
		parts[i] = strs.JSONCamelCase(e.(string))
	}
	return writeJSONString(b, strings.Join(parts, ","))
}

func (m *Message) unmarshalFieldMaskJSON(r *jsReader) error {
	s, err := r.nextString()
	if err != nil {
		return err
	}
	fd := m.md.FindFieldByNumber(1)
	if s == "" {
		m.unsetField(fd)
		return nil
	}
	var vals []interface{}
	for _, p := range strings.Split(s, ",") {
		vals = append(vals, strs.JSONSnakeCase(p))
	}
	m.internalSetField(fd, vals)
	return nil
}

func (m *Message) unmarshalEmptyJSON(r *jsReader, opts *UnmarshalJSONOptions) error {
	if err := r.beginObject(); err != nil {
		return err
	}
	for r.hasNext() {
		key, err := r.nextObjectKey()
		if err != nil {
			return err
		}
		if opts.DisallowUnknownFields {
			return fmt.Errorf("message has no field named %q", key)
		}
		if err := r.skip(); err != nil {
			return err
		}
	}
	return r.endObject()
}

func (m *Message) marshalWrapperJSON(b *indentBuffer, opts *MarshalJSONOptions) error {
	fd := m.md.FindFieldByNumber(1)
	v, ok := m.values[1]
	if !ok {
		v = defaultFieldValue(fd)
	}
	return m.marshalValueJSON(b, fd, v, opts)
}

func (m *Message) unmarshalWrapperJSON(r *jsReader, opts *UnmarshalJSONOptions) error {
	fd := m.md.FindFieldByNumber(1)
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
