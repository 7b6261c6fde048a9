package desc

import (
	"math"
	"strconv"

	dpb "google.golang.org/protobuf/types/descriptorpb"

	"github.com/slientgoat/prost-reflect/internal/strs"
)

func jsonCamelCase(name string) string {
	return strs.JSONCamelCase(name)
}

// processDefaultValue computes the typed default for the field from the
// descriptor's default_value text, or the type's zero value when no default
// is declared. Called during phase 2, after type references are linked.
func (fd *FieldDescriptor) processDefaultValue() error {
	if fd.IsRepeated() {
		return nil
	}
	text := fd.proto.GetDefaultValue()
	switch fd.proto.GetType() {
	case dpb.FieldDescriptorProto_TYPE_MESSAGE, dpb.FieldDescriptorProto_TYPE_GROUP:
		if text != "" {
			return descErrorf(fd.file.GetName(), fd.fqn, "message field cannot declare a default value")
		}
		return nil

	case dpb.FieldDescriptorProto_TYPE_ENUM:
		if text == "" {
			// first declared value is the enum's default
			fd.def = fd.enumType.values[0].GetNumber()
			return nil
		}
		vd := fd.enumType.FindValueByName(text)
		if vd == nil {
			return descErrorf(fd.file.GetName(), fd.fqn, "default value %q is not a value of enum %s", text, fd.enumType.GetFullyQualifiedName())
		}
		fd.def = vd.GetNumber()
		return nil

	case dpb.FieldDescriptorProto_TYPE_BOOL:
		switch text {
		case "":
			fd.def = false
		case "true":
			fd.def = true
		case "false":
			fd.def = false
		default:
			return descErrorf(fd.file.GetName(), fd.fqn, "invalid bool default value %q", text)
		}
		return nil

	case dpb.FieldDescriptorProto_TYPE_STRING:
		fd.def = text
		return nil

	case dpb.FieldDescriptorProto_TYPE_BYTES:
		b, err := unescapeBytes(text)
		if err != nil {
			return descErrorf(fd.file.GetName(), fd.fqn, "invalid bytes default value %q: %v", text, err)
		}
		fd.def = b
		return nil

	case dpb.FieldDescriptorProto_TYPE_INT32, dpb.FieldDescriptorProto_TYPE_SINT32, dpb.FieldDescriptorProto_TYPE_SFIXED32:
		return fd.parseIntDefault(text, 32, func(v int64) { fd.def = int32(v) }, func() { fd.def = int32(0) })

	case dpb.FieldDescriptorProto_TYPE_INT64, dpb.FieldDescriptorProto_TYPE_SINT64, dpb.FieldDescriptorProto_TYPE_SFIXED64:
		return fd.parseIntDefault(text, 64, func(v int64) { fd.def = v }, func() { fd.def = int64(0) })

	case dpb.FieldDescriptorProto_TYPE_UINT32, dpb.FieldDescriptorProto_TYPE_FIXED32:
		return fd.parseUintDefault(text, 32, func(v uint64) { fd.def = uint32(v) }, func() { fd.def = uint32(0) })

	case dpb.FieldDescriptorProto_TYPE_UINT64, dpb.FieldDescriptorProto_TYPE_FIXED64:
		return fd.parseUintDefault(text, 64, func(v uint64) { fd.def = v }, func() { fd.def = uint64(0) })

	case dpb.FieldDescriptorProto_TYPE_FLOAT:
		if text == "" {
			fd.def = float32(0)
			return nil
		}
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return descErrorf(fd.file.GetName(), fd.fqn, "invalid float default value %q", text)
		}
		fd.def = float32(f)
		return nil

	case dpb.FieldDescriptorProto_TYPE_DOUBLE:
		if text == "" {
			fd.def = float64(0)
			return nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return descErrorf(fd.file.GetName(), fd.fqn, "invalid double default value %q", text)
		}
		fd.def = f
		return nil

	default:
		return descErrorf(fd.file.GetName(), fd.fqn, "unrecognized field type: %v", fd.proto.GetType())
	}
}

func (fd *FieldDescriptor) parseIntDefault(text string, bits int, set func(int64), zero func()) error {
	if text == "" {
		zero()
		return nil
	}
	v, err := strconv.ParseInt(text, 10, bits)
	if err != nil {
		return descErrorf(fd.file.GetName(), fd.fqn, "invalid integer default value %q", text)
	}
	set(v)
	return nil
}

func (fd *FieldDescriptor) parseUintDefault(text string, bits int, set func(uint64), zero func()) error {
	if text == "" {
		zero()
		return nil
	}
	v, err := strconv.ParseUint(text, 10, bits)
	if err != nil {
		return descErrorf(fd.file.GetName(), fd.fqn, "invalid unsigned integer default value %q", text)
	}
	set(v)
	return nil
}

func (fd *FieldDescriptor) getDefaultValue() interface{} {
	if fd.IsMap() || fd.IsRepeated() ||
		fd.proto.GetType() == dpb.FieldDescriptorProto_TYPE_MESSAGE ||
		fd.proto.GetType() == dpb.FieldDescriptorProto_TYPE_GROUP {
		return nil
	}
	if b, ok := fd.def.([]byte); ok {
		// bytes are mutable, so return a copy
		return append([]byte(nil), b...)
	}
	return fd.def
}

// unescapeBytes undoes the C-style escaping that the default_value of a
// bytes field carries: simple escapes like \n, octal escapes up to three
// digits, and \x hex escapes up to two digits.
func unescapeBytes(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			out = append(out, s[i])
			continue
		}
		i++
		if i >= len(s) {
			return nil, strconv.ErrSyntax
		}
		switch c := s[i]; c {
		case 'a':
			out = append(out, '\a')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'v':
			out = append(out, '\v')
		case '\\', '\'', '"', '?':
			out = append(out, c)
		case 'x', 'X':
			var v, n int
			for n = 0; n < 2 && i+1 < len(s) && isHexDigit(s[i+1]); n++ {
				i++
				v = v*16 + hexValue(s[i])
			}
			if n == 0 {
				return nil, strconv.ErrSyntax
			}
			out = append(out, byte(v))
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := int(c - '0')
			for n := 1; n < 3 && i+1 < len(s) && '0' <= s[i+1] && s[i+1] <= '7'; n++ {
				i++
				v = v*8 + int(s[i]-'0')
			}
			if v > math.MaxUint8 {
				return nil, strconv.ErrRange
			}
			out = append(out, byte(v))
		default:
			return nil, strconv.ErrSyntax
		}
	}
	return out, nil
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func hexValue(c byte) int {
	switch {
	case c >= 'a':
		return int(c-'a') + 10
	case c >= 'A':
		return int(c-'A') + 10
	default:
		return int(c - '0')
	}
}
