package dynamic

import (
	"fmt"
)

// Merge merges the fields set on src into dst, which must be a message of
// the same type. Singular fields set on src overwrite the corresponding
// fields of dst, except message fields, which are merged recursively.
// Repeated fields are appended, map entries are put (overwriting entries
// with equal keys), and unknown fields are concatenated. Merged values are
// copied, so later mutations of src do not show through in dst.
//
// This function panics if the merge fails; see TryMerge.
func Merge(dst, src *Message) {
	if err := TryMerge(dst, src); err != nil {
		panic(err.Error())
	}
}

// TryMerge is like Merge but returns an error instead of panicking if the
// messages have different types or src holds a field dst cannot accept.
func TryMerge(dst, src *Message) error {
	if dst == nil {
		return fmt.Errorf("cannot merge into nil message")
	}
	if src == nil {
		return fmt.Errorf("cannot merge from nil message")
	}
	if dst.md.GetFullyQualifiedName() != src.md.GetFullyQualifiedName() {
		return fmt.Errorf("messages with different types cannot be merged: %s and %s",
			dst.md.GetFullyQualifiedName(), src.md.GetFullyQualifiedName())
	}
	return dst.mergeFrom(src)
}

func (m *Message) mergeFrom(src *Message) error {
	for _, tag := range src.knownFieldTags() {
		itag := int32(tag)
		fd := src.FindFieldDescriptor(itag)
		if fd == nil {
			return fmt.Errorf("no descriptor for tag %d", itag)
		}
		if err := m.checkField(fd); err != nil {
			return err
		}
		switch v := src.values[itag].(type) {
		case *Map:
			var err error
			v.Range(func(k, mv interface{}) bool {
				if mv, err = cloneFieldValue(mv, m.er); err != nil {
					return false
				}
				err = m.putMapField(fd, k, mv)
				return err == nil
			})
			if err != nil {
				return err
			}
		case []interface{}:
			for _, e := range v {
				e, err := cloneFieldValue(e, m.er)
				if err != nil {
					return err
				}
				if err := m.addRepeatedField(fd, e); err != nil {
					return err
				}
			}
		case *Message:
			if existing, ok := m.values[itag].(*Message); ok && existing != nil && v != nil {
				if err := existing.mergeFrom(v); err != nil {
					return err
				}
				break
			}
			nested, err := cloneFieldValue(v, m.er)
			if err != nil {
				return err
			}
			m.internalSetField(fd, nested)
		default:
			nv, err := cloneFieldValue(v, m.er)
			if err != nil {
				return err
			}
			m.internalSetField(fd, nv)
		}
	}
	for _, u := range src.unknownFields {
		u.Contents = append([]byte(nil), u.Contents...)
		m.unknownFields = append(m.unknownFields, u)
	}
	return nil
}

// cloneFieldValue returns a copy of val that is safe to store in another
// message: byte slices and nested messages are copied, other scalars are
// immutable and returned as is.
func cloneFieldValue(val interface{}, er *ExtensionRegistry) (interface{}, error) {
	switch v := val.(type) {
	case []byte:
		return append([]byte(nil), v...), nil
	case *Message:
		if v == nil {
			return v, nil
		}
		c := NewMessageWithExtensionRegistry(v.md, er)
		if err := c.mergeFrom(v); err != nil {
			return nil, err
		}
		return c, nil
	}
	return val, nil
}
