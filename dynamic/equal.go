package dynamic

import (
	"bytes"
	"math"
)

// Equal reports whether two dynamic messages are of the same type, have the
// same fields set to deeply equal values, and retain equivalent unknown
// data. As with proto equality, NaN compares equal to NaN, and map entry
// order is irrelevant.
func Equal(a, b *Message) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	if a.md.GetFullyQualifiedName() != b.md.GetFullyQualifiedName() {
		return false
	}
	if len(a.values) != len(b.values) {
		return false
	}
	for tag, av := range a.values {
		bv, ok := b.values[tag]
		if !ok {
			return false
		}
		if !fieldValuesEqual(av, bv) {
			return false
		}
	}
	return unknownsEqual(a.unknownFields, b.unknownFields)
}

// Equal reports whether m and other are equal per the package-level Equal.
func (m *Message) Equal(other *Message) bool {
	return Equal(m, other)
}

func fieldValuesEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !fieldValuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		eq := true
		av.Range(func(k, v interface{}) bool {
			other, ok := bv.Get(k)
			if !ok || !fieldValuesEqual(v, other) {
				eq = false
			}
			return eq
		})
		return eq
	case *Message:
		bv, ok := b.(*Message)
		return ok && Equal(av, bv)
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case float32:
		bv, ok := b.(float32)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) {
			return math.IsNaN(float64(bv))
		}
		return av == bv
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		if math.IsNaN(av) {
			return math.IsNaN(bv)
		}
		return av == bv
	default:
		return a == b
	}
}

// unknownsEqual compares retained unknown data per tag number: for each
// number both messages must hold the same records in the same order, but
// the interleaving of different numbers does not matter.
func unknownsEqual(a, b []UnknownField) bool {
	if len(a) != len(b) {
		return false
	}
	grouped := func(u []UnknownField) map[int32][]UnknownField {
		g := map[int32][]UnknownField{}
		for _, f := range u {
			g[f.Number] = append(g[f.Number], f)
		}
		return g
	}
	ga, gb := grouped(a), grouped(b)
	if len(ga) != len(gb) {
		return false
	}
	for num, fa := range ga {
		fb, ok := gb[num]
		if !ok || len(fa) != len(fb) {
			return false
		}
		for i := range fa {
			if fa[i].Encoding != fb[i].Encoding ||
				fa[i].Value != fb[i].Value ||
				!bytes.Equal(fa[i].Contents, fb[i].Contents) {
				return false
			}
		}
	}
	return true
}
