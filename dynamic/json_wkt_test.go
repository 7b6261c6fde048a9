package dynamic_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slientgoat/prost-reflect/dynamic"
)

func TestDurationJSON(t *testing.T) {
	pool := buildTestPool(t)

	cases := []struct {
		secs  int64
		nanos int32
		want  string
	}{
		{0, 0, `"0s"`},
		{5, 0, `"5s"`},
		{1, 500000000, `"1.500s"`},
		{-1, -500000000, `"-1.500s"`},
		{0, -500000000, `"-0.500s"`},
		{0, 1, `"0.000000001s"`},
		{3, 1000, `"3.000001s"`},
		{315576000000, 0, `"315576000000s"`},
	}
	for _, tc := range cases {
		m := newTestMessage(t, pool, "google.protobuf.Duration")
		m.SetFieldByName("seconds", tc.secs)
		m.SetFieldByName("nanos", tc.nanos)

		js, err := m.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(js), "%d.%09d", tc.secs, tc.nanos)

		m2 := newTestMessage(t, pool, "google.protobuf.Duration")
		require.NoError(t, m2.UnmarshalJSON(js))
		assert.True(t, dynamic.Equal(m, m2), "round trip of %s", js)
	}

	// trailing zeros in the fraction are optional on input
	a := newTestMessage(t, pool, "google.protobuf.Duration")
	require.NoError(t, a.UnmarshalJSON([]byte(`"1.5s"`)))
	b := newTestMessage(t, pool, "google.protobuf.Duration")
	require.NoError(t, b.UnmarshalJSON([]byte(`"1.500s"`)))
	assert.True(t, dynamic.Equal(a, b))

	for _, bad := range []string{`"1.5"`, `"s"`, `"1.0000000001s"`, `"315576000001s"`} {
		m := newTestMessage(t, pool, "google.protobuf.Duration")
		assert.Error(t, m.UnmarshalJSON([]byte(bad)), "input %s", bad)
	}

	// out-of-range and mixed-sign values cannot be serialized
	m := newTestMessage(t, pool, "google.protobuf.Duration")
	m.SetFieldByName("seconds", int64(315576000001))
	_, err := m.MarshalJSON()
	require.ErrorContains(t, err, "out of range")

	m = newTestMessage(t, pool, "google.protobuf.Duration")
	m.SetFieldByName("seconds", int64(1))
	m.SetFieldByName("nanos", int32(-1))
	_, err = m.MarshalJSON()
	require.ErrorContains(t, err, "different signs")
}

func TestTimestampJSON(t *testing.T) {
	pool := buildTestPool(t)
	const jan2021 = int64(1609459200) // 2021-01-01T00:00:00Z

	cases := []struct {
		secs  int64
		nanos int32
		want  string
	}{
		{jan2021, 0, `"2021-01-01T00:00:00Z"`},
		{jan2021, 500000000, `"2021-01-01T00:00:00.500Z"`},
		{jan2021, 1, `"2021-01-01T00:00:00.000000001Z"`},
	}
	for _, tc := range cases {
		m := newTestMessage(t, pool, "google.protobuf.Timestamp")
		m.SetFieldByName("seconds", tc.secs)
		m.SetFieldByName("nanos", tc.nanos)

		js, err := m.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(js))

		m2 := newTestMessage(t, pool, "google.protobuf.Timestamp")
		require.NoError(t, m2.UnmarshalJSON(js))
		assert.True(t, dynamic.Equal(m, m2), "round trip of %s", js)
	}

	// offsets are accepted on input and normalized to UTC
	m := newTestMessage(t, pool, "google.protobuf.Timestamp")
	require.NoError(t, m.UnmarshalJSON([]byte(`"2021-01-01T08:00:00+08:00"`)))
	assert.Equal(t, jan2021, m.GetFieldByName("seconds"))
	assert.Equal(t, int32(0), m.GetFieldByName("nanos"))

	err := m.UnmarshalJSON([]byte(`"0000-12-31T23:59:59Z"`))
	require.ErrorContains(t, err, "out of range")
	err = m.UnmarshalJSON([]byte(`"not a timestamp"`))
	require.ErrorContains(t, err, "invalid timestamp")

	m = newTestMessage(t, pool, "google.protobuf.Timestamp")
	m.SetFieldByName("seconds", int64(253402300800))
	_, err = m.MarshalJSON()
	require.ErrorContains(t, err, "out of range")
}

func TestWrapperJSON(t *testing.T) {
	pool := buildTestPool(t)

	// a wrapper serializes as its bare value, zero included
	m := newTestMessage(t, pool, "google.protobuf.Int64Value")
	js, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0"`, string(js))

	m.SetFieldByName("value", int64(7))
	js, err = m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"7"`, string(js))

	require.NoError(t, m.UnmarshalJSON([]byte(`"9"`)))
	assert.Equal(t, int64(9), m.GetFieldByName("value"))

	b := newTestMessage(t, pool, "google.protobuf.BoolValue")
	b.SetFieldByName("value", true)
	js, err = b.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `true`, string(js))
}

func TestStructJSON(t *testing.T) {
	pool := buildTestPool(t)
	m := newTestMessage(t, pool, "google.protobuf.Struct")

	in := []byte(`{"name":"x","n":1.5,"ok":true,"gone":null,"list":[1,"two",false],"nested":{"a":[]}}`)
	require.NoError(t, m.UnmarshalJSON(in))

	js, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(jsonTree(t, in), jsonTree(t, js)))
}

func TestValueJSON(t *testing.T) {
	pool := buildTestPool(t)

	for _, raw := range []string{`null`, `1.5`, `"s"`, `true`, `{"a":1}`, `[1,null]`} {
		m := newTestMessage(t, pool, "google.protobuf.Value")
		require.NoError(t, m.UnmarshalJSON([]byte(raw)), "input %s", raw)
		js, err := m.MarshalJSON()
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(jsonTree(t, []byte(raw)), jsonTree(t, js)), "round trip of %s", raw)
	}

	// non-finite numbers have no JSON form
	m := newTestMessage(t, pool, "google.protobuf.Value")
	m.SetFieldByName("number_value", math.NaN())
	_, err := m.MarshalJSON()
	require.ErrorContains(t, err, "no JSON representation")
}

func TestListValueJSON(t *testing.T) {
	pool := buildTestPool(t)
	m := newTestMessage(t, pool, "google.protobuf.ListValue")

	require.NoError(t, m.UnmarshalJSON([]byte(`[1,"two",{"x":null}]`)))
	js, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(jsonTree(t, []byte(`[1,"two",{"x":null}]`)), jsonTree(t, js)))

	// an empty list round trips
	require.NoError(t, m.UnmarshalJSON([]byte(`[]`)))
	js, err = m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(js))
}

func TestFieldMaskJSON(t *testing.T) {
	pool := buildTestPool(t)
	m := newTestMessage(t, pool, "google.protobuf.FieldMask")
	m.SetFieldByName("paths", []string{"foo_bar", "baz.qux_quux"})

	js, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"fooBar,baz.quxQuux"`, string(js))

	m2 := newTestMessage(t, pool, "google.protobuf.FieldMask")
	require.NoError(t, m2.UnmarshalJSON(js))
	assert.Equal(t, []interface{}{"foo_bar", "baz.qux_quux"}, m2.GetFieldByName("paths"))

	require.NoError(t, m2.UnmarshalJSON([]byte(`""`)))
	assert.False(t, m2.HasFieldByName("paths"))
}

func TestEmptyJSON(t *testing.T) {
	pool := buildTestPool(t)
	m := newTestMessage(t, pool, "google.protobuf.Empty")

	js, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(js))

	require.NoError(t, m.UnmarshalJSON([]byte(`{}`)))
	require.NoError(t, m.UnmarshalJSON([]byte(`{"anything": [1,2]}`)))
	err = m.UnmarshalJSONPB(&dynamic.UnmarshalJSONOptions{DisallowUnknownFields: true}, []byte(`{"anything": 1}`))
	require.ErrorContains(t, err, `no field named "anything"`)
}

func TestAnyJSON(t *testing.T) {
	pool := buildTestPool(t)

	// a well-known inner type goes under a "value" member
	dur := newTestMessage(t, pool, "google.protobuf.Duration")
	dur.SetFieldByName("seconds", int64(5))
	raw, err := dur.Marshal()
	require.NoError(t, err)

	anyMsg := newTestMessage(t, pool, "google.protobuf.Any")
	anyMsg.SetFieldByName("type_url", "type.googleapis.com/google.protobuf.Duration")
	anyMsg.SetFieldByName("value", raw)

	js, err := anyMsg.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"@type":"type.googleapis.com/google.protobuf.Duration","value":"5s"}`, string(js))

	any2 := newTestMessage(t, pool, "google.protobuf.Any")
	require.NoError(t, any2.UnmarshalJSON(js))
	assert.True(t, dynamic.Equal(anyMsg, any2))

	// other message types have their fields inlined next to @type
	w := newTestMessage(t, pool, "testdata.Widget")
	w.SetFieldByName("count", int32(3))
	raw, err = w.Marshal()
	require.NoError(t, err)

	anyW := newTestMessage(t, pool, "google.protobuf.Any")
	anyW.SetFieldByName("type_url", "type.googleapis.com/testdata.Widget")
	anyW.SetFieldByName("value", raw)

	js, err = anyW.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"@type":"type.googleapis.com/testdata.Widget","count":3}`, string(js))

	any3 := newTestMessage(t, pool, "google.protobuf.Any")
	require.NoError(t, any3.UnmarshalJSON(js))
	assert.True(t, dynamic.Equal(anyW, any3))

	// an empty Any round trips as an empty object
	empty := newTestMessage(t, pool, "google.protobuf.Any")
	js, err = empty.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(js))
	require.NoError(t, empty.UnmarshalJSON([]byte(`{}`)))

	// errors: unresolvable type, missing @type, value without type URL
	bad := newTestMessage(t, pool, "google.protobuf.Any")
	bad.SetFieldByName("type_url", "type.googleapis.com/no.Such")
	_, err = bad.MarshalJSON()
	require.ErrorContains(t, err, "unknown message type")

	err = bad.UnmarshalJSON([]byte(`{"@type":"type.googleapis.com/no.Such","x":1}`))
	require.ErrorContains(t, err, "unknown message type")

	err = bad.UnmarshalJSON([]byte(`{"value":"5s"}`))
	require.ErrorContains(t, err, "missing the @type member")

	bad = newTestMessage(t, pool, "google.protobuf.Any")
	bad.SetFieldByName("value", []byte{0x08, 0x05})
	_, err = bad.MarshalJSON()
	require.ErrorContains(t, err, "type URL")
}

func TestWellKnownFieldsInsideMessage(t *testing.T) {
	pool := buildTestPool(t)
	env := newTestMessage(t, pool, "testdata.Envelope")

	ttl := newTestMessage(t, pool, "google.protobuf.Duration")
	ttl.SetFieldByName("seconds", int64(1))
	ttl.SetFieldByName("nanos", int32(500000000))
	env.SetFieldByName("ttl", ttl)

	created := newTestMessage(t, pool, "google.protobuf.Timestamp")
	created.SetFieldByName("seconds", int64(1609459200))
	env.SetFieldByName("created_at", created)

	mask := newTestMessage(t, pool, "google.protobuf.FieldMask")
	mask.SetFieldByName("paths", []string{"foo_bar"})
	env.SetFieldByName("mask", mask)

	extra := newTestMessage(t, pool, "google.protobuf.Value")
	extra.SetFieldByName("string_value", "x")
	env.SetFieldByName("extra", extra)

	item := newTestMessage(t, pool, "google.protobuf.Value")
	item.SetFieldByName("bool_value", true)
	items := newTestMessage(t, pool, "google.protobuf.ListValue")
	items.AddRepeatedFieldByNumber(1, item)
	env.SetFieldByName("items", items)

	env.SetFieldByName("nothing", newTestMessage(t, pool, "google.protobuf.Empty"))

	big := newTestMessage(t, pool, "google.protobuf.Int64Value")
	big.SetFieldByName("value", int64(123456789123456789))
	env.SetFieldByName("big", big)

	env.SetFieldByName("name", newTestMessage(t, pool, "google.protobuf.StringValue"))

	flag := newTestMessage(t, pool, "google.protobuf.BoolValue")
	flag.SetFieldByName("value", true)
	env.SetFieldByName("flag", flag)

	score := newTestMessage(t, pool, "google.protobuf.DoubleValue")
	score.SetFieldByName("value", 2.5)
	env.SetFieldByName("score", score)

	blob := newTestMessage(t, pool, "google.protobuf.BytesValue")
	blob.SetFieldByName("value", []byte{0x01})
	env.SetFieldByName("blob", blob)

	js, err := env.MarshalJSON()
	require.NoError(t, err)

	want := map[string]interface{}{
		"ttl":       "1.500s",
		"createdAt": "2021-01-01T00:00:00Z",
		"mask":      "fooBar",
		"extra":     "x",
		"items":     []interface{}{true},
		"nothing":   map[string]interface{}{},
		"big":       "123456789123456789",
		"name":      "",
		"flag":      true,
		"score":     2.5,
		"blob":      "AQ==",
	}
	assert.Empty(t, cmp.Diff(want, jsonTree(t, js)))

	env2 := newTestMessage(t, pool, "testdata.Envelope")
	require.NoError(t, env2.UnmarshalJSON(js))
	assert.True(t, dynamic.Equal(env, env2), "round trip of %s", js)
}
