package dynamic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slientgoat/prost-reflect/desc"
	"github.com/slientgoat/prost-reflect/dynamic"
)

func extensionTags(fds []*desc.FieldDescriptor) []int32 {
	tags := make([]int32, len(fds))
	for i, fd := range fds {
		tags[i] = fd.GetNumber()
	}
	return tags
}

func TestPoolExtensionLookup(t *testing.T) {
	pool := buildTestPool(t)

	origin := pool.FindExtension("testdata.origin")
	require.NotNil(t, origin)
	assert.True(t, origin.IsExtension())
	assert.EqualValues(t, 100, origin.GetNumber())
	assert.Equal(t, "testdata.Order", origin.GetOwner().GetFullyQualifiedName())

	// a regular field is not surfaced as an extension
	assert.Nil(t, pool.FindExtension("testdata.Order.id"))

	assert.Same(t, origin, pool.FindExtensionByNumber("testdata.Order", 100))

	carrier := pool.FindExtension("testdata.Carrier.carrier")
	require.NotNil(t, carrier)
	assert.Same(t, carrier, pool.FindExtensionByNumber(".testdata.Order", 110))

	assert.Equal(t, []int32{100, 101, 110, 120}, extensionTags(pool.AllExtensionsForType("testdata.Order")))
	assert.Empty(t, pool.AllExtensionsForType("testdata.Widget"))
}

func TestExtensionRegistryLookup(t *testing.T) {
	pool := buildTestPool(t)
	origin := pool.FindExtension("testdata.origin")
	ratings := pool.FindExtension("testdata.ratings")

	er := dynamic.NewExtensionRegistry()
	require.NoError(t, er.AddExtension(origin, ratings))

	assert.Same(t, origin, er.FindExtension("testdata.Order", 100))
	assert.Nil(t, er.FindExtension("testdata.Order", 110))
	assert.Nil(t, er.FindExtension("testdata.Widget", 100))

	assert.Same(t, origin, er.FindExtensionByName("testdata.Order", "testdata.origin"))
	assert.Nil(t, er.FindExtensionByName("testdata.Order", "testdata.Carrier.carrier"))

	exts := er.AllExtensionsForType("testdata.Order")
	require.Len(t, exts, 2)
	assert.Same(t, origin, exts[0])
	assert.Same(t, ratings, exts[1])

	// only extension fields can be registered
	md := pool.FindMessage("testdata.Order")
	err := er.AddExtension(md.FindFieldByName("id"))
	require.ErrorContains(t, err, "testdata.Order.id is not an extension")

	// a nil registry is usable and finds nothing
	var none *dynamic.ExtensionRegistry
	assert.Nil(t, none.FindExtension("testdata.Order", 100))
	assert.Nil(t, none.FindExtensionByName("testdata.Order", "testdata.origin"))
	assert.Nil(t, none.AllExtensionsForType("testdata.Order"))
}

func TestExtensionRegistryFromFiles(t *testing.T) {
	pool := buildTestPool(t)

	// registering a file picks up extensions nested inside its messages too
	er := dynamic.NewExtensionRegistry()
	er.AddExtensionsFromFile(pool.FindFile("test/orders.proto"))
	assert.Equal(t, []int32{100, 101, 110}, extensionTags(er.AllExtensionsForType("testdata.Order")))

	// but not extensions declared in other files
	er = dynamic.NewExtensionRegistry()
	er.AddExtensionsFromFile(pool.FindFile("test/more_orders.proto"))
	assert.Equal(t, []int32{120}, extensionTags(er.AllExtensionsForType("testdata.Order")))

	// the recursive variant walks the file's imports as well
	er = dynamic.NewExtensionRegistry()
	er.AddExtensionsFromFileRecursively(pool.FindFile("test/more_orders.proto"))
	assert.Equal(t, []int32{100, 101, 110, 120}, extensionTags(er.AllExtensionsForType("testdata.Order")))

	er = dynamic.NewExtensionRegistry()
	er.AddExtensionsFromPool(pool)
	assert.Equal(t, []int32{100, 101, 110, 120}, extensionTags(er.AllExtensionsForType("testdata.Order")))
}

func TestDecodeWithExtensionRegistry(t *testing.T) {
	pool := buildTestPool(t)
	md := pool.FindMessage("testdata.Order")
	origin := pool.FindExtension("testdata.origin")
	ratings := pool.FindExtension("testdata.ratings")

	er := dynamic.NewExtensionRegistry()
	er.AddExtensionsFromFile(pool.FindFile("test/orders.proto"))

	m := dynamic.NewMessageWithExtensionRegistry(md, er)
	require.NoError(t, m.Unmarshal(wireBytes(t, `1: {"A-1"} 100: {"EU"} 101: {4 5}`)))

	assert.Empty(t, m.GetUnknownFields())
	v, err := m.TryGetField(origin)
	require.NoError(t, err)
	assert.Equal(t, "EU", v)
	assert.Equal(t, []interface{}{int32(4), int32(5)}, m.GetField(ratings))

	// the repeated extension is not packed, so it re-encodes one record per
	// element even though it arrived as a packed run
	out, err := m.Marshal()
	require.NoError(t, err)
	assert.Equal(t, wireBytes(t, `1: {"A-1"} 100: {"EU"} 101: 4 101: 5`), out)

	// message-typed extension
	m = dynamic.NewMessageWithExtensionRegistry(md, er)
	require.NoError(t, m.Unmarshal(wireBytes(t, `1: {"A-2"} 110: {1: {"DHL"}}`)))
	carrier := pool.FindExtension("testdata.Carrier.carrier")
	cv, err := m.TryGetField(carrier)
	require.NoError(t, err)
	cm, ok := cv.(*dynamic.Message)
	require.True(t, ok)
	assert.Equal(t, "DHL", cm.GetFieldByName("name"))
}

func TestDecodeWithoutRegistryRetainsExtensions(t *testing.T) {
	pool := buildTestPool(t)
	md := pool.FindMessage("testdata.Order")
	origin := pool.FindExtension("testdata.origin")

	m := dynamic.NewMessage(md)
	require.NoError(t, m.Unmarshal(wireBytes(t, `1: {"A-1"} 100: {"EU"} 101: {4 5}`)))

	// with no registry the extension tags are retained as unknown fields
	assert.Equal(t, []int32{100, 101}, m.GetUnknownFields())
	assert.False(t, m.HasField(origin))

	// fetching by descriptor re-decodes the retained records for that tag
	v, err := m.TryGetField(origin)
	require.NoError(t, err)
	assert.Equal(t, "EU", v)
	assert.True(t, m.HasField(origin))
	assert.Equal(t, []int32{101}, m.GetUnknownFields())

	// the promoted field becomes a known field; the rest stays verbatim
	out, err := m.Marshal()
	require.NoError(t, err)
	assert.Equal(t, wireBytes(t, `1: {"A-1"} 100: {"EU"} 101: {4 5}`), out)
}

func TestSetExtensionFieldDirectly(t *testing.T) {
	pool := buildTestPool(t)
	md := pool.FindMessage("testdata.Order")
	origin := pool.FindExtension("testdata.origin")

	// setting an extension needs only its descriptor, not a registry
	m := dynamic.NewMessage(md)
	m.SetFieldByName("id", "A-3")
	m.SetField(origin, "JP")
	out, err := m.Marshal()
	require.NoError(t, err)
	assert.Equal(t, wireBytes(t, `1: {"A-3"} 100: {"JP"}`), out)

	// setting over retained unknown data for the same tag replaces it
	m = dynamic.NewMessage(md)
	require.NoError(t, m.Unmarshal(wireBytes(t, `1: {"A-4"} 100: {"EU"}`)))
	m.SetField(origin, "US")
	assert.Empty(t, m.GetUnknownFields())
	out, err = m.Marshal()
	require.NoError(t, err)
	assert.Equal(t, wireBytes(t, `1: {"A-4"} 100: {"US"}`), out)
}

func TestFindExtensionDescriptorByName(t *testing.T) {
	pool := buildTestPool(t)
	md := pool.FindMessage("testdata.Order")
	origin := pool.FindExtension("testdata.origin")

	er := dynamic.NewExtensionRegistry()
	require.NoError(t, er.AddExtension(origin))
	m := dynamic.NewMessageWithExtensionRegistry(md, er)

	assert.Same(t, origin, m.FindFieldDescriptor(100))
	assert.Same(t, origin, m.FindFieldDescriptorByName("testdata.origin"))
	assert.Same(t, origin, m.FindFieldDescriptorByName("(testdata.origin)"))
	assert.Same(t, origin, m.FindFieldDescriptorByName("[testdata.origin]"))
	assert.Nil(t, m.FindFieldDescriptorByName("(testdata.origin"))
	assert.Nil(t, m.FindFieldDescriptorByName("(id)"))
	assert.Nil(t, m.FindFieldDescriptorByName(""))

	// setters resolve the parenthesized form through the registry
	require.NoError(t, m.TrySetFieldByName("(testdata.origin)", "CA"))
	assert.Equal(t, "CA", m.GetField(origin))

	// without a registry the name is unknown...
	plain := dynamic.NewMessage(md)
	assert.Nil(t, plain.FindFieldDescriptorByName("(testdata.origin)"))
	// ...until the extension is set explicitly, which registers it
	plain.SetField(origin, "MX")
	assert.Same(t, origin, plain.FindFieldDescriptorByName("(testdata.origin)"))
	assert.Same(t, origin, plain.FindFieldDescriptor(100))
}

func TestExtensionsInJSON(t *testing.T) {
	pool := buildTestPool(t)
	md := pool.FindMessage("testdata.Order")
	origin := pool.FindExtension("testdata.origin")
	ratings := pool.FindExtension("testdata.ratings")

	er := dynamic.NewExtensionRegistry()
	er.AddExtensionsFromFile(pool.FindFile("test/orders.proto"))

	m := dynamic.NewMessageWithExtensionRegistry(md, er)
	m.SetFieldByName("id", "A-5")
	m.SetField(origin, "EU")
	m.SetField(ratings, []int32{4, 5})

	js, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":"A-5","[testdata.origin]":"EU","[testdata.ratings]":[4,5]}`, string(js))

	m2 := dynamic.NewMessageWithExtensionRegistry(md, er)
	require.NoError(t, m2.UnmarshalJSON(js))
	assert.True(t, dynamic.Equal(m, m2))

	// without a registry the extension members are skipped like any other
	// unknown member
	m3 := dynamic.NewMessage(md)
	require.NoError(t, m3.UnmarshalJSON(js))
	assert.Equal(t, "A-5", m3.GetFieldByName("id"))
	assert.False(t, m3.HasField(origin))

	// EmitDefaults reports unset declared fields but never unset extensions,
	// registered or not
	m4 := dynamic.NewMessageWithExtensionRegistry(md, er)
	m4.SetFieldByName("id", "A-6")
	js, err = m4.MarshalJSONPB(&dynamic.MarshalJSONOptions{EmitDefaults: true})
	require.NoError(t, err)
	want := jsonTree(t, []byte(`{
		"id": "A-6",
		"quantity": 7,
		"status": "new",
		"adjustment": 0,
		"item": [],
		"audit": null,
		"stamp": "AQI="
	}`))
	assert.Equal(t, want, jsonTree(t, js))
}
