package desc_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	dpb "google.golang.org/protobuf/types/descriptorpb"

	"github.com/slientgoat/prost-reflect/desc"
	"github.com/slientgoat/prost-reflect/internal/testprotos"
)

func TestNewPoolMalformedBytes(t *testing.T) {
	_, err := desc.NewPool([]byte{0xff, 0xff, 0xff, 0xff})
	require.Error(t, err)
	var descErr *desc.DescriptorError
	require.ErrorAs(t, err, &descErr)
}

func TestNewPoolFromBytes(t *testing.T) {
	b := testprotos.CompileBytes(t, map[string]string{
		"ping.proto": `
			syntax = "proto3";
			package sample;
			message Ping { string token = 1; }`,
	}, "ping.proto")

	pool, err := desc.NewPool(b)
	require.NoError(t, err)
	require.NotNil(t, pool.FindMessage("sample.Ping"))
	require.NotNil(t, pool.FindFile("ping.proto"))
}

func TestPoolBuildAndLookup(t *testing.T) {
	pool := testprotos.BuildPool(t, map[string]string{
		"foo/base.proto": `
			syntax = "proto2";
			package foo;
			message Thing {
				optional string name = 1;
			}
			enum Color {
				RED = 0;
				GREEN = 1;
			}`,
		"foo/widget.proto": `
			syntax = "proto2";
			package foo;
			import "foo/base.proto";
			message Widget {
				optional Thing thing = 1;
				optional Color color = 2;
			}
			service WidgetService {
				rpc Get (Widget) returns (Widget);
			}`,
	}, "foo/widget.proto")

	files := pool.Files()
	require.Len(t, files, 2)
	// dependency order: imported file first
	require.Equal(t, "foo/base.proto", files[0].GetName())
	require.Equal(t, "foo/widget.proto", files[1].GetName())

	require.NotNil(t, pool.FindFile("foo/base.proto"))
	require.Nil(t, pool.FindFile("no/such.proto"))

	md := pool.FindMessage("foo.Widget")
	require.NotNil(t, md)
	require.Equal(t, "Widget", md.GetName())
	require.Equal(t, "foo.Widget", md.GetFullyQualifiedName())
	require.Same(t, pool.FindFile("foo/widget.proto"), md.GetFile())

	// leading dot is accepted
	require.Same(t, md, pool.FindSymbol(".foo.Widget").(*desc.MessageDescriptor))
	require.Nil(t, pool.FindSymbol("foo.NoSuchThing"))
	require.Nil(t, pool.FindMessage("foo.Color"))

	ed := pool.FindEnum("foo.Color")
	require.NotNil(t, ed)
	require.Equal(t, "foo.Color", ed.GetFullyQualifiedName())

	sd := pool.FindService("foo.WidgetService")
	require.NotNil(t, sd)
	require.Len(t, sd.GetMethods(), 1)

	// cross-file references are linked by identity
	require.Same(t, pool.FindMessage("foo.Thing"), md.FindFieldByName("thing").GetMessageType())
	require.Same(t, ed, md.FindFieldByName("color").GetEnumType())
}

func TestPoolFilesInAnyOrder(t *testing.T) {
	fdset := testprotos.Compile(t, map[string]string{
		"a.proto": `
			syntax = "proto3";
			package sample;
			message A { string name = 1; }`,
		"b.proto": `
			syntax = "proto3";
			package sample;
			import "a.proto";
			message B { A a = 1; }`,
	}, "b.proto")

	// reverse the files so an importer precedes its dependency
	for i, j := 0, len(fdset.File)-1; i < j; i, j = i+1, j-1 {
		fdset.File[i], fdset.File[j] = fdset.File[j], fdset.File[i]
	}
	pool, err := desc.NewPoolFromSet(fdset)
	require.NoError(t, err)
	require.NotNil(t, pool.FindMessage("sample.B"))

	// dependency order is restored in the built pool
	files := pool.Files()
	require.Equal(t, "a.proto", files[0].GetName())
	require.Equal(t, "b.proto", files[1].GetName())
}

func TestPoolDuplicateIdenticalFile(t *testing.T) {
	fdset := testprotos.Compile(t, map[string]string{
		"dup.proto": `
			syntax = "proto3";
			package sample;
			message Dup { int32 n = 1; }`,
	}, "dup.proto")
	fdset.File = append(fdset.File, fdset.File[0])

	pool, err := desc.NewPoolFromSet(fdset)
	require.NoError(t, err)
	require.Len(t, pool.Files(), 1)
}

func TestPoolConflictingFileContents(t *testing.T) {
	v1 := testprotos.Compile(t, map[string]string{
		"same.proto": `syntax = "proto3"; package sample; message One { int32 n = 1; }`,
	}, "same.proto")
	v2 := testprotos.Compile(t, map[string]string{
		"same.proto": `syntax = "proto3"; package sample; message Two { int32 n = 1; }`,
	}, "same.proto")
	v1.File = append(v1.File, v2.File...)

	_, err := desc.NewPoolFromSet(v1)
	require.ErrorContains(t, err, "two different files with the same name")
}

func TestPoolDuplicateSymbol(t *testing.T) {
	first := testprotos.Compile(t, map[string]string{
		"first.proto": `syntax = "proto3"; package sample; message Clash { int32 n = 1; }`,
	}, "first.proto")
	second := testprotos.Compile(t, map[string]string{
		"second.proto": `syntax = "proto3"; package sample; message Clash { int32 n = 1; }`,
	}, "second.proto")
	first.File = append(first.File, second.File...)

	_, err := desc.NewPoolFromSet(first)
	require.ErrorContains(t, err, "duplicate symbol")
	var descErr *desc.DescriptorError
	require.ErrorAs(t, err, &descErr)
	require.Equal(t, "sample.Clash", descErr.Symbol)
}

func TestPoolMissingDependency(t *testing.T) {
	fdp := &dpb.FileDescriptorProto{
		Name:       proto.String("lonely.proto"),
		Package:    proto.String("sample"),
		Dependency: []string{"nope.proto"},
	}
	_, err := desc.NewPoolFromSet(&dpb.FileDescriptorSet{File: []*dpb.FileDescriptorProto{fdp}})
	require.ErrorContains(t, err, `missing dependency "nope.proto"`)
}

func TestPoolDependencyCycle(t *testing.T) {
	a := &dpb.FileDescriptorProto{
		Name:       proto.String("a.proto"),
		Dependency: []string{"b.proto"},
	}
	b := &dpb.FileDescriptorProto{
		Name:       proto.String("b.proto"),
		Dependency: []string{"a.proto"},
	}
	_, err := desc.NewPoolFromSet(&dpb.FileDescriptorSet{File: []*dpb.FileDescriptorProto{a, b}})
	require.ErrorContains(t, err, "cycle in file dependencies")
}

func TestPoolFileWithoutName(t *testing.T) {
	_, err := desc.NewPoolFromSet(&dpb.FileDescriptorSet{File: []*dpb.FileDescriptorProto{{}}})
	require.ErrorContains(t, err, "no name")
}

func TestPoolUnresolvableReference(t *testing.T) {
	fdp := &dpb.FileDescriptorProto{
		Name:    proto.String("bad.proto"),
		Package: proto.String("sample"),
		MessageType: []*dpb.DescriptorProto{{
			Name: proto.String("Holder"),
			Field: []*dpb.FieldDescriptorProto{{
				Name:     proto.String("ref"),
				Number:   proto.Int32(1),
				Label:    dpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
				Type:     dpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
				TypeName: proto.String(".no.Such"),
			}},
		}},
	}
	_, err := desc.NewPoolFromSet(&dpb.FileDescriptorSet{File: []*dpb.FileDescriptorProto{fdp}})
	require.ErrorContains(t, err, `unresolvable reference to ".no.Such"`)
	var descErr *desc.DescriptorError
	require.ErrorAs(t, err, &descErr)
	require.Equal(t, "bad.proto", descErr.File)
	require.Equal(t, "sample.Holder.ref", descErr.Symbol)
}

func TestPoolReferenceKindMismatch(t *testing.T) {
	fdp := &dpb.FileDescriptorProto{
		Name:    proto.String("kinds.proto"),
		Package: proto.String("sample"),
		MessageType: []*dpb.DescriptorProto{{
			Name: proto.String("Holder"),
			Field: []*dpb.FieldDescriptorProto{{
				Name:     proto.String("ref"),
				Number:   proto.Int32(1),
				Label:    dpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
				Type:     dpb.FieldDescriptorProto_TYPE_ENUM.Enum(),
				TypeName: proto.String(".sample.Holder"),
			}},
		}},
	}
	_, err := desc.NewPoolFromSet(&dpb.FileDescriptorSet{File: []*dpb.FileDescriptorProto{fdp}})
	require.ErrorContains(t, err, "should be an enum")
}

func TestPoolInvalidFieldNumbers(t *testing.T) {
	for _, number := range []int32{0, -1, 19000, 19999, 536870912} {
		fdp := &dpb.FileDescriptorProto{
			Name:    proto.String("numbers.proto"),
			Package: proto.String("sample"),
			MessageType: []*dpb.DescriptorProto{{
				Name: proto.String("Holder"),
				Field: []*dpb.FieldDescriptorProto{{
					Name:   proto.String("f"),
					Number: proto.Int32(number),
					Label:  dpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:   dpb.FieldDescriptorProto_TYPE_INT32.Enum(),
				}},
			}},
		}
		_, err := desc.NewPoolFromSet(&dpb.FileDescriptorSet{File: []*dpb.FileDescriptorProto{fdp}})
		require.ErrorContains(t, err, "invalid field number", "number %d", number)
	}

	// 19000 is fine for an element that is not a field number
	fdp := &dpb.FileDescriptorProto{
		Name:    proto.String("numbers.proto"),
		Package: proto.String("sample"),
		MessageType: []*dpb.DescriptorProto{{
			Name: proto.String("Holder"),
			Field: []*dpb.FieldDescriptorProto{{
				Name:   proto.String("f"),
				Number: proto.Int32(536870911),
				Label:  dpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
				Type:   dpb.FieldDescriptorProto_TYPE_INT32.Enum(),
			}},
		}},
	}
	_, err := desc.NewPoolFromSet(&dpb.FileDescriptorSet{File: []*dpb.FileDescriptorProto{fdp}})
	require.NoError(t, err)
}

func TestPoolDuplicateFieldNumber(t *testing.T) {
	mkField := func(name string, number int32) *dpb.FieldDescriptorProto {
		return &dpb.FieldDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(number),
			Label:  dpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:   dpb.FieldDescriptorProto_TYPE_INT32.Enum(),
		}
	}
	fdp := &dpb.FileDescriptorProto{
		Name:    proto.String("dupnum.proto"),
		Package: proto.String("sample"),
		MessageType: []*dpb.DescriptorProto{{
			Name:  proto.String("Holder"),
			Field: []*dpb.FieldDescriptorProto{mkField("a", 1), mkField("b", 1)},
		}},
	}
	_, err := desc.NewPoolFromSet(&dpb.FileDescriptorSet{File: []*dpb.FileDescriptorProto{fdp}})
	require.ErrorContains(t, err, `field number 1 is already used by "a"`)
}

func TestPoolWithFiles(t *testing.T) {
	base := testprotos.BuildPool(t, map[string]string{
		"base.proto": `
			syntax = "proto3";
			package ext;
			message Base { string name = 1; }`,
	}, "base.proto")

	more := testprotos.Compile(t, map[string]string{
		"base.proto": `
			syntax = "proto3";
			package ext;
			message Base { string name = 1; }`,
		"extra.proto": `
			syntax = "proto3";
			package ext;
			import "base.proto";
			message Extra { Base base = 1; }`,
	}, "extra.proto")

	extended, err := base.WithFiles(more)
	require.NoError(t, err)

	// the original pool is untouched
	require.Nil(t, base.FindFile("extra.proto"))
	require.Nil(t, base.FindMessage("ext.Extra"))
	require.Len(t, base.Files(), 1)

	// the extended pool shares the original descriptors
	require.Same(t, base.FindFile("base.proto"), extended.FindFile("base.proto"))
	require.Same(t, base.FindMessage("ext.Base"), extended.FindMessage("ext.Base"))

	// and the new file links against them
	extra := extended.FindMessage("ext.Extra")
	require.NotNil(t, extra)
	require.Same(t, base.FindMessage("ext.Base"), extra.FindFieldByName("base").GetMessageType())
}

func TestPoolWithFilesConflict(t *testing.T) {
	base := testprotos.BuildPool(t, map[string]string{
		"base.proto": `syntax = "proto3"; package ext; message Base { string name = 1; }`,
	}, "base.proto")

	conflicting := testprotos.Compile(t, map[string]string{
		"base.proto": `syntax = "proto3"; package ext; message Base { int64 count = 2; }`,
	}, "base.proto")

	_, err := base.WithFiles(conflicting)
	require.ErrorContains(t, err, "different file with the same name")
}

func TestPoolExtensions(t *testing.T) {
	pool := testprotos.BuildPool(t, map[string]string{
		"exts.proto": `
			syntax = "proto2";
			package ext;
			message Target {
				optional string name = 1;
				extensions 100 to 200;
			}
			extend Target {
				optional string label = 100;
			}
			message Holder {
				extend Target {
					optional int32 weight = 101;
				}
			}`,
	}, "exts.proto")

	label := pool.FindExtension("ext.label")
	require.NotNil(t, label)
	require.True(t, label.IsExtension())
	require.Equal(t, "ext.Target", label.GetOwner().GetFullyQualifiedName())

	// non-extension fields are not returned by extension lookups
	require.Nil(t, pool.FindExtension("ext.Target.name"))

	weight := pool.FindExtensionByNumber("ext.Target", 101)
	require.NotNil(t, weight)
	require.Equal(t, "ext.Holder.weight", weight.GetFullyQualifiedName())
	require.Nil(t, pool.FindExtensionByNumber("ext.Target", 102))

	all := pool.AllExtensionsForType("ext.Target")
	require.Len(t, all, 2)
	require.Equal(t, int32(100), all[0].GetNumber())
	require.Equal(t, int32(101), all[1].GetNumber())
	require.Empty(t, pool.AllExtensionsForType("ext.Holder"))
}

func TestPoolDuplicateExtensionNumber(t *testing.T) {
	first := testprotos.Compile(t, map[string]string{
		"target.proto": `
			syntax = "proto2";
			package ext;
			message Target { extensions 100 to 200; }
			extend Target { optional string label = 100; }`,
	}, "target.proto")
	second := testprotos.Compile(t, map[string]string{
		"target.proto": `
			syntax = "proto2";
			package ext;
			message Target { extensions 100 to 200; }
			extend Target { optional string label = 100; }`,
		"other.proto": `
			syntax = "proto2";
			package other;
			import "target.proto";
			extend ext.Target { optional int32 alias = 100; }`,
	}, "other.proto")
	first.File = append(first.File, second.File...)

	_, err := desc.NewPoolFromSet(first)
	require.ErrorContains(t, err, `extension number 100 for "ext.Target" is already used`)
}
