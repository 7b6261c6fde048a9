// Package testprotos compiles .proto sources in memory into descriptor sets
// for tests. The runtime packages never import it; they only ever consume
// descriptor bytes.
package testprotos

import (
	"context"
	"testing"

	"github.com/bufbuild/protocompile"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	dpb "google.golang.org/protobuf/types/descriptorpb"

	"github.com/slientgoat/prost-reflect/desc"
)

// Compile compiles the given .proto sources (path to file content) and
// returns a file descriptor set holding the named root files and their
// transitive imports. Standard imports, such as
// google/protobuf/duration.proto, may be imported without appearing in
// sources. The files in the returned set are in dependency order.
func Compile(t testing.TB, sources map[string]string, roots ...string) *dpb.FileDescriptorSet {
	t.Helper()
	compiler := &protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(sources),
		}),
	}
	files, err := compiler.Compile(context.Background(), roots...)
	require.NoError(t, err)

	fdset := &dpb.FileDescriptorSet{}
	seen := map[string]bool{}
	var add func(fd protoreflect.FileDescriptor)
	add = func(fd protoreflect.FileDescriptor) {
		if seen[fd.Path()] {
			return
		}
		seen[fd.Path()] = true
		imps := fd.Imports()
		for i := 0; i < imps.Len(); i++ {
			add(imps.Get(i).FileDescriptor)
		}
		fdset.File = append(fdset.File, protodesc.ToFileDescriptorProto(fd))
	}
	for _, fd := range files {
		add(fd)
	}
	return fdset
}

// CompileBytes is like Compile but returns the serialized form of the file
// descriptor set.
func CompileBytes(t testing.TB, sources map[string]string, roots ...string) []byte {
	t.Helper()
	b, err := proto.Marshal(Compile(t, sources, roots...))
	require.NoError(t, err)
	return b
}

// BuildPool compiles the given sources and builds a descriptor pool from the
// resulting file descriptor set.
func BuildPool(t testing.TB, sources map[string]string, roots ...string) *desc.Pool {
	t.Helper()
	p, err := desc.NewPoolFromSet(Compile(t, sources, roots...))
	require.NoError(t, err)
	return p
}
