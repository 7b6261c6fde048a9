// Package desc builds a queryable model of protobuf schemas from serialized
// file descriptors, for programs that must handle message types unknown at
// compile time.
//
// The entry point is the Pool, built from the bytes of a serialized
// google.protobuf.FileDescriptorSet (see NewPool) or from an already-parsed
// set (see NewPoolFromSet). A pool cross-links every type reference between
// its files and indexes every declared element by fully-qualified name.
// Pools are immutable once built; WithFiles derives extended pools without
// touching the original.
//
// The various descriptor types in this package are views over the pool's
// entries: rich wrappers around the descriptor protos that provide resolved
// links to related elements. A FieldDescriptor whose type is a message, for
// example, links directly to the MessageDescriptor for that type, even when
// the two are declared in different files, and even when message types
// reference themselves recursively.
package desc
