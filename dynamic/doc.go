// Package dynamic provides dynamic protobuf messages: values whose message
// type is known only at runtime, described by descriptors from the desc
// package instead of generated code.
//
// A Message is created from a *desc.MessageDescriptor and accessed through
// field descriptors, tag numbers, or field names. It supports the protobuf
// binary format via Marshal and Unmarshal and the canonical JSON mapping
// via MarshalJSON and UnmarshalJSON, including the special JSON forms of
// the well-known types (Duration, Timestamp, Any, the wrappers, Struct,
// Value, ListValue, FieldMask, and Empty).
//
// Tag numbers encountered during decoding that the message's type does not
// declare are retained as unknown fields and re-emitted verbatim when the
// message is encoded again, so a decode/encode round trip through a
// dynamic message is lossless. Attaching an ExtensionRegistry lets the
// decoder resolve extension tags into regular, typed field access instead.
package dynamic
