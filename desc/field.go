package desc

import (
	"google.golang.org/protobuf/proto"
	dpb "google.golang.org/protobuf/types/descriptorpb"
)

// Field numbers must be in [1, 536870911], and [19000, 19999] is reserved
// for protocol implementations.
const (
	maxFieldNumber      = 536870911
	firstReservedNumber = 19000
	lastReservedNumber  = 19999
)

// FieldDescriptor describes a field of a protocol buffer message.
type FieldDescriptor struct {
	proto    *dpb.FieldDescriptorProto
	parent   Descriptor
	owner    *MessageDescriptor
	file     *FileDescriptor
	oneOf    *OneOfDescriptor
	msgType  *MessageDescriptor
	enumType *EnumDescriptor
	fqn      string
	jsonName string
	def      interface{}
}

func createFieldDescriptor(fd *FileDescriptor, parent Descriptor, enclosing string, fld *dpb.FieldDescriptorProto) (*FieldDescriptor, error) {
	fldName := merge(enclosing, fld.GetName())
	ret := &FieldDescriptor{proto: fld, parent: parent, file: fd, fqn: fldName}
	if n := fld.GetNumber(); n < 1 || n > maxFieldNumber ||
		(n >= firstReservedNumber && n <= lastReservedNumber) {
		return nil, descErrorf(fd.GetName(), fldName, "invalid field number %d", n)
	}
	if fld.GetExtendee() == "" {
		md, ok := parent.(*MessageDescriptor)
		if !ok {
			return nil, descErrorf(fd.GetName(), fldName, "non-extension field declared outside of a message")
		}
		ret.owner = md
	} else if fld.OneofIndex != nil {
		return nil, descErrorf(fd.GetName(), fldName, "extension cannot be a member of a oneof")
	}
	ret.jsonName = fld.GetJsonName()
	if ret.jsonName == "" {
		ret.jsonName = jsonCamelCase(fld.GetName())
	}
	if err := fd.pool.intern(fldName, ret); err != nil {
		return nil, err
	}
	// owner for extensions, field type (be it message or enum), one-of
	// membership, and the default value get resolved later
	return ret, nil
}

func (fd *FieldDescriptor) resolve(scopes []scope) error {
	switch fd.proto.GetType() {
	case dpb.FieldDescriptorProto_TYPE_ENUM:
		d, err := resolve(fd.file, fd.fqn, fd.proto.GetTypeName(), scopes)
		if err != nil {
			return err
		}
		ed, ok := d.(*EnumDescriptor)
		if !ok {
			return descErrorf(fd.file.GetName(), fd.fqn, "reference %q should be an enum, not a %T", fd.proto.GetTypeName(), d)
		}
		fd.enumType = ed
	case dpb.FieldDescriptorProto_TYPE_MESSAGE, dpb.FieldDescriptorProto_TYPE_GROUP:
		d, err := resolve(fd.file, fd.fqn, fd.proto.GetTypeName(), scopes)
		if err != nil {
			return err
		}
		md, ok := d.(*MessageDescriptor)
		if !ok {
			return descErrorf(fd.file.GetName(), fd.fqn, "reference %q should be a message, not a %T", fd.proto.GetTypeName(), d)
		}
		fd.msgType = md
	}
	if fd.proto.GetExtendee() != "" {
		d, err := resolve(fd.file, fd.fqn, fd.proto.GetExtendee(), scopes)
		if err != nil {
			return err
		}
		md, ok := d.(*MessageDescriptor)
		if !ok {
			return descErrorf(fd.file.GetName(), fd.fqn, "extendee %q should be a message, not a %T", fd.proto.GetExtendee(), d)
		}
		fd.owner = md
	}
	return fd.processDefaultValue()
}

func (fd *FieldDescriptor) GetName() string {
	return fd.proto.GetName()
}

// GetNumber returns the tag number of this field.
func (fd *FieldDescriptor) GetNumber() int32 {
	return fd.proto.GetNumber()
}

func (fd *FieldDescriptor) GetFullyQualifiedName() string {
	return fd.fqn
}

func (fd *FieldDescriptor) GetParent() Descriptor {
	return fd.parent
}

func (fd *FieldDescriptor) GetFile() *FileDescriptor {
	return fd.file
}

func (fd *FieldDescriptor) GetOptions() proto.Message {
	return fd.proto.GetOptions()
}

func (fd *FieldDescriptor) GetFieldOptions() *dpb.FieldOptions {
	return fd.proto.GetOptions()
}

func (fd *FieldDescriptor) AsProto() proto.Message {
	return fd.proto
}

func (fd *FieldDescriptor) AsFieldDescriptorProto() *dpb.FieldDescriptorProto {
	return fd.proto
}

func (fd *FieldDescriptor) String() string {
	return fd.proto.String()
}

// GetJSONName returns the name used in JSON text: the json_name declared in
// the descriptor, if present, or the lowerCamelCase form of the field name.
func (fd *FieldDescriptor) GetJSONName() string {
	return fd.jsonName
}

// GetOwner returns the message type that this field belongs to. If this is a normal
// field then this is the same as GetParent. But for extensions, this will be the
// extendee message whereas GetParent refers to where the extension was declared.
func (fd *FieldDescriptor) GetOwner() *MessageDescriptor {
	return fd.owner
}

// IsExtension returns true if this is an extension field.
func (fd *FieldDescriptor) IsExtension() bool {
	return fd.proto.GetExtendee() != ""
}

// GetOneOf returns the one-of field set to which this field belongs. If this field
// is not part of a one-of then this method returns nil.
func (fd *FieldDescriptor) GetOneOf() *OneOfDescriptor {
	return fd.oneOf
}

// GetType returns the type of this field. If the type indicates an enum, the
// enum type can be queried via GetEnumType. If the type indicates a message,
// the message type can be queried via GetMessageType.
func (fd *FieldDescriptor) GetType() dpb.FieldDescriptorProto_Type {
	return fd.proto.GetType()
}

// GetLabel returns the label for this field. The label can be required (proto2-only),
// optional (default for proto3), or repeated.
func (fd *FieldDescriptor) GetLabel() dpb.FieldDescriptorProto_Label {
	return fd.proto.GetLabel()
}

// IsRequired returns true if this field has the "required" label.
func (fd *FieldDescriptor) IsRequired() bool {
	return fd.proto.GetLabel() == dpb.FieldDescriptorProto_LABEL_REQUIRED
}

// IsRepeated returns true if this field has the "repeated" label.
func (fd *FieldDescriptor) IsRepeated() bool {
	return fd.proto.GetLabel() == dpb.FieldDescriptorProto_LABEL_REPEATED
}

// IsProto3Optional returns true if this field was declared with the explicit
// "optional" label in a proto3 file. Such fields track presence, backed by a
// synthetic oneof.
func (fd *FieldDescriptor) IsProto3Optional() bool {
	return fd.proto.GetProto3Optional()
}

// IsMap returns true if this is a map field. If so, it will have the "repeated"
// label and its type will be a message that represents a map entry. The map entry
// message will have exactly two fields: the key (tag 1) and the value (tag 2).
func (fd *FieldDescriptor) IsMap() bool {
	return fd.IsRepeated() &&
		fd.proto.GetType() == dpb.FieldDescriptorProto_TYPE_MESSAGE &&
		fd.msgType != nil && fd.msgType.IsMapEntry()
}

// HasPresence returns true if the field distinguishes between being unset and
// being set to its zero value. That is the case for all singular message and
// group fields, all members of oneofs (including proto3 optional fields), and
// every singular field of a proto2 file.
func (fd *FieldDescriptor) HasPresence() bool {
	if fd.IsRepeated() {
		return false
	}
	t := fd.proto.GetType()
	return t == dpb.FieldDescriptorProto_TYPE_MESSAGE ||
		t == dpb.FieldDescriptorProto_TYPE_GROUP ||
		fd.oneOf != nil ||
		!fd.file.isProto3
}

// IsPacked returns true if repeated occurrences of this field are encoded as
// a single length-delimited payload holding the concatenated values. Fields
// may set the packed option explicitly; proto3 files default numeric repeated
// fields to packed.
func (fd *FieldDescriptor) IsPacked() bool {
	if !fd.IsRepeated() {
		return false
	}
	switch fd.proto.GetType() {
	case dpb.FieldDescriptorProto_TYPE_STRING, dpb.FieldDescriptorProto_TYPE_BYTES,
		dpb.FieldDescriptorProto_TYPE_MESSAGE, dpb.FieldDescriptorProto_TYPE_GROUP:
		// length-delimited and group types cannot be packed
		return false
	}
	if opts := fd.proto.GetOptions(); opts != nil && opts.Packed != nil {
		return opts.GetPacked()
	}
	return fd.file.isProto3
}

// GetMessageType returns the type of this field if it is a message type. If
// this field is not a message type, it returns nil.
func (fd *FieldDescriptor) GetMessageType() *MessageDescriptor {
	return fd.msgType
}

// GetEnumType returns the type of this field if it is an enum type. If this
// field is not an enum type, it returns nil.
func (fd *FieldDescriptor) GetEnumType() *EnumDescriptor {
	return fd.enumType
}

// GetDefaultValue returns the default value for this field.
//
// If this field represents a message type or is repeated (including maps), this method
// always returns nil. If the field represents an enum type, this method returns an int32
// corresponding to the default enum value, which is the declared default or the enum's
// first declared value.
//
// Otherwise, it returns the declared default value for the field or a zero value, if no
// default is declared or if the file is proto3. The type of said return value corresponds
// to the type of the field:
//
//	+-------------------------+-----------+
//	|       Declared Type     |  Go Type  |
//	+-------------------------+-----------+
//	| int32, sint32, sfixed32 | int32     |
//	| int64, sint64, sfixed64 | int64     |
//	| uint32, fixed32         | uint32    |
//	| uint64, fixed64         | uint64    |
//	| float                   | float32   |
//	| double                  | float64   |
//	| bool                    | bool      |
//	| string                  | string    |
//	| bytes                   | []byte    |
//	| enum                    | int32     |
//	+-------------------------+-----------+
func (fd *FieldDescriptor) GetDefaultValue() interface{} {
	return fd.getDefaultValue()
}
