package desc

import (
	"google.golang.org/protobuf/proto"
	dpb "google.golang.org/protobuf/types/descriptorpb"
)

// EnumDescriptor describes an enum declared in a proto file.
type EnumDescriptor struct {
	proto        *dpb.EnumDescriptorProto
	parent       Descriptor
	file         *FileDescriptor
	values       []*EnumValueDescriptor
	fqn          string
	valuesByNum  map[int32]*EnumValueDescriptor
	valuesByName map[string]*EnumValueDescriptor
}

func createEnumDescriptor(fd *FileDescriptor, parent Descriptor, enclosing string, ed *dpb.EnumDescriptorProto) (*EnumDescriptor, error) {
	enumName := merge(enclosing, ed.GetName())
	ret := &EnumDescriptor{
		proto:        ed,
		parent:       parent,
		file:         fd,
		fqn:          enumName,
		valuesByNum:  map[int32]*EnumValueDescriptor{},
		valuesByName: map[string]*EnumValueDescriptor{},
	}
	if err := fd.pool.intern(enumName, ret); err != nil {
		return nil, err
	}
	if len(ed.GetValue()) == 0 {
		return nil, descErrorf(fd.GetName(), enumName, "enum declares no values")
	}
	for _, ev := range ed.GetValue() {
		evd, err := createEnumValueDescriptor(fd, ret, enumName, ev)
		if err != nil {
			return nil, err
		}
		ret.values = append(ret.values, evd)
		// for aliased numbers, the first declared name is canonical
		if _, ok := ret.valuesByNum[evd.GetNumber()]; !ok {
			ret.valuesByNum[evd.GetNumber()] = evd
		} else if !ed.GetOptions().GetAllowAlias() {
			return nil, descErrorf(fd.GetName(), evd.fqn, "enum value number %d is already used and allow_alias is not set", evd.GetNumber())
		}
		ret.valuesByName[evd.GetName()] = evd
	}
	return ret, nil
}

func (ed *EnumDescriptor) GetName() string {
	return ed.proto.GetName()
}

func (ed *EnumDescriptor) GetFullyQualifiedName() string {
	return ed.fqn
}

func (ed *EnumDescriptor) GetParent() Descriptor {
	return ed.parent
}

func (ed *EnumDescriptor) GetFile() *FileDescriptor {
	return ed.file
}

func (ed *EnumDescriptor) GetOptions() proto.Message {
	return ed.proto.GetOptions()
}

func (ed *EnumDescriptor) GetEnumOptions() *dpb.EnumOptions {
	return ed.proto.GetOptions()
}

func (ed *EnumDescriptor) AsProto() proto.Message {
	return ed.proto
}

func (ed *EnumDescriptor) AsEnumDescriptorProto() *dpb.EnumDescriptorProto {
	return ed.proto
}

func (ed *EnumDescriptor) String() string {
	return ed.proto.String()
}

// GetValues returns all of the allowed values defined for this enum, in the
// order in which they were declared.
func (ed *EnumDescriptor) GetValues() []*EnumValueDescriptor {
	return ed.values
}

// FindValueByName finds the enum value with the given name. If no such value exists
// then nil is returned.
func (ed *EnumDescriptor) FindValueByName(name string) *EnumValueDescriptor {
	return ed.valuesByName[name]
}

// FindValueByNumber finds the enum value with the given numeric value. If no such
// value exists then nil is returned. If aliases are allowed and several values have
// the given number, the first declared value is returned.
func (ed *EnumDescriptor) FindValueByNumber(num int32) *EnumValueDescriptor {
	return ed.valuesByNum[num]
}

// EnumValueDescriptor describes an allowed value of an enum declared in a proto file.
type EnumValueDescriptor struct {
	proto  *dpb.EnumValueDescriptorProto
	parent *EnumDescriptor
	file   *FileDescriptor
	fqn    string
}

func createEnumValueDescriptor(fd *FileDescriptor, parent *EnumDescriptor, enclosing string, evd *dpb.EnumValueDescriptorProto) (*EnumValueDescriptor, error) {
	valName := merge(enclosing, evd.GetName())
	ret := &EnumValueDescriptor{proto: evd, parent: parent, file: fd, fqn: valName}
	if err := fd.pool.intern(valName, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (vd *EnumValueDescriptor) GetName() string {
	return vd.proto.GetName()
}

// GetNumber returns the numeric value associated with this enum value.
func (vd *EnumValueDescriptor) GetNumber() int32 {
	return vd.proto.GetNumber()
}

func (vd *EnumValueDescriptor) GetFullyQualifiedName() string {
	return vd.fqn
}

func (vd *EnumValueDescriptor) GetParent() Descriptor {
	return vd.parent
}

// GetEnum returns the enum in which this enum value is defined.
func (vd *EnumValueDescriptor) GetEnum() *EnumDescriptor {
	return vd.parent
}

func (vd *EnumValueDescriptor) GetFile() *FileDescriptor {
	return vd.file
}

func (vd *EnumValueDescriptor) GetOptions() proto.Message {
	return vd.proto.GetOptions()
}

func (vd *EnumValueDescriptor) GetEnumValueOptions() *dpb.EnumValueOptions {
	return vd.proto.GetOptions()
}

func (vd *EnumValueDescriptor) AsProto() proto.Message {
	return vd.proto
}

func (vd *EnumValueDescriptor) AsEnumValueDescriptorProto() *dpb.EnumValueDescriptorProto {
	return vd.proto
}

func (vd *EnumValueDescriptor) String() string {
	return vd.proto.String()
}

// OneOfDescriptor describes a one-of field set declared in a protocol buffer message.
type OneOfDescriptor struct {
	proto   *dpb.OneofDescriptorProto
	parent  *MessageDescriptor
	file    *FileDescriptor
	choices []*FieldDescriptor
	fqn     string
}

func createOneOfDescriptor(fd *FileDescriptor, parent *MessageDescriptor, index int, enclosing string, od *dpb.OneofDescriptorProto) (*OneOfDescriptor, error) {
	oneOfName := merge(enclosing, od.GetName())
	ret := &OneOfDescriptor{proto: od, parent: parent, file: fd, fqn: oneOfName}
	if err := fd.pool.intern(oneOfName, ret); err != nil {
		return nil, err
	}
	for _, f := range parent.fields {
		oi := f.proto.OneofIndex
		if oi != nil && *oi == int32(index) {
			f.oneOf = ret
			ret.choices = append(ret.choices, f)
		}
	}
	return ret, nil
}

func (od *OneOfDescriptor) GetName() string {
	return od.proto.GetName()
}

func (od *OneOfDescriptor) GetFullyQualifiedName() string {
	return od.fqn
}

func (od *OneOfDescriptor) GetParent() Descriptor {
	return od.parent
}

// GetOwner returns the message to which this one-of field set belongs.
func (od *OneOfDescriptor) GetOwner() *MessageDescriptor {
	return od.parent
}

func (od *OneOfDescriptor) GetFile() *FileDescriptor {
	return od.file
}

func (od *OneOfDescriptor) GetOptions() proto.Message {
	return od.proto.GetOptions()
}

func (od *OneOfDescriptor) GetOneOfOptions() *dpb.OneofOptions {
	return od.proto.GetOptions()
}

func (od *OneOfDescriptor) AsProto() proto.Message {
	return od.proto
}

func (od *OneOfDescriptor) AsOneofDescriptorProto() *dpb.OneofDescriptorProto {
	return od.proto
}

func (od *OneOfDescriptor) String() string {
	return od.proto.String()
}

// GetChoices returns the fields that are part of the one-of field set. At most one of
// these fields may be set for a given message.
func (od *OneOfDescriptor) GetChoices() []*FieldDescriptor {
	return od.choices
}

// IsSynthetic returns true if this oneof was not declared in the schema but
// was invented to track presence of a proto3 optional field. Synthetic oneofs
// contain exactly one field.
func (od *OneOfDescriptor) IsSynthetic() bool {
	return len(od.choices) == 1 && od.choices[0].IsProto3Optional()
}
