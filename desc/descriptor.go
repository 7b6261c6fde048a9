package desc

import (
	"google.golang.org/protobuf/proto"
	dpb "google.golang.org/protobuf/types/descriptorpb"
)

// Descriptor is the common interface implemented by all descriptor objects.
type Descriptor interface {
	// GetName returns the name of the object described by the descriptor. This will
	// be a base name that does not include enclosing message names or the package name.
	// For file descriptors, this indicates the path and name to the described file.
	GetName() string
	// GetFullyQualifiedName returns the fully-qualified name of the object described by
	// the descriptor. This will include the package name and any enclosing message names.
	// For file descriptors, this is the same as GetName.
	GetFullyQualifiedName() string
	// GetParent returns the enclosing element. If the described object is a top-level
	// object, this returns the file descriptor. Otherwise, it returns the element in
	// which the described object was declared. File descriptors have no parent and
	// return nil.
	GetParent() Descriptor
	// GetFile returns the file descriptor in which this element was declared. File
	// descriptors return themselves.
	GetFile() *FileDescriptor
	// GetOptions returns the options proto containing options for the described element.
	GetOptions() proto.Message
	// AsProto returns the underlying descriptor proto for this descriptor.
	AsProto() proto.Message
}

// FileDescriptor describes a proto schema file.
type FileDescriptor struct {
	proto      *dpb.FileDescriptorProto
	pool       *Pool
	deps       []*FileDescriptor
	publicDeps []*FileDescriptor
	messages   []*MessageDescriptor
	enums      []*EnumDescriptor
	extensions []*FieldDescriptor
	services   []*ServiceDescriptor
	isProto3   bool
}

func createFileDescriptor(p *Pool, fd *dpb.FileDescriptorProto) (*FileDescriptor, error) {
	ret := &FileDescriptor{
		proto:    fd,
		pool:     p,
		isProto3: fd.GetSyntax() == "proto3",
	}
	pkg := fd.GetPackage()

	// link to file descriptor dependencies, which the pool has
	// already processed
	ret.deps = make([]*FileDescriptor, len(fd.GetDependency()))
	for i, d := range fd.GetDependency() {
		ret.deps[i] = p.files[d]
		if ret.deps[i] == nil {
			return nil, descErrorf(fd.GetName(), "", "missing dependency %q", d)
		}
	}
	for _, pd := range fd.GetPublicDependency() {
		if pd < 0 || int(pd) >= len(ret.deps) {
			return nil, descErrorf(fd.GetName(), "", "public dependency index %d is out of range", pd)
		}
		ret.publicDeps = append(ret.publicDeps, ret.deps[pd])
	}

	// phase 1: create and intern all children
	for _, m := range fd.GetMessageType() {
		md, err := createMessageDescriptor(ret, ret, pkg, m)
		if err != nil {
			return nil, err
		}
		ret.messages = append(ret.messages, md)
	}
	for _, e := range fd.GetEnumType() {
		ed, err := createEnumDescriptor(ret, ret, pkg, e)
		if err != nil {
			return nil, err
		}
		ret.enums = append(ret.enums, ed)
	}
	for _, ex := range fd.GetExtension() {
		exd, err := createFieldDescriptor(ret, ret, pkg, ex)
		if err != nil {
			return nil, err
		}
		ret.extensions = append(ret.extensions, exd)
	}
	for _, s := range fd.GetService() {
		sd, err := createServiceDescriptor(ret, pkg, s)
		if err != nil {
			return nil, err
		}
		ret.services = append(ret.services, sd)
	}
	return ret, nil
}

// resolve runs phase 2: every type reference in the file is linked to
// an interned descriptor.
func (fd *FileDescriptor) resolve() error {
	scopes := []scope{fileScope(fd)}
	for _, md := range fd.messages {
		if err := md.resolve(scopes); err != nil {
			return err
		}
	}
	for _, exd := range fd.extensions {
		if err := exd.resolve(scopes); err != nil {
			return err
		}
	}
	for _, sd := range fd.services {
		if err := sd.resolve(scopes); err != nil {
			return err
		}
	}
	return nil
}

func (fd *FileDescriptor) GetName() string {
	return fd.proto.GetName()
}

func (fd *FileDescriptor) GetFullyQualifiedName() string {
	return fd.proto.GetName()
}

// GetPackage returns the name of the package declared in the file.
func (fd *FileDescriptor) GetPackage() string {
	return fd.proto.GetPackage()
}

func (fd *FileDescriptor) GetParent() Descriptor {
	return nil
}

func (fd *FileDescriptor) GetFile() *FileDescriptor {
	return fd
}

// GetPool returns the pool in which this file was built.
func (fd *FileDescriptor) GetPool() *Pool {
	return fd.pool
}

func (fd *FileDescriptor) GetOptions() proto.Message {
	return fd.proto.GetOptions()
}

func (fd *FileDescriptor) GetFileOptions() *dpb.FileOptions {
	return fd.proto.GetOptions()
}

func (fd *FileDescriptor) AsProto() proto.Message {
	return fd.proto
}

func (fd *FileDescriptor) AsFileDescriptorProto() *dpb.FileDescriptorProto {
	return fd.proto
}

func (fd *FileDescriptor) String() string {
	return fd.proto.String()
}

// IsProto3 returns true if the file declares syntax "proto3".
func (fd *FileDescriptor) IsProto3() bool {
	return fd.isProto3
}

// GetDependencies returns all of this file's dependencies. These correspond to
// import statements in the file.
func (fd *FileDescriptor) GetDependencies() []*FileDescriptor {
	return fd.deps
}

// GetPublicDependencies returns all of this file's public dependencies. These
// correspond to public import statements in the file.
func (fd *FileDescriptor) GetPublicDependencies() []*FileDescriptor {
	return fd.publicDeps
}

// GetMessageTypes returns all top-level messages declared in this file.
func (fd *FileDescriptor) GetMessageTypes() []*MessageDescriptor {
	return fd.messages
}

// GetEnumTypes returns all top-level enums declared in this file.
func (fd *FileDescriptor) GetEnumTypes() []*EnumDescriptor {
	return fd.enums
}

// GetExtensions returns all top-level extensions declared in this file.
func (fd *FileDescriptor) GetExtensions() []*FieldDescriptor {
	return fd.extensions
}

// GetServices returns all services declared in this file.
func (fd *FileDescriptor) GetServices() []*ServiceDescriptor {
	return fd.services
}

// FindSymbol returns the descriptor declared within this file for the element
// with the given fully-qualified symbol name. If no such element exists in
// this file then this method returns nil.
func (fd *FileDescriptor) FindSymbol(symbol string) Descriptor {
	d := fd.pool.symbols[symbol]
	if d == nil || d.GetFile() != fd {
		return nil
	}
	return d
}

// MessageDescriptor describes a protocol buffer message.
type MessageDescriptor struct {
	proto        *dpb.DescriptorProto
	parent       Descriptor
	file         *FileDescriptor
	fields       []*FieldDescriptor
	nested       []*MessageDescriptor
	enums        []*EnumDescriptor
	extensions   []*FieldDescriptor
	oneOfs       []*OneOfDescriptor
	fqn          string
	fieldsByNum  map[int32]*FieldDescriptor
	fieldsByName map[string]*FieldDescriptor
	fieldsByJSON map[string]*FieldDescriptor
}

func createMessageDescriptor(fd *FileDescriptor, parent Descriptor, enclosing string, md *dpb.DescriptorProto) (*MessageDescriptor, error) {
	msgName := merge(enclosing, md.GetName())
	ret := &MessageDescriptor{
		proto:        md,
		parent:       parent,
		file:         fd,
		fqn:          msgName,
		fieldsByNum:  map[int32]*FieldDescriptor{},
		fieldsByName: map[string]*FieldDescriptor{},
		fieldsByJSON: map[string]*FieldDescriptor{},
	}
	if err := fd.pool.intern(msgName, ret); err != nil {
		return nil, err
	}
	for _, f := range md.GetField() {
		fld, err := createFieldDescriptor(fd, ret, msgName, f)
		if err != nil {
			return nil, err
		}
		if prev := ret.fieldsByNum[fld.GetNumber()]; prev != nil {
			return nil, descErrorf(fd.GetName(), fld.fqn, "field number %d is already used by %q", fld.GetNumber(), prev.GetName())
		}
		ret.fieldsByNum[fld.GetNumber()] = fld
		ret.fieldsByName[fld.GetName()] = fld
		ret.fields = append(ret.fields, fld)
	}
	for _, nm := range md.GetNestedType() {
		nmd, err := createMessageDescriptor(fd, ret, msgName, nm)
		if err != nil {
			return nil, err
		}
		ret.nested = append(ret.nested, nmd)
	}
	for _, e := range md.GetEnumType() {
		ed, err := createEnumDescriptor(fd, ret, msgName, e)
		if err != nil {
			return nil, err
		}
		ret.enums = append(ret.enums, ed)
	}
	for _, ex := range md.GetExtension() {
		exd, err := createFieldDescriptor(fd, ret, msgName, ex)
		if err != nil {
			return nil, err
		}
		ret.extensions = append(ret.extensions, exd)
	}
	for i, o := range md.GetOneofDecl() {
		od, err := createOneOfDescriptor(fd, ret, i, msgName, o)
		if err != nil {
			return nil, err
		}
		ret.oneOfs = append(ret.oneOfs, od)
	}
	// every field's oneof index must refer to a declared oneof
	for _, fld := range ret.fields {
		if oi := fld.proto.OneofIndex; oi != nil {
			if *oi < 0 || int(*oi) >= len(ret.oneOfs) {
				return nil, descErrorf(fd.GetName(), fld.fqn, "oneof index %d is out of range", *oi)
			}
		}
	}
	if md.GetOptions().GetMapEntry() {
		if err := checkMapEntry(ret); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// checkMapEntry verifies the shape of a synthetic map entry message: a key
// field numbered 1 and a value field numbered 2, nothing else.
func checkMapEntry(md *MessageDescriptor) error {
	if len(md.fields) != 2 ||
		md.fields[0].GetNumber() != 1 ||
		md.fields[1].GetNumber() != 2 {
		return descErrorf(md.file.GetName(), md.fqn, "map entry message must have exactly a key field (1) and a value field (2)")
	}
	return nil
}

func (md *MessageDescriptor) resolve(scopes []scope) error {
	scopes = append(scopes, messageScope(md))
	for _, nmd := range md.nested {
		if err := nmd.resolve(scopes); err != nil {
			return err
		}
	}
	for _, fld := range md.fields {
		if err := fld.resolve(scopes); err != nil {
			return err
		}
		if jn := fld.GetJSONName(); jn != fld.GetName() {
			md.fieldsByJSON[jn] = fld
		}
	}
	for _, exd := range md.extensions {
		if err := exd.resolve(scopes); err != nil {
			return err
		}
	}
	return nil
}

func (md *MessageDescriptor) GetName() string {
	return md.proto.GetName()
}

func (md *MessageDescriptor) GetFullyQualifiedName() string {
	return md.fqn
}

func (md *MessageDescriptor) GetParent() Descriptor {
	return md.parent
}

func (md *MessageDescriptor) GetFile() *FileDescriptor {
	return md.file
}

func (md *MessageDescriptor) GetOptions() proto.Message {
	return md.proto.GetOptions()
}

func (md *MessageDescriptor) GetMessageOptions() *dpb.MessageOptions {
	return md.proto.GetOptions()
}

func (md *MessageDescriptor) AsProto() proto.Message {
	return md.proto
}

func (md *MessageDescriptor) AsDescriptorProto() *dpb.DescriptorProto {
	return md.proto
}

func (md *MessageDescriptor) String() string {
	return md.proto.String()
}

// IsMapEntry returns true if this is a synthetic message type that represents an entry
// in a map field.
func (md *MessageDescriptor) IsMapEntry() bool {
	return md.proto.GetOptions().GetMapEntry()
}

// IsExtendable returns true if this message declares any extension ranges.
func (md *MessageDescriptor) IsExtendable() bool {
	return len(md.proto.GetExtensionRange()) > 0
}

// IsExtension returns true if the given tag number is within one of this
// message's extension ranges.
func (md *MessageDescriptor) IsExtension(tagNumber int32) bool {
	for _, r := range md.proto.GetExtensionRange() {
		// start is inclusive, end is exclusive
		if tagNumber >= r.GetStart() && tagNumber < r.GetEnd() {
			return true
		}
	}
	return false
}

// GetExtensionRanges returns the ranges of tag numbers, if any, that this
// message reserves for extension fields.
func (md *MessageDescriptor) GetExtensionRanges() []*dpb.DescriptorProto_ExtensionRange {
	return md.proto.GetExtensionRange()
}

// IsProto3 returns true if this message was declared in a proto3 file.
func (md *MessageDescriptor) IsProto3() bool {
	return md.file.isProto3
}

// GetFields returns all of the fields for this message, in the order in
// which they were declared.
func (md *MessageDescriptor) GetFields() []*FieldDescriptor {
	return md.fields
}

// GetNestedMessageTypes returns all of the message types declared inside this message.
func (md *MessageDescriptor) GetNestedMessageTypes() []*MessageDescriptor {
	return md.nested
}

// GetNestedEnumTypes returns all of the enums declared inside this message.
func (md *MessageDescriptor) GetNestedEnumTypes() []*EnumDescriptor {
	return md.enums
}

// GetNestedExtensions returns all of the extensions declared inside this message.
func (md *MessageDescriptor) GetNestedExtensions() []*FieldDescriptor {
	return md.extensions
}

// GetOneOfs returns all of the one-of field sets declared inside this message.
func (md *MessageDescriptor) GetOneOfs() []*OneOfDescriptor {
	return md.oneOfs
}

// FindFieldByNumber finds the field with the given tag number. If no such
// field exists then nil is returned. Only regular fields are returned, not
// extensions.
func (md *MessageDescriptor) FindFieldByNumber(tagNumber int32) *FieldDescriptor {
	return md.fieldsByNum[tagNumber]
}

// FindFieldByName finds the field with the given name. If no such field
// exists then nil is returned. Only regular fields are returned, not
// extensions.
func (md *MessageDescriptor) FindFieldByName(name string) *FieldDescriptor {
	return md.fieldsByName[name]
}

// FindFieldByJSONName finds the field with the given JSON name. If no such
// field exists then nil is returned. This also matches fields by their
// declared name, since the JSON mapping accepts both spellings.
func (md *MessageDescriptor) FindFieldByJSONName(jsonName string) *FieldDescriptor {
	if fld := md.fieldsByJSON[jsonName]; fld != nil {
		return fld
	}
	return md.fieldsByName[jsonName]
}

func merge(a, b string) string {
	if a == "" {
		return b
	}
	return a + "." + b
}
