package desc

import (
	"fmt"
	"sort"
	"strings"

	"google.golang.org/protobuf/proto"
	dpb "google.golang.org/protobuf/types/descriptorpb"
)

// Pool is a collection of descriptors built from one or more file descriptor
// sets, cross-linked and indexed for lookup by fully-qualified name.
//
// Construction happens in two phases. The first phase interns every declared
// element under its fully-qualified name, failing on collisions and on
// malformed declarations (bad field numbers, misshapen map entries). The
// second phase resolves every type reference against the interned names, so
// forward references and reference cycles between message types need no
// special handling by callers.
//
// Once built, a Pool is immutable: it is safe for concurrent use from any
// number of goroutines without synchronization. Extending a pool with more
// files produces a new pool (see WithFiles); existing pools are never
// modified.
type Pool struct {
	files    map[string]*FileDescriptor
	fileList []*FileDescriptor
	symbols  map[string]Descriptor
	exts     map[string]map[int32]*FieldDescriptor
}

// NewPool builds a pool from the given bytes, which must be a serialized
// google.protobuf.FileDescriptorSet message. Within the set, files may appear
// in any order, but every import must be satisfied by some file in the set.
func NewPool(b []byte) (*Pool, error) {
	var fdset dpb.FileDescriptorSet
	if err := proto.Unmarshal(b, &fdset); err != nil {
		return nil, &DescriptorError{Underlying: fmt.Errorf("malformed file descriptor set: %w", err)}
	}
	return NewPoolFromSet(&fdset)
}

// NewPoolFromSet is like NewPool but accepts an already-parsed file
// descriptor set. The pool keeps references to the given descriptor protos,
// which callers must not mutate afterwards.
func NewPoolFromSet(fdset *dpb.FileDescriptorSet) (*Pool, error) {
	p := &Pool{
		files:   map[string]*FileDescriptor{},
		symbols: map[string]Descriptor{},
		exts:    map[string]map[int32]*FieldDescriptor{},
	}
	if err := p.build(fdset.GetFile()); err != nil {
		return nil, err
	}
	return p, nil
}

// WithFiles returns a new pool that contains all files of this pool plus the
// files of the given set. The receiver is left untouched, so descriptors
// already obtained from it remain valid and continue to reference the old
// pool. Files in the given set may reference types from this pool's files.
//
// A file whose name is already present is permitted only if its content is
// identical to the file in this pool, in which case it is skipped; this way
// overlapping dependency closures can be combined without conflict.
func (p *Pool) WithFiles(fdset *dpb.FileDescriptorSet) (*Pool, error) {
	newp := &Pool{
		files:    make(map[string]*FileDescriptor, len(p.files)),
		fileList: append([]*FileDescriptor(nil), p.fileList...),
		symbols:  make(map[string]Descriptor, len(p.symbols)),
		exts:     make(map[string]map[int32]*FieldDescriptor, len(p.exts)),
	}
	for k, v := range p.files {
		newp.files[k] = v
	}
	for k, v := range p.symbols {
		newp.symbols[k] = v
	}
	for k, v := range p.exts {
		m := make(map[int32]*FieldDescriptor, len(v))
		for n, exd := range v {
			m[n] = exd
		}
		newp.exts[k] = m
	}
	if err := newp.build(fdset.GetFile()); err != nil {
		return nil, err
	}
	return newp, nil
}

// build runs the two construction phases for the given files, in dependency
// order.
func (p *Pool) build(fdProtos []*dpb.FileDescriptorProto) error {
	protos := map[string]*dpb.FileDescriptorProto{}
	names := make([]string, 0, len(fdProtos))
	for _, fdp := range fdProtos {
		name := fdp.GetName()
		if name == "" {
			return &DescriptorError{Underlying: fmt.Errorf("file descriptor has no name")}
		}
		if prev, ok := protos[name]; ok {
			if !proto.Equal(prev, fdp) {
				return descErrorf(name, "", "set contains two different files with the same name")
			}
			continue
		}
		protos[name] = fdp
		names = append(names, name)
	}
	for _, name := range names {
		if err := p.addFile(name, protos, nil); err != nil {
			return err
		}
	}
	return nil
}

// addFile creates the named file after recursively creating its
// dependencies. The path slice carries the chain of in-progress files for
// cycle detection.
func (p *Pool) addFile(name string, protos map[string]*dpb.FileDescriptorProto, path []string) error {
	if existing := p.files[name]; existing != nil {
		if fdp := protos[name]; fdp != nil && !proto.Equal(existing.proto, fdp) {
			return descErrorf(name, "", "pool already contains a different file with the same name")
		}
		return nil
	}
	fdp := protos[name]
	if fdp == nil {
		from := ""
		if len(path) > 0 {
			from = path[len(path)-1]
		}
		return descErrorf(from, "", "missing dependency %q", name)
	}
	for _, inProgress := range path {
		if inProgress == name {
			return descErrorf(name, "", "cycle in file dependencies: %s", strings.Join(append(path, name), " -> "))
		}
	}
	path = append(path, name)
	for _, dep := range fdp.GetDependency() {
		if err := p.addFile(dep, protos, path); err != nil {
			return err
		}
	}

	fd, err := createFileDescriptor(p, fdp)
	if err != nil {
		return err
	}
	p.files[name] = fd
	p.fileList = append(p.fileList, fd)
	if err := fd.resolve(); err != nil {
		return err
	}
	return p.registerExtensions(fd)
}

// intern records the descriptor under its fully-qualified name, failing if
// the name is already taken.
func (p *Pool) intern(fqn string, d Descriptor) error {
	if prev, ok := p.symbols[fqn]; ok {
		return descErrorf(d.GetFile().GetName(), fqn, "duplicate symbol: already declared in %q", prev.GetFile().GetName())
	}
	p.symbols[fqn] = d
	return nil
}

func (p *Pool) registerExtensions(fd *FileDescriptor) error {
	for _, exd := range fd.extensions {
		if err := p.registerExtension(exd); err != nil {
			return err
		}
	}
	var fromMessage func(md *MessageDescriptor) error
	fromMessage = func(md *MessageDescriptor) error {
		for _, exd := range md.extensions {
			if err := p.registerExtension(exd); err != nil {
				return err
			}
		}
		for _, nmd := range md.nested {
			if err := fromMessage(nmd); err != nil {
				return err
			}
		}
		return nil
	}
	for _, md := range fd.messages {
		if err := fromMessage(md); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pool) registerExtension(exd *FieldDescriptor) error {
	extendee := exd.owner.GetFullyQualifiedName()
	if !exd.owner.IsExtension(exd.GetNumber()) {
		return descErrorf(exd.file.GetName(), exd.fqn,
			"extension number %d is not in an extension range of %q", exd.GetNumber(), extendee)
	}
	byNum := p.exts[extendee]
	if byNum == nil {
		byNum = map[int32]*FieldDescriptor{}
		p.exts[extendee] = byNum
	}
	if prev, ok := byNum[exd.GetNumber()]; ok {
		return descErrorf(exd.file.GetName(), exd.fqn,
			"extension number %d for %q is already used by %q", exd.GetNumber(), extendee, prev.GetFullyQualifiedName())
	}
	byNum[exd.GetNumber()] = exd
	return nil
}

// Files returns all files in the pool, in dependency order: a file always
// appears after the files it imports.
func (p *Pool) Files() []*FileDescriptor {
	return p.fileList
}

// FindFile returns the file descriptor for the file with the given path and
// name, or nil if the pool contains no such file.
func (p *Pool) FindFile(name string) *FileDescriptor {
	return p.files[name]
}

// FindSymbol returns the descriptor for the element with the given
// fully-qualified name, or nil if there is no such element. A leading dot is
// permitted and ignored.
func (p *Pool) FindSymbol(fqn string) Descriptor {
	return p.symbols[strings.TrimPrefix(fqn, ".")]
}

// FindMessage returns the descriptor for the message with the given
// fully-qualified name, or nil if the pool declares no such message.
func (p *Pool) FindMessage(fqn string) *MessageDescriptor {
	md, _ := p.FindSymbol(fqn).(*MessageDescriptor)
	return md
}

// FindEnum returns the descriptor for the enum with the given fully-qualified
// name, or nil if the pool declares no such enum.
func (p *Pool) FindEnum(fqn string) *EnumDescriptor {
	ed, _ := p.FindSymbol(fqn).(*EnumDescriptor)
	return ed
}

// FindService returns the descriptor for the service with the given
// fully-qualified name, or nil if the pool declares no such service.
func (p *Pool) FindService(fqn string) *ServiceDescriptor {
	sd, _ := p.FindSymbol(fqn).(*ServiceDescriptor)
	return sd
}

// FindExtension returns the descriptor for the extension field with the given
// fully-qualified name, or nil if the pool declares no such extension.
func (p *Pool) FindExtension(fqn string) *FieldDescriptor {
	fd, _ := p.FindSymbol(fqn).(*FieldDescriptor)
	if fd == nil || !fd.IsExtension() {
		return nil
	}
	return fd
}

// FindExtensionByNumber returns the descriptor for the extension of the named
// message with the given field number, or nil if the pool declares no such
// extension.
func (p *Pool) FindExtensionByNumber(extendee string, tagNumber int32) *FieldDescriptor {
	return p.exts[strings.TrimPrefix(extendee, ".")][tagNumber]
}

// AllExtensionsForType returns the descriptors for all extensions of the
// named message declared in the pool, sorted by field number.
func (p *Pool) AllExtensionsForType(extendee string) []*FieldDescriptor {
	byNum := p.exts[strings.TrimPrefix(extendee, ".")]
	if len(byNum) == 0 {
		return nil
	}
	ret := make([]*FieldDescriptor, 0, len(byNum))
	for _, exd := range byNum {
		ret = append(ret, exd)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].GetNumber() < ret[j].GetNumber() })
	return ret
}
