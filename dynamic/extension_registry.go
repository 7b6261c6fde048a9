package dynamic

import (
	"fmt"
	"sort"
	"sync"

	"github.com/slientgoat/prost-reflect/desc"
)

// ExtensionRegistry is a repository of known extension fields, keyed by the
// fully-qualified name of the extended message and the extension's tag
// number. A registry attached to a message lets the decoder recognize
// extension tags that would otherwise be retained as unknown fields.
//
// A registry is safe for concurrent use.
type ExtensionRegistry struct {
	mu   sync.RWMutex
	exts map[string]map[int32]*desc.FieldDescriptor
}

// NewExtensionRegistry returns an empty registry.
func NewExtensionRegistry() *ExtensionRegistry {
	return &ExtensionRegistry{}
}

// AddExtension registers the given extension fields. Registering an
// extension with the same extended type and tag number as an earlier one
// replaces it.
func (r *ExtensionRegistry) AddExtension(exts ...*desc.FieldDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fd := range exts {
		if err := r.putExtensionLocked(fd); err != nil {
			return err
		}
	}
	return nil
}

// AddExtensionsFromFile registers all extensions declared in the given
// file, including those nested inside its messages.
func (r *ExtensionRegistry) AddExtensionsFromFile(fd *desc.FileDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addExtensionsFromFileLocked(fd)
}

// AddExtensionsFromFileRecursively is like AddExtensionsFromFile but also
// covers the file's transitive imports.
func (r *ExtensionRegistry) AddExtensionsFromFileRecursively(fd *desc.FileDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var add func(fd *desc.FileDescriptor)
	add = func(fd *desc.FileDescriptor) {
		if seen[fd.GetName()] {
			return
		}
		seen[fd.GetName()] = true
		r.addExtensionsFromFileLocked(fd)
		for _, dep := range fd.GetDependencies() {
			add(dep)
		}
	}
	add(fd)
}

// AddExtensionsFromPool registers the extensions of every file in the pool.
func (r *ExtensionRegistry) AddExtensionsFromPool(p *desc.Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fd := range p.Files() {
		r.addExtensionsFromFileLocked(fd)
	}
}

func (r *ExtensionRegistry) addExtensionsFromFileLocked(fd *desc.FileDescriptor) {
	for _, ext := range fd.GetExtensions() {
		_ = r.putExtensionLocked(ext)
	}
	var fromMessage func(md *desc.MessageDescriptor)
	fromMessage = func(md *desc.MessageDescriptor) {
		for _, ext := range md.GetNestedExtensions() {
			_ = r.putExtensionLocked(ext)
		}
		for _, nested := range md.GetNestedMessageTypes() {
			fromMessage(nested)
		}
	}
	for _, md := range fd.GetMessageTypes() {
		fromMessage(md)
	}
}

func (r *ExtensionRegistry) putExtensionLocked(fd *desc.FieldDescriptor) error {
	if !fd.IsExtension() {
		return fmt.Errorf("field %s is not an extension", fd.GetFullyQualifiedName())
	}
	msgName := fd.GetOwner().GetFullyQualifiedName()
	if r.exts == nil {
		r.exts = map[string]map[int32]*desc.FieldDescriptor{}
	}
	byTag := r.exts[msgName]
	if byTag == nil {
		byTag = map[int32]*desc.FieldDescriptor{}
		r.exts[msgName] = byTag
	}
	byTag[fd.GetNumber()] = fd
	return nil
}

// FindExtension returns the registered extension of the named message type
// with the given tag number, or nil. A nil registry finds nothing.
func (r *ExtensionRegistry) FindExtension(messageName string, tagNumber int32) *desc.FieldDescriptor {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exts[messageName][tagNumber]
}

// FindExtensionByName returns the registered extension of the named message
// type whose fully-qualified name is fieldName, or nil.
func (r *ExtensionRegistry) FindExtensionByName(messageName string, fieldName string) *desc.FieldDescriptor {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fd := range r.exts[messageName] {
		if fd.GetFullyQualifiedName() == fieldName {
			return fd
		}
	}
	return nil
}

// AllExtensionsForType returns the registered extensions of the named
// message type, sorted by tag number.
func (r *ExtensionRegistry) AllExtensionsForType(messageName string) []*desc.FieldDescriptor {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	flds := make([]*desc.FieldDescriptor, 0, len(r.exts[messageName]))
	for _, fd := range r.exts[messageName] {
		flds = append(flds, fd)
	}
	sort.Slice(flds, func(i, j int) bool { return flds[i].GetNumber() < flds[j].GetNumber() })
	return flds
}
