package desc

import "strings"

// scope represents a lexical scope in a proto file in which messages and
// enums can be declared. Relative type references are resolved against the
// innermost scope first, then outward.
type scope func(string) Descriptor

func fileScope(fd *FileDescriptor) scope {
	// relative names at file scope are tried against the package and every
	// ancestor package: in package a.b.c, "Foo" tries a.b.c.Foo, then
	// a.b.Foo, a.Foo, and finally plain Foo
	pkg := fd.proto.GetPackage()
	return func(name string) Descriptor {
		p := pkg
		for {
			if d, ok := fd.pool.symbols[merge(p, name)]; ok {
				return d
			}
			if p == "" {
				return nil
			}
			if i := strings.LastIndexByte(p, '.'); i >= 0 {
				p = p[:i]
			} else {
				p = ""
			}
		}
	}
}

func messageScope(md *MessageDescriptor) scope {
	return func(name string) Descriptor {
		if d, ok := md.file.pool.symbols[merge(md.fqn, name)]; ok {
			return d
		}
		return nil
	}
}

func resolve(fd *FileDescriptor, referrer, name string, scopes []scope) (Descriptor, error) {
	if strings.HasPrefix(name, ".") {
		// already fully-qualified
		if d, ok := fd.pool.symbols[name[1:]]; ok {
			return d, nil
		}
	} else {
		// unqualified, so we look in the enclosing (last) scope first and
		// move towards outermost (first) scope, trying to resolve the symbol
		for i := len(scopes) - 1; i >= 0; i-- {
			if d := scopes[i](name); d != nil {
				return d, nil
			}
		}
	}
	return nil, descErrorf(fd.GetName(), referrer, "unresolvable reference to %q", name)
}
