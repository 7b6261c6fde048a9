package desc

import (
	"google.golang.org/protobuf/proto"
	dpb "google.golang.org/protobuf/types/descriptorpb"
)

// ServiceDescriptor describes an RPC service declared in a proto file. The
// pool only models the schema of services; invoking methods is out of scope.
type ServiceDescriptor struct {
	proto   *dpb.ServiceDescriptorProto
	file    *FileDescriptor
	methods []*MethodDescriptor
	fqn     string
}

func createServiceDescriptor(fd *FileDescriptor, enclosing string, sd *dpb.ServiceDescriptorProto) (*ServiceDescriptor, error) {
	serviceName := merge(enclosing, sd.GetName())
	ret := &ServiceDescriptor{proto: sd, file: fd, fqn: serviceName}
	if err := fd.pool.intern(serviceName, ret); err != nil {
		return nil, err
	}
	for _, m := range sd.GetMethod() {
		md, err := createMethodDescriptor(fd, ret, serviceName, m)
		if err != nil {
			return nil, err
		}
		ret.methods = append(ret.methods, md)
	}
	return ret, nil
}

func (sd *ServiceDescriptor) resolve(scopes []scope) error {
	for _, md := range sd.methods {
		if err := md.resolve(scopes); err != nil {
			return err
		}
	}
	return nil
}

func (sd *ServiceDescriptor) GetName() string {
	return sd.proto.GetName()
}

func (sd *ServiceDescriptor) GetFullyQualifiedName() string {
	return sd.fqn
}

func (sd *ServiceDescriptor) GetParent() Descriptor {
	return sd.file
}

func (sd *ServiceDescriptor) GetFile() *FileDescriptor {
	return sd.file
}

func (sd *ServiceDescriptor) GetOptions() proto.Message {
	return sd.proto.GetOptions()
}

func (sd *ServiceDescriptor) GetServiceOptions() *dpb.ServiceOptions {
	return sd.proto.GetOptions()
}

func (sd *ServiceDescriptor) AsProto() proto.Message {
	return sd.proto
}

func (sd *ServiceDescriptor) AsServiceDescriptorProto() *dpb.ServiceDescriptorProto {
	return sd.proto
}

func (sd *ServiceDescriptor) String() string {
	return sd.proto.String()
}

// GetMethods returns all of the RPC methods for this service.
func (sd *ServiceDescriptor) GetMethods() []*MethodDescriptor {
	return sd.methods
}

// FindMethodByName finds the method with the given name. If no such method
// exists then nil is returned.
func (sd *ServiceDescriptor) FindMethodByName(name string) *MethodDescriptor {
	fqn := merge(sd.fqn, name)
	if md, ok := sd.file.pool.symbols[fqn].(*MethodDescriptor); ok {
		return md
	}
	return nil
}

// MethodDescriptor describes an RPC method declared in a proto file.
type MethodDescriptor struct {
	proto   *dpb.MethodDescriptorProto
	parent  *ServiceDescriptor
	file    *FileDescriptor
	inType  *MessageDescriptor
	outType *MessageDescriptor
	fqn     string
}

func createMethodDescriptor(fd *FileDescriptor, parent *ServiceDescriptor, enclosing string, md *dpb.MethodDescriptorProto) (*MethodDescriptor, error) {
	// request and response types get resolved later
	methodName := merge(enclosing, md.GetName())
	ret := &MethodDescriptor{proto: md, parent: parent, file: fd, fqn: methodName}
	if err := fd.pool.intern(methodName, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (md *MethodDescriptor) resolve(scopes []scope) error {
	if d, err := resolve(md.file, md.fqn, md.proto.GetInputType(), scopes); err != nil {
		return err
	} else if msg, ok := d.(*MessageDescriptor); !ok {
		return descErrorf(md.file.GetName(), md.fqn, "input type %q is not a message", md.proto.GetInputType())
	} else {
		md.inType = msg
	}
	if d, err := resolve(md.file, md.fqn, md.proto.GetOutputType(), scopes); err != nil {
		return err
	} else if msg, ok := d.(*MessageDescriptor); !ok {
		return descErrorf(md.file.GetName(), md.fqn, "output type %q is not a message", md.proto.GetOutputType())
	} else {
		md.outType = msg
	}
	return nil
}

func (md *MethodDescriptor) GetName() string {
	return md.proto.GetName()
}

func (md *MethodDescriptor) GetFullyQualifiedName() string {
	return md.fqn
}

func (md *MethodDescriptor) GetParent() Descriptor {
	return md.parent
}

// GetService returns the RPC service in which this method is declared.
func (md *MethodDescriptor) GetService() *ServiceDescriptor {
	return md.parent
}

func (md *MethodDescriptor) GetFile() *FileDescriptor {
	return md.file
}

func (md *MethodDescriptor) GetOptions() proto.Message {
	return md.proto.GetOptions()
}

func (md *MethodDescriptor) GetMethodOptions() *dpb.MethodOptions {
	return md.proto.GetOptions()
}

func (md *MethodDescriptor) AsProto() proto.Message {
	return md.proto
}

func (md *MethodDescriptor) AsMethodDescriptorProto() *dpb.MethodDescriptorProto {
	return md.proto
}

func (md *MethodDescriptor) String() string {
	return md.proto.String()
}

// IsServerStreaming returns true if this is a server-streaming method.
func (md *MethodDescriptor) IsServerStreaming() bool {
	return md.proto.GetServerStreaming()
}

// IsClientStreaming returns true if this is a client-streaming method.
func (md *MethodDescriptor) IsClientStreaming() bool {
	return md.proto.GetClientStreaming()
}

// GetInputType returns the input type, or request type, of the RPC method.
func (md *MethodDescriptor) GetInputType() *MessageDescriptor {
	return md.inType
}

// GetOutputType returns the output type, or response type, of the RPC method.
func (md *MethodDescriptor) GetOutputType() *MessageDescriptor {
	return md.outType
}
