package transport

import (
	"context"

	"google.golang.org/grpc"
)

// KVStoreServer is the client-facing service.
type KVStoreServer interface {
	Put(context.Context, *Request) (*Response, error)
	Get(context.Context, *Request) (*Response, error)
	Delete(context.Context, *Request) (*Response, error)
}

// KVInternalServer is the replica-to-replica service.
type KVInternalServer interface {
	ReplicaPut(context.Context, *Request) (*Response, error)
	ReplicaGet(context.Context, *Request) (*Response, error)
}

const (
	kvStoreService    = "hlckv.KVStore"
	kvInternalService = "hlckv.KVInternal"
)

// KVStoreServiceDesc describes the hlckv.KVStore service.
var KVStoreServiceDesc = grpc.ServiceDesc{
	ServiceName: kvStoreService,
	HandlerType: (*KVStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(kvStoreService, "Put", func(srv any, ctx context.Context, req *Request) (*Response, error) {
			return srv.(KVStoreServer).Put(ctx, req)
		}),
		unaryMethod(kvStoreService, "Get", func(srv any, ctx context.Context, req *Request) (*Response, error) {
			return srv.(KVStoreServer).Get(ctx, req)
		}),
		unaryMethod(kvStoreService, "Delete", func(srv any, ctx context.Context, req *Request) (*Response, error) {
			return srv.(KVStoreServer).Delete(ctx, req)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hlckv",
}

// KVInternalServiceDesc describes the hlckv.KVInternal service.
var KVInternalServiceDesc = grpc.ServiceDesc{
	ServiceName: kvInternalService,
	HandlerType: (*KVInternalServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(kvInternalService, "ReplicaPut", func(srv any, ctx context.Context, req *Request) (*Response, error) {
			return srv.(KVInternalServer).ReplicaPut(ctx, req)
		}),
		unaryMethod(kvInternalService, "ReplicaGet", func(srv any, ctx context.Context, req *Request) (*Response, error) {
			return srv.(KVInternalServer).ReplicaGet(ctx, req)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hlckv",
}

// RegisterKVStoreServer registers srv on s.
func RegisterKVStoreServer(s grpc.ServiceRegistrar, srv KVStoreServer) {
	s.RegisterService(&KVStoreServiceDesc, srv)
}

// RegisterKVInternalServer registers srv on s.
func RegisterKVInternalServer(s grpc.ServiceRegistrar, srv KVInternalServer) {
	s.RegisterService(&KVInternalServiceDesc, srv)
}

func unaryMethod(service, method string, call func(srv any, ctx context.Context, req *Request) (*Response, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Request)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv, ctx, req.(*Request))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// KVStoreClient calls the hlckv.KVStore service.
type KVStoreClient struct {
	cc grpc.ClientConnInterface
}

// NewKVStoreClient returns a client using cc.
func NewKVStoreClient(cc grpc.ClientConnInterface) *KVStoreClient {
	return &KVStoreClient{cc: cc}
}

// Put stores a value.
func (c *KVStoreClient) Put(ctx context.Context, in *Request, opts ...grpc.CallOption) (*Response, error) {
	return invoke(ctx, c.cc, "/"+kvStoreService+"/Put", in, opts)
}

// Get reads a value.
func (c *KVStoreClient) Get(ctx context.Context, in *Request, opts ...grpc.CallOption) (*Response, error) {
	return invoke(ctx, c.cc, "/"+kvStoreService+"/Get", in, opts)
}

// Delete removes a value.
func (c *KVStoreClient) Delete(ctx context.Context, in *Request, opts ...grpc.CallOption) (*Response, error) {
	return invoke(ctx, c.cc, "/"+kvStoreService+"/Delete", in, opts)
}

// KVInternalClient calls the hlckv.KVInternal service.
type KVInternalClient struct {
	cc grpc.ClientConnInterface
}

// NewKVInternalClient returns a client using cc.
func NewKVInternalClient(cc grpc.ClientConnInterface) *KVInternalClient {
	return &KVInternalClient{cc: cc}
}

// ReplicaPut applies a versioned record on a replica.
func (c *KVInternalClient) ReplicaPut(ctx context.Context, in *Request, opts ...grpc.CallOption) (*Response, error) {
	return invoke(ctx, c.cc, "/"+kvInternalService+"/ReplicaPut", in, opts)
}

// ReplicaGet reads a replica's local record.
func (c *KVInternalClient) ReplicaGet(ctx context.Context, in *Request, opts ...grpc.CallOption) (*Response, error) {
	return invoke(ctx, c.cc, "/"+kvInternalService+"/ReplicaGet", in, opts)
}

func invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, in *Request, opts []grpc.CallOption) (*Response, error) {
	out := new(Response)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
