package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// RateLimitServiceName is the fully qualified gRPC service name.
const RateLimitServiceName = "windowlimit.v1.RateLimit"

// Full method names of the RateLimit service.
const (
	RateLimitCheckMethod   = "/" + RateLimitServiceName + "/Check"
	RateLimitCurrentMethod = "/" + RateLimitServiceName + "/Current"
	RateLimitResetMethod   = "/" + RateLimitServiceName + "/Reset"
)

// RateLimitServer is the server API for the RateLimit service. Requests and
// responses are google.protobuf.Struct messages.
type RateLimitServer interface {
	Check(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Current(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterRateLimitServer registers srv on s.
func RegisterRateLimitServer(s grpc.ServiceRegistrar, srv RateLimitServer) {
	s.RegisterService(&rateLimitServiceDesc, srv)
}

type rateLimitCall func(RateLimitServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func rateLimitHandler(fullMethod string, call rateLimitCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RateLimitServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RateLimitServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var rateLimitServiceDesc = grpc.ServiceDesc{
	ServiceName: RateLimitServiceName,
	HandlerType: (*RateLimitServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Check",
			Handler:    rateLimitHandler(RateLimitCheckMethod, RateLimitServer.Check),
		},
		{
			MethodName: "Current",
			Handler:    rateLimitHandler(RateLimitCurrentMethod, RateLimitServer.Current),
		},
		{
			MethodName: "Reset",
			Handler:    rateLimitHandler(RateLimitResetMethod, RateLimitServer.Reset),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "windowlimit/v1/ratelimit.proto",
}

// RateLimitClient is the client API for the RateLimit service.
type RateLimitClient struct {
	cc grpc.ClientConnInterface
}

// NewRateLimitClient creates a client over cc.
func NewRateLimitClient(cc grpc.ClientConnInterface) *RateLimitClient {
	return &RateLimitClient{cc: cc}
}

func (c *RateLimitClient) invoke(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Check records an event for id in namespace.
func (c *RateLimitClient) Check(ctx context.Context, namespace, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RateLimitCheckMethod, map[string]any{"namespace": namespace, "id": id}, opts...)
}

// Current reads the count for id in namespace.
func (c *RateLimitClient) Current(ctx context.Context, namespace, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RateLimitCurrentMethod, map[string]any{"namespace": namespace, "id": id}, opts...)
}

// Reset clears the events recorded for id in namespace.
func (c *RateLimitClient) Reset(ctx context.Context, namespace, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RateLimitResetMethod, map[string]any{"namespace": namespace, "id": id}, opts...)
}
