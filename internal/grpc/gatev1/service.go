// Package gatev1 declares the mirador.gate.v1.GateEngine gRPC service.
//
// Messages are google.protobuf.Struct documents so the service can evolve
// its payloads without a code generation step; the field layout of each
// message is owned by internal/api.
package gatev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "mirador.gate.v1.GateEngine"

// Full method names.
const (
	GateEngine_Decide_FullMethodName          = "/" + ServiceName + "/Decide"
	GateEngine_GetLastDecision_FullMethodName = "/" + ServiceName + "/GetLastDecision"
	GateEngine_ListDecisions_FullMethodName   = "/" + ServiceName + "/ListDecisions"
	GateEngine_GetHotspots_FullMethodName     = "/" + ServiceName + "/GetHotspots"
	GateEngine_ListActions_FullMethodName     = "/" + ServiceName + "/ListActions"
	GateEngine_HealthCheck_FullMethodName     = "/" + ServiceName + "/HealthCheck"
)

// GateEngineServer is the server API for the GateEngine service.
type GateEngineServer interface {
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLastDecision(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDecisions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHotspots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListActions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HealthCheck(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedGateEngineServer can be embedded for forward compatibility.
type UnimplementedGateEngineServer struct{}

func (UnimplementedGateEngineServer) Decide(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Decide not implemented")
}

func (UnimplementedGateEngineServer) GetLastDecision(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetLastDecision not implemented")
}

func (UnimplementedGateEngineServer) ListDecisions(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListDecisions not implemented")
}

func (UnimplementedGateEngineServer) GetHotspots(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetHotspots not implemented")
}

func (UnimplementedGateEngineServer) ListActions(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListActions not implemented")
}

func (UnimplementedGateEngineServer) HealthCheck(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method HealthCheck not implemented")
}

// RegisterGateEngineServer attaches srv to the gRPC registrar.
func RegisterGateEngineServer(s grpc.ServiceRegistrar, srv GateEngineServer) {
	s.RegisterService(&GateEngine_ServiceDesc, srv)
}

type unaryMethod func(GateEngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a GateEngineServer method to a MethodDesc handler,
// threading interceptors the same way generated stubs do.
func unaryHandler(fullMethod string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GateEngineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GateEngineServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GateEngine_ServiceDesc is the grpc.ServiceDesc for the GateEngine service.
var GateEngine_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GateEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: unaryHandler(GateEngine_Decide_FullMethodName, GateEngineServer.Decide)},
		{MethodName: "GetLastDecision", Handler: unaryHandler(GateEngine_GetLastDecision_FullMethodName, GateEngineServer.GetLastDecision)},
		{MethodName: "ListDecisions", Handler: unaryHandler(GateEngine_ListDecisions_FullMethodName, GateEngineServer.ListDecisions)},
		{MethodName: "GetHotspots", Handler: unaryHandler(GateEngine_GetHotspots_FullMethodName, GateEngineServer.GetHotspots)},
		{MethodName: "ListActions", Handler: unaryHandler(GateEngine_ListActions_FullMethodName, GateEngineServer.ListActions)},
		{MethodName: "HealthCheck", Handler: unaryHandler(GateEngine_HealthCheck_FullMethodName, GateEngineServer.HealthCheck)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mirador/gate/v1/gate.proto",
}

// GateEngineClient is the client API for the GateEngine service.
type GateEngineClient interface {
	Decide(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetLastDecision(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListDecisions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetHotspots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListActions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	HealthCheck(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type gateEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewGateEngineClient wraps a client connection.
func NewGateEngineClient(cc grpc.ClientConnInterface) GateEngineClient {
	return &gateEngineClient{cc: cc}
}

func (c *gateEngineClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gateEngineClient) Decide(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GateEngine_Decide_FullMethodName, in, opts)
}

func (c *gateEngineClient) GetLastDecision(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GateEngine_GetLastDecision_FullMethodName, in, opts)
}

func (c *gateEngineClient) ListDecisions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GateEngine_ListDecisions_FullMethodName, in, opts)
}

func (c *gateEngineClient) GetHotspots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GateEngine_GetHotspots_FullMethodName, in, opts)
}

func (c *gateEngineClient) ListActions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GateEngine_ListActions_FullMethodName, in, opts)
}

func (c *gateEngineClient) HealthCheck(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GateEngine_HealthCheck_FullMethodName, in, opts)
}
