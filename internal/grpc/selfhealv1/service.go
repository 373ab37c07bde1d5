// Package selfhealv1 defines the selfheal.v1.SelfHealing gRPC service. Messages are
// google.protobuf.Struct values so the service needs no generated message types.
package selfhealv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "selfheal.v1.SelfHealing"

// Full method names.
const (
	SelfHealing_Score_FullMethodName       = "/" + ServiceName + "/Score"
	SelfHealing_AnalyzeLogs_FullMethodName = "/" + ServiceName + "/AnalyzeLogs"
	SelfHealing_Remediate_FullMethodName   = "/" + ServiceName + "/Remediate"
)

// SelfHealingServer is the server API for the SelfHealing service.
type SelfHealingServer interface {
	Score(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AnalyzeLogs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Remediate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedSelfHealingServer can be embedded for forward compatibility.
type UnimplementedSelfHealingServer struct{}

func (UnimplementedSelfHealingServer) Score(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Score not implemented")
}

func (UnimplementedSelfHealingServer) AnalyzeLogs(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AnalyzeLogs not implemented")
}

func (UnimplementedSelfHealingServer) Remediate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Remediate not implemented")
}

// RegisterSelfHealingServer registers srv with s.
func RegisterSelfHealingServer(s grpc.ServiceRegistrar, srv SelfHealingServer) {
	s.RegisterService(&SelfHealing_ServiceDesc, srv)
}

type unaryMethod func(SelfHealingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// methodHandler matches the Handler field of grpc.MethodDesc.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(fullMethod string, call unaryMethod) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SelfHealingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SelfHealingServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SelfHealing_ServiceDesc is the grpc.ServiceDesc for the SelfHealing service.
var SelfHealing_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SelfHealingServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Score",
			Handler: unaryHandler(SelfHealing_Score_FullMethodName, func(s SelfHealingServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Score(ctx, in)
			}),
		},
		{
			MethodName: "AnalyzeLogs",
			Handler: unaryHandler(SelfHealing_AnalyzeLogs_FullMethodName, func(s SelfHealingServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.AnalyzeLogs(ctx, in)
			}),
		},
		{
			MethodName: "Remediate",
			Handler: unaryHandler(SelfHealing_Remediate_FullMethodName, func(s SelfHealingServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Remediate(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "selfheal/v1/selfheal.proto",
}

// SelfHealingClient is the client API for the SelfHealing service.
type SelfHealingClient interface {
	Score(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	AnalyzeLogs(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Remediate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type selfHealingClient struct {
	cc grpc.ClientConnInterface
}

// NewSelfHealingClient wraps cc.
func NewSelfHealingClient(cc grpc.ClientConnInterface) SelfHealingClient {
	return &selfHealingClient{cc: cc}
}

func (c *selfHealingClient) Score(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SelfHealing_Score_FullMethodName, in, opts...)
}

func (c *selfHealingClient) AnalyzeLogs(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SelfHealing_AnalyzeLogs_FullMethodName, in, opts...)
}

func (c *selfHealingClient) Remediate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SelfHealing_Remediate_FullMethodName, in, opts...)
}

func (c *selfHealingClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
