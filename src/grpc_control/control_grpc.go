package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The control service is described with well-known protobuf types only, so no
// generated message code is needed. Payloads are JSON-shaped Structs.

const serviceName = "raindrop.v1.RaindropControl"

const (
	RaindropControl_ListTickers_FullMethodName  = "/" + serviceName + "/ListTickers"
	RaindropControl_ListSources_FullMethodName  = "/" + serviceName + "/ListSources"
	RaindropControl_AddSource_FullMethodName    = "/" + serviceName + "/AddSource"
	RaindropControl_RemoveSource_FullMethodName = "/" + serviceName + "/RemoveSource"
	RaindropControl_BuildChart_FullMethodName   = "/" + serviceName + "/BuildChart"
)

// -----------------------------------------------------------------------------
// Server API
// -----------------------------------------------------------------------------

type RaindropControlServer interface {
	// ListTickers returns {"tickers": [{"company", "ticker"}]}
	ListTickers(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// ListSources returns {"sources": [{"name", "type"}]} in fallback order
	ListSources(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// AddSource takes a source config {"name", "type", "dir", ...}
	AddSource(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// RemoveSource takes the source name
	RemoveSource(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// BuildChart takes {"ticker"|"company", "date", "bin", "margin", "interval"}
	BuildChart(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func RegisterRaindropControlServer(s grpc.ServiceRegistrar, srv RaindropControlServer) {
	s.RegisterService(&RaindropControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

var RaindropControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RaindropControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTickers", Handler: listTickersHandler},
		{MethodName: "ListSources", Handler: listSourcesHandler},
		{MethodName: "AddSource", Handler: addSourceHandler},
		{MethodName: "RemoveSource", Handler: removeSourceHandler},
		{MethodName: "BuildChart", Handler: buildChartHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "raindrop/v1/control.proto",
}

// -----------------------------------------------------------------------------

// unary decodes the request and runs call through the interceptor chain.
func unary[Req any](method string, call func(RaindropControlServer, context.Context, *Req) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RaindropControlServer), ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, r interface{}) (interface{}, error) {
			return call(srv.(RaindropControlServer), ctx, r.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

var (
	listTickersHandler = unary[emptypb.Empty](RaindropControl_ListTickers_FullMethodName,
		func(s RaindropControlServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
			return s.ListTickers(ctx, in)
		})
	listSourcesHandler = unary[emptypb.Empty](RaindropControl_ListSources_FullMethodName,
		func(s RaindropControlServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
			return s.ListSources(ctx, in)
		})
	addSourceHandler = unary[structpb.Struct](RaindropControl_AddSource_FullMethodName,
		func(s RaindropControlServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return s.AddSource(ctx, in)
		})
	removeSourceHandler = unary[wrapperspb.StringValue](RaindropControl_RemoveSource_FullMethodName,
		func(s RaindropControlServer, ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
			return s.RemoveSource(ctx, in)
		})
	buildChartHandler = unary[structpb.Struct](RaindropControl_BuildChart_FullMethodName,
		func(s RaindropControlServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return s.BuildChart(ctx, in)
		})
)

// -----------------------------------------------------------------------------
// Client API
// -----------------------------------------------------------------------------

type RaindropControlClient struct {
	cc grpc.ClientConnInterface
}

func NewRaindropControlClient(cc grpc.ClientConnInterface) *RaindropControlClient {
	return &RaindropControlClient{cc: cc}
}

func (c *RaindropControlClient) ListTickers(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, RaindropControl_ListTickers_FullMethodName, &emptypb.Empty{}, out, opts...)
	return out, err
}

func (c *RaindropControlClient) ListSources(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, RaindropControl_ListSources_FullMethodName, &emptypb.Empty{}, out, opts...)
	return out, err
}

func (c *RaindropControlClient) AddSource(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, RaindropControl_AddSource_FullMethodName, in, out, opts...)
	return out, err
}

func (c *RaindropControlClient) RemoveSource(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, RaindropControl_RemoveSource_FullMethodName, wrapperspb.String(name), out, opts...)
	return out, err
}

func (c *RaindropControlClient) BuildChart(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, RaindropControl_BuildChart_FullMethodName, in, out, opts...)
	return out, err
}
