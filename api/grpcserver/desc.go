package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "matchbook.v1.OrderEntry"

// OrderEntryServer is the order-entry RPC surface. Every method takes and
// returns a protobuf Struct so the service needs no generated code.
type OrderEntryServer interface {
	Place(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cancel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Replace(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetMarketPrice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Snapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Depth(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type method func(OrderEntryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, m method) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return m(srv.(OrderEntryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return m(srv.(OrderEntryServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OrderEntryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Place", OrderEntryServer.Place),
		unary("Cancel", OrderEntryServer.Cancel),
		unary("Replace", OrderEntryServer.Replace),
		unary("SetMarketPrice", OrderEntryServer.SetMarketPrice),
		unary("Snapshot", OrderEntryServer.Snapshot),
		unary("Depth", OrderEntryServer.Depth),
	},
	Metadata: "matchbook/order_entry",
}

func Register(s grpc.ServiceRegistrar, srv OrderEntryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the order-entry service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method (for example "Place") with req.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
