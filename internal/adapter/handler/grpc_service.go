package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// The order service is served over gRPC with a JSON codec, so the request
// and reply messages are the plain structs of dto.go. Clients must select
// the codec with grpc.CallContentSubtype(JSONCodecName).

const (
	JSONCodecName    = "json"
	OrderServiceName = "sweetshop.order.v1.OrderService"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type GetOrderRequest struct {
	OrderID string `json:"orderId"`
}

type UpdateOrderStatusRPCRequest struct {
	OrderID string `json:"orderId"`
	UpdateOrderStatusRequest
}

type CancelOrderRequest struct {
	OrderID string `json:"orderId"`
}

type OrderServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*OrderReply, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderReply, error)
	UpdateOrderStatus(context.Context, *UpdateOrderStatusRPCRequest) (*OrderReply, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*OrderReply, error)
}

func unaryMethod[Req any](name string, call func(OrderServiceServer, context.Context, *Req) (*OrderReply, error)) grpc.MethodDesc {
	fullMethod := "/" + OrderServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrderServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateOrder", OrderServiceServer.CreateOrder),
		unaryMethod("GetOrder", OrderServiceServer.GetOrder),
		unaryMethod("UpdateOrderStatus", OrderServiceServer.UpdateOrderStatus),
		unaryMethod("CancelOrder", OrderServiceServer.CancelOrder),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

// OrderServiceClient calls the order service with the JSON codec.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, in any, opts ...grpc.CallOption) (*OrderReply, error) {
	out := new(OrderReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+OrderServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	return c.invoke(ctx, "CreateOrder", in, opts...)
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	return c.invoke(ctx, "GetOrder", in, opts...)
}

func (c *OrderServiceClient) UpdateOrderStatus(ctx context.Context, in *UpdateOrderStatusRPCRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	return c.invoke(ctx, "UpdateOrderStatus", in, opts...)
}

func (c *OrderServiceClient) CancelOrder(ctx context.Context, in *CancelOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	return c.invoke(ctx, "CancelOrder", in, opts...)
}
