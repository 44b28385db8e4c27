package chatv1

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName       = "skillxchange.chat.v1.Gateway"
	ConnectFullMethod = "/skillxchange.chat.v1.Gateway/Connect"
)

// GatewayServer is the server API of the Gateway service.
type GatewayServer interface {
	Connect(stream Gateway_ConnectServer) error
}

type Gateway_ConnectServer interface {
	Send(*Frame) error
	Recv() (*Frame, error)
	grpc.ServerStream
}

type gatewayConnectServer struct {
	grpc.ServerStream
}

func (x *gatewayConnectServer) Send(f *Frame) error {
	return x.ServerStream.SendMsg(f)
}

func (x *gatewayConnectServer) Recv() (*Frame, error) {
	f := new(Frame)
	if err := x.ServerStream.RecvMsg(f); err != nil {
		return nil, err
	}
	return f, nil
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(GatewayServer).Connect(&gatewayConnectServer{ServerStream: stream})
}

var Gateway_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       connectHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "skillxchange/chat/v1/gateway",
}

func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&Gateway_ServiceDesc, srv)
}

// GatewayClient is the client API of the Gateway service.
type GatewayClient interface {
	Connect(ctx context.Context, opts ...grpc.CallOption) (Gateway_ConnectClient, error)
}

type Gateway_ConnectClient interface {
	Send(*Frame) error
	Recv() (*Frame, error)
	grpc.ClientStream
}

type gatewayClient struct {
	cc grpc.ClientConnInterface
}

func NewGatewayClient(cc grpc.ClientConnInterface) GatewayClient {
	return &gatewayClient{cc: cc}
}

func (c *gatewayClient) Connect(ctx context.Context, opts ...grpc.CallOption) (Gateway_ConnectClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &Gateway_ServiceDesc.Streams[0], ConnectFullMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &gatewayConnectClient{ClientStream: stream}, nil
}

type gatewayConnectClient struct {
	grpc.ClientStream
}

func (x *gatewayConnectClient) Send(f *Frame) error {
	return x.ClientStream.SendMsg(f)
}

func (x *gatewayConnectClient) Recv() (*Frame, error) {
	f := new(Frame)
	if err := x.ClientStream.RecvMsg(f); err != nil {
		return nil, err
	}
	return f, nil
}
