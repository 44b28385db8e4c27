package client

import (
	"context"

	pb "skillxchange/infrastructure/grpc/chatv1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Dial opens a client connection speaking the JSON codec of the Connect stream.
func Dial(address string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(pb.CodecName)),
	}, opts...)
	return grpc.NewClient(address, opts...)
}

// Connect opens the realtime stream with the token in the authorization metadata.
// An empty token leaves the stream unauthenticated: the caller must then send
// an authenticate frame first.
func Connect(ctx context.Context, conn grpc.ClientConnInterface, token string) (pb.Gateway_ConnectClient, error) {
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	return pb.NewGatewayClient(conn).Connect(ctx)
}
