package auth

import (
	"context"

	"skillxchange/errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type contextKey string

const tokenKey contextKey = "bearer_token"

// WithToken stores the raw bearer token for the connection gateway.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the bearer token extracted by StreamInterceptor, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}

// StreamInterceptor extracts the bearer token from the "authorization" metadata.
// Verification itself belongs to the connection gateway, so a stream without
// metadata is let through: the client may still authenticate with its first frame.
// A present but malformed header is refused right away.
func StreamInterceptor(srv any, ss grpc.ServerStream,
	info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	md, ok := metadata.FromIncomingContext(ss.Context())
	if !ok {
		return handler(srv, ss)
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return handler(srv, ss)
	}

	token, err := BearerToken(values[0])
	if err != nil {
		return errors.MapToGRPCError(err)
	}
	return handler(srv, &tokenStream{ServerStream: ss, ctx: WithToken(ss.Context(), token)})
}

type tokenStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tokenStream) Context() context.Context {
	return s.ctx
}
