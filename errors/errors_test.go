package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMapToGRPCError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"missing token", ErrMissingToken, codes.Unauthenticated},
		{"wrapped invalid token", fmt.Errorf("open: %w", ErrInvalidToken), codes.Unauthenticated},
		{"handshake timeout", ErrHandshakeTimeout, codes.Unauthenticated},
		{"payload", ErrInvalidPayload, codes.InvalidArgument},
		{"rate limited", ErrRateLimited, codes.ResourceExhausted},
		{"slow consumer", ErrSlowConsumer, codes.Unavailable},
		{"persistence", fmt.Errorf("%w: disk full", ErrPersistence), codes.Internal},
		{"unknown", fmt.Errorf("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			st, ok := status.FromError(MapToGRPCError(tt.err))
			req.True(ok)
			req.Equal(tt.code, st.Code())
		})
	}

	require.NoError(t, MapToGRPCError(nil))
}

func TestPersistenceError_DoesNotLeakCause(t *testing.T) {
	req := require.New(t)
	st, _ := status.FromError(MapToGRPCError(fmt.Errorf("%w: /var/lib/badger: disk full", ErrPersistence)))
	req.Equal(ErrPersistence.Error(), st.Message())
}
