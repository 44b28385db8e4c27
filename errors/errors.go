package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	Is = errors.Is
	As = errors.As
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrAuth             = fmt.Errorf("authentication failed")
	ErrMissingToken     = fmt.Errorf("%w: token is missing", ErrAuth)
	ErrInvalidToken     = fmt.Errorf("%w: invalid or expired token", ErrAuth)
	ErrHandshakeTimeout = fmt.Errorf("%w: handshake window elapsed", ErrAuth)

	ErrPersistence    = fmt.Errorf("persistence failed")
	ErrNotFound       = fmt.Errorf("not found")
	ErrInvalidPayload = fmt.Errorf("invalid payload")

	ErrConnectionClosed = fmt.Errorf("connection closed")
	ErrSlowConsumer     = fmt.Errorf("connection outbound queue is full")
	ErrRateLimited      = fmt.Errorf("too many messages, slow down")
)

// MapToGRPCError converts a domain error into a gRPC status error.
// Unknown errors are reported as Internal without leaking their text.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrAuth):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrInvalidPayload):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, ErrSlowConsumer), errors.Is(err, ErrConnectionClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrPersistence):
		return status.Error(codes.Internal, ErrPersistence.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
