package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"skillxchange/auth"
	"skillxchange/domain/event"
	pb "skillxchange/infrastructure/grpc/chatv1"
	"skillxchange/infrastructure/grpc/client"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
)

type BaseGrpcSuite struct {
	suite.Suite
	Config Config
	tokens auth.Tokens
}

// SetupSuite loads the environment configuration, the suite only runs
// against a server given by E2E_SERVER_ADDR.
func (s *BaseGrpcSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" || s.Config.JwtSecret == "" {
		s.T().Skip("E2E_SERVER_ADDR and E2E_JWT_SECRET are required")
	}
	s.tokens = auth.NewTokens(s.Config.JwtSecret, s.Config.JwtIssuer, time.Hour)
}

func (s *BaseGrpcSuite) Token(userID string) string {
	token, err := s.tokens.GenerateToken(userID, nil)
	s.Require().NoError(err)
	return token
}

// GrpcConn opens a connection logging every stream and, with E2E_DEBUG_JSON, every frame
func (s *BaseGrpcSuite) GrpcConn(t *testing.T, name string) *grpc.ClientConn {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	conn, err := client.Dial(s.Config.ServerAddr,
		grpc.WithStreamInterceptor(func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn,
			method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
			start := time.Now()
			stream, err := streamer(ctx, desc, cc, method, opts...)
			t.Logf("GRPC %s opened in %v (error: %v)", method, time.Since(start), err)
			if err != nil || !s.Config.DebugJSON {
				return stream, err
			}
			return &loggingStream{ClientStream: stream, t: t, colours: s.Config.Colours}, nil
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.ServerAddr)
	return conn
}

// WithUser opens an authenticated stream for userID within a contextual test step
func (s *BaseGrpcSuite) WithUser(userID string, fn func(ctx context.Context, user *User)) {
	conn := s.GrpcConn(s.T(), "Connecting "+userID)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Timeout)
	defer cancel()

	stream, err := client.Connect(ctx, conn, s.Token(userID))
	s.Require().NoError(err)
	fn(ctx, &User{ID: userID, stream: stream, suite: s})
}

type User struct {
	ID     string
	stream pb.Gateway_ConnectClient
	suite  *BaseGrpcSuite
}

func (u *User) Send(name string, payload any) {
	frame, err := pb.NewFrame(name, payload)
	u.suite.Require().NoError(err)
	u.suite.Require().NoError(u.stream.Send(frame))
}

// Next returns the next event of type T, skipping the others
func Next[T event.Event](u *User) T {
	for {
		frame, err := u.stream.Recv()
		u.suite.Require().NoError(err)
		e, err := pb.ToEvent(frame)
		u.suite.Require().NoError(err)
		if typed, ok := e.(T); ok {
			return typed
		}
	}
}

type loggingStream struct {
	grpc.ClientStream
	t       *testing.T
	colours bool
}

func (l *loggingStream) SendMsg(m any) error {
	l.dump("SEND", m)
	return l.ClientStream.SendMsg(m)
}

func (l *loggingStream) RecvMsg(m any) error {
	err := l.ClientStream.RecvMsg(m)
	if err == nil {
		l.dump("RECV", m)
	}
	return err
}

func (l *loggingStream) dump(direction string, m any) {
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return
	}
	if l.colours {
		direction = color.Cyan.Render(direction)
	}
	l.t.Logf("%s\n%s", direction, body)
}
