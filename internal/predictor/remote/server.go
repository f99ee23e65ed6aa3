// Package remote carries the predictor boundary over gRPC.
//
// The service is declared by hand rather than generated:
//
//	service breakerbot.predictor.v1.Predictor {
//	  rpc Predict(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
//
// so any model host that can speak gRPC with well-known types can serve it.
package remote

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rmathena79/breaker-bot/internal/predictor"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName   = "breakerbot.predictor.v1.Predictor"
	predictMethod = "/" + ServiceName + "/Predict"
)

type predictorServer interface {
	Predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*predictorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Predict", Handler: predictHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "breakerbot/predictor/v1/predictor.proto",
}

func predictHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(predictorServer).Predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: predictMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(predictorServer).Predict(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Server exposes a predictor.Predictor over gRPC.
type Server struct {
	predictor predictor.Predictor
	logger    *zap.Logger
}

// NewServer wraps p. A nil logger discards output.
func NewServer(p predictor.Predictor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{predictor: p, logger: logger}
}

// Register attaches the Predictor service to srv.
func (s *Server) Register(srv *grpc.Server) {
	srv.RegisterService(&serviceDesc, s)
}

// Predict implements the wire handler.
func (s *Server) Predict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := predictor.ValidateRequest(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	batch, err := s.predictor.Predict(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := predictor.CheckBatch(req, batch); err != nil {
		s.logger.Error("predictor returned malformed batch", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}

	out, err := encodeBatch(batch)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, predictor.ErrBadRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, predictor.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// NewGRPCServer returns a gRPC server with the Predictor service and the
// logging interceptor installed.
func NewGRPCServer(p predictor.Predictor, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	s := NewServer(p, logger)
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(UnaryServerInterceptor(s.logger))}, opts...)
	srv := grpc.NewServer(opts...)
	s.Register(srv)
	return srv
}

// Serve runs srv on lis until ctx is cancelled, then stops it gracefully.
func Serve(ctx context.Context, srv *grpc.Server, lis net.Listener) error {
	go func() {
		<-ctx.Done()

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			srv.Stop()
		}
	}()

	if err := srv.Serve(lis); err != nil {
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
	return nil
}
