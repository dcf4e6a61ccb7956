package grpcserver

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"rbstore/domain/rbtree"
	"rbstore/infra/logging"
	"rbstore/service"
)

// Server adapts KeyService to gRPC.
type Server struct {
	svc *service.KeyService
	log *logrus.Entry
}

var _ KeyStoreServer = (*Server)(nil)

func NewServer(svc *service.KeyService, log logrus.FieldLogger) *Server {
	return &Server{svc: svc, log: logging.Component(log, "grpc")}
}

// -------------------- Commands --------------------

func (s *Server) Insert(
	ctx context.Context,
	req *wrapperspb.Int64Value,
) (*wrapperspb.UInt64Value, error) {
	seq, err := s.svc.Insert(req.GetValue())
	if err != nil {
		return nil, s.toStatus("Insert", err)
	}
	return wrapperspb.UInt64(seq), nil
}

func (s *Server) Erase(
	ctx context.Context,
	req *wrapperspb.Int64Value,
) (*wrapperspb.BoolValue, error) {
	_, found, err := s.svc.Erase(req.GetValue())
	if err != nil {
		return nil, s.toStatus("Erase", err)
	}
	return wrapperspb.Bool(found), nil
}

// -------------------- Queries --------------------

func (s *Server) Find(
	ctx context.Context,
	req *wrapperspb.Int64Value,
) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.svc.Find(req.GetValue())), nil
}

func (s *Server) Min(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	k, err := s.svc.Min()
	if err != nil {
		return nil, s.toStatus("Min", err)
	}
	return wrapperspb.Int64(k), nil
}

func (s *Server) Max(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	k, err := s.svc.Max()
	if err != nil {
		return nil, s.toStatus("Max", err)
	}
	return wrapperspb.Int64(k), nil
}

func (s *Server) Len(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	return wrapperspb.Int64(int64(s.svc.Len())), nil
}

func (s *Server) Verify(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if _, err := s.svc.Verify(); err != nil {
		return nil, s.toStatus("Verify", err)
	}
	return &emptypb.Empty{}, nil
}

// Export streams up to req keys in ascending order; zero means all.
func (s *Server) Export(
	req *wrapperspb.UInt32Value,
	stream grpc.ServerStreamingServer[wrapperspb.Int64Value],
) error {
	capacity := int(req.GetValue())
	if capacity == 0 {
		capacity = s.svc.Len()
	}
	for _, k := range s.svc.Export(capacity) {
		if err := stream.Send(wrapperspb.Int64(k)); err != nil {
			return err
		}
	}
	return nil
}

// -------------------- Errors --------------------

func (s *Server) toStatus(method string, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, rbtree.ErrEmptyTree):
		code = codes.NotFound
	case errors.Is(err, rbtree.ErrAllocation):
		code = codes.ResourceExhausted
	case errors.Is(err, rbtree.ErrDestroyed):
		code = codes.Unavailable
	case errors.Is(err, rbtree.ErrInvalidNode):
		code = codes.InvalidArgument
	default:
		code = codes.Internal
	}
	if code == codes.Internal {
		s.log.WithError(err).WithField("method", method).Error("request failed")
	}
	return status.Error(code, err.Error())
}
