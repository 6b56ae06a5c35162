package grpcserver

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"rcud/domain/document"
	"rcud/infra/logging"
	"rcud/service"
)

// Server adapts service.Service to gRPC.
type Server struct {
	svc *service.Service
	log *slog.Logger
}

var _ SnapshotsServer = (*Server)(nil)

func NewServer(svc *service.Service) *Server {
	return &Server{svc: svc, log: logging.For("grpc")}
}

// -------------------- Commands --------------------

func (s *Server) Publish(
	ctx context.Context,
	req *structpb.Struct,
) (*wrapperspb.UInt64Value, error) {
	in, err := document.FromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	d, err := s.svc.Publish(in.Schema, in.Entries)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.UInt64(d.Version), nil
}

// -------------------- Queries --------------------

func (s *Server) Get(
	ctx context.Context,
	req *wrapperspb.StringValue,
) (*wrapperspb.StringValue, error) {
	v, version, err := s.svc.Get(req.GetValue())
	if herr := grpc.SetHeader(ctx, metadata.Pairs(VersionHeader, strconv.FormatUint(version, 10))); herr != nil {
		s.log.Debug("version header not sent", "version", version, "err", herr)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(v), nil
}

func (s *Server) Snapshot(
	ctx context.Context,
	_ *emptypb.Empty,
) (*structpb.Struct, error) {
	out, err := document.ToStruct(s.svc.Snapshot())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// -------------------- Errors --------------------

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrKeyNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, document.ErrInvalidSchema),
		errors.Is(err, document.ErrEmptyKey),
		errors.Is(err, document.ErrDuplicateKey):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, document.ErrSchemaDowngrade):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
