package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "rcud.v1.Snapshots"

const (
	methodGet      = "/" + ServiceName + "/Get"
	methodSnapshot = "/" + ServiceName + "/Snapshot"
	methodPublish  = "/" + ServiceName + "/Publish"
)

// VersionHeader carries the document version a Get was served from.
const VersionHeader = "x-rcud-version"

// SnapshotsServer is the server API for rcud.v1.Snapshots.
//
// The messages are protobuf well-known types, so the service needs no
// generated code:
//
//	rpc Get(google.protobuf.StringValue) returns (google.protobuf.StringValue);
//	rpc Snapshot(google.protobuf.Empty) returns (google.protobuf.Struct);
//	rpc Publish(google.protobuf.Struct) returns (google.protobuf.UInt64Value);
type SnapshotsServer interface {
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Snapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Publish(context.Context, *structpb.Struct) (*wrapperspb.UInt64Value, error)
}

func RegisterSnapshotsServer(s grpc.ServiceRegistrar, srv SnapshotsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SnapshotsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "Snapshot", Handler: snapshotHandler},
		{MethodName: "Publish", Handler: publishHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rcud/v1/snapshots.proto",
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SnapshotsServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGet}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SnapshotsServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SnapshotsServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSnapshot}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SnapshotsServer).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func publishHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SnapshotsServer).Publish(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodPublish}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SnapshotsServer).Publish(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
