package grpcserver

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"rcud/domain/document"
)

// Client calls rcud.v1.Snapshots.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Get returns the value of key and the document version it was read from.
func (c *Client) Get(ctx context.Context, key string, opts ...grpc.CallOption) (string, uint64, error) {
	var md metadata.MD
	out := new(wrapperspb.StringValue)
	opts = append(opts, grpc.Header(&md))
	if err := c.cc.Invoke(ctx, methodGet, wrapperspb.String(key), out, opts...); err != nil {
		return "", 0, err
	}

	var version uint64
	if vs := md.Get(VersionHeader); len(vs) > 0 {
		v, err := strconv.ParseUint(vs[0], 10, 64)
		if err != nil {
			return "", 0, errors.Wrap(err, "grpcserver: version header")
		}
		version = v
	}
	return out.GetValue(), version, nil
}

func (c *Client) Snapshot(ctx context.Context, opts ...grpc.CallOption) (document.Document, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodSnapshot, &emptypb.Empty{}, out, opts...); err != nil {
		return document.Document{}, err
	}
	return document.FromStruct(out)
}

// Publish replaces the served document and returns its version.
func (c *Client) Publish(
	ctx context.Context,
	schema string,
	entries map[string]string,
	opts ...grpc.CallOption,
) (uint64, error) {
	fields := make(map[string]any, len(entries))
	for k, v := range entries {
		fields[k] = v
	}
	in, err := structpb.NewStruct(map[string]any{
		"schema":  schema,
		"entries": fields,
	})
	if err != nil {
		return 0, errors.Wrap(err, "grpcserver: encode publish")
	}

	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, methodPublish, in, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}
