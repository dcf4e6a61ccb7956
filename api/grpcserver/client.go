package grpcserver

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a typed KeyStore client.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Insert(ctx context.Context, key int64, opts ...grpc.CallOption) (uint64, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, fullMethod("Insert"), wrapperspb.Int64(key), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *Client) Find(ctx context.Context, key int64, opts ...grpc.CallOption) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullMethod("Find"), wrapperspb.Int64(key), out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

func (c *Client) Erase(ctx context.Context, key int64, opts ...grpc.CallOption) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullMethod("Erase"), wrapperspb.Int64(key), out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

func (c *Client) Min(ctx context.Context, opts ...grpc.CallOption) (int64, error) {
	return c.int64Query(ctx, "Min", opts...)
}

func (c *Client) Max(ctx context.Context, opts ...grpc.CallOption) (int64, error) {
	return c.int64Query(ctx, "Max", opts...)
}

func (c *Client) Len(ctx context.Context, opts ...grpc.CallOption) (int64, error) {
	return c.int64Query(ctx, "Len", opts...)
}

func (c *Client) Verify(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("Verify"), &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

// Export streams up to capacity keys in ascending order. Zero asks for all.
func (c *Client) Export(ctx context.Context, capacity uint32, opts ...grpc.CallOption) ([]int64, error) {
	stream, err := c.cc.NewStream(ctx, &KeyStoreServiceDesc.Streams[0], fullMethod("Export"), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[wrapperspb.UInt32Value, wrapperspb.Int64Value]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(wrapperspb.UInt32(capacity)); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	var keys []int64
	for {
		v, err := x.Recv()
		if err == io.EOF {
			return keys, nil
		}
		if err != nil {
			return keys, err
		}
		keys = append(keys, v.GetValue())
	}
}

func (c *Client) int64Query(ctx context.Context, name string, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, fullMethod(name), &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}
