package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "rbstore.v1.KeyStore"

// KeyStoreServer is the server API for the KeyStore service.
type KeyStoreServer interface {
	Insert(context.Context, *wrapperspb.Int64Value) (*wrapperspb.UInt64Value, error)
	Find(context.Context, *wrapperspb.Int64Value) (*wrapperspb.BoolValue, error)
	Erase(context.Context, *wrapperspb.Int64Value) (*wrapperspb.BoolValue, error)
	Min(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
	Max(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
	Len(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
	Verify(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	// Export streams up to the requested number of keys in ascending
	// order. A request of 0 streams every key.
	Export(*wrapperspb.UInt32Value, grpc.ServerStreamingServer[wrapperspb.Int64Value]) error
}

// KeyStoreServiceDesc describes the KeyStore service. The messages are
// protobuf well-known types, so no generated code is needed.
var KeyStoreServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*KeyStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Insert", Handler: unary(KeyStoreServer.Insert, "Insert")},
		{MethodName: "Find", Handler: unary(KeyStoreServer.Find, "Find")},
		{MethodName: "Erase", Handler: unary(KeyStoreServer.Erase, "Erase")},
		{MethodName: "Min", Handler: unary(KeyStoreServer.Min, "Min")},
		{MethodName: "Max", Handler: unary(KeyStoreServer.Max, "Max")},
		{MethodName: "Len", Handler: unary(KeyStoreServer.Len, "Len")},
		{MethodName: "Verify", Handler: unary(KeyStoreServer.Verify, "Verify")},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Export",
			Handler:       exportHandler,
			ServerStreams: true,
		},
	},
	Metadata: "rbstore/v1/keystore.proto",
}

func RegisterKeyStoreServer(s grpc.ServiceRegistrar, srv KeyStoreServer) {
	s.RegisterService(&KeyStoreServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

// unary adapts a typed method into a grpc.MethodHandler.
func unary[Req, Resp any](
	call func(KeyStoreServer, context.Context, *Req) (*Resp, error),
	name string,
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KeyStoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(name),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(KeyStoreServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func exportHandler(srv any, stream grpc.ServerStream) error {
	in := new(wrapperspb.UInt32Value)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(KeyStoreServer).Export(in, &grpc.GenericServerStream[wrapperspb.UInt32Value, wrapperspb.Int64Value]{ServerStream: stream})
}
