package nbi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of tracker.v1.TrackerService.
const (
	TrackerServiceName                    = "tracker.v1.TrackerService"
	TrackerService_FindAmbulance_FullName = "/tracker.v1.TrackerService/FindAmbulance"
	TrackerService_CallAmbulance_FullName = "/tracker.v1.TrackerService/CallAmbulance"
	TrackerService_Close_FullName         = "/tracker.v1.TrackerService/Close"
	TrackerService_Back_FullName          = "/tracker.v1.TrackerService/Back"
	TrackerService_GetFrame_FullName      = "/tracker.v1.TrackerService/GetFrame"
	TrackerService_WatchFrames_FullName   = "/tracker.v1.TrackerService/WatchFrames"
)

// TrackerServiceServer is the server API for tracker.v1.TrackerService. The
// service is declared over protobuf well-known types only, so no generated
// message code is needed.
type TrackerServiceServer interface {
	FindAmbulance(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	CallAmbulance(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Close(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Back(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetFrame(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchFrames(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterTrackerServiceServer registers srv on s.
func RegisterTrackerServiceServer(s grpc.ServiceRegistrar, srv TrackerServiceServer) {
	s.RegisterService(&TrackerService_ServiceDesc, srv)
}

type unaryCall func(TrackerServiceServer, context.Context, *emptypb.Empty) (proto.Message, error)

func unaryHandler(fullMethod string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TrackerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TrackerServiceServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchFramesHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TrackerServiceServer).WatchFrames(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// TrackerService_ServiceDesc describes tracker.v1.TrackerService.
var TrackerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TrackerServiceName,
	HandlerType: (*TrackerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "FindAmbulance",
			Handler: unaryHandler(TrackerService_FindAmbulance_FullName, func(s TrackerServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.FindAmbulance(ctx, in)
			}),
		},
		{
			MethodName: "CallAmbulance",
			Handler: unaryHandler(TrackerService_CallAmbulance_FullName, func(s TrackerServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.CallAmbulance(ctx, in)
			}),
		},
		{
			MethodName: "Close",
			Handler: unaryHandler(TrackerService_Close_FullName, func(s TrackerServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.Close(ctx, in)
			}),
		},
		{
			MethodName: "Back",
			Handler: unaryHandler(TrackerService_Back_FullName, func(s TrackerServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.Back(ctx, in)
			}),
		},
		{
			MethodName: "GetFrame",
			Handler: unaryHandler(TrackerService_GetFrame_FullName, func(s TrackerServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.GetFrame(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchFrames",
			Handler:       watchFramesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "tracker/v1/tracker.proto",
}

// TrackerServiceClient is the client API for tracker.v1.TrackerService.
type TrackerServiceClient interface {
	FindAmbulance(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	CallAmbulance(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Close(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Back(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetFrame(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	WatchFrames(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type trackerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTrackerServiceClient returns a client bound to cc.
func NewTrackerServiceClient(cc grpc.ClientConnInterface) TrackerServiceClient {
	return &trackerServiceClient{cc: cc}
}

func (c *trackerServiceClient) FindAmbulance(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TrackerService_FindAmbulance_FullName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trackerServiceClient) CallAmbulance(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TrackerService_CallAmbulance_FullName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trackerServiceClient) Close(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, TrackerService_Close_FullName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trackerServiceClient) Back(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TrackerService_Back_FullName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trackerServiceClient) GetFrame(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TrackerService_GetFrame_FullName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trackerServiceClient) WatchFrames(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &TrackerService_ServiceDesc.Streams[0], TrackerService_WatchFrames_FullName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
