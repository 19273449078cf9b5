package monitor

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	serviceName      = "wordcount.monitor.MonitorService"
	reportFullMethod = "/" + serviceName + "/Report"
)

// MonitorServiceServer receives status reports from mapper instances.
// Requests are structpb.Struct values with the fields task, source,
// message and counters; the reply is the time the report was accepted.
type MonitorServiceServer interface {
	Report(ctx context.Context, request *structpb.Struct) (*timestamppb.Timestamp, error)
}

type MonitorServiceClient interface {
	Report(ctx context.Context, request *structpb.Struct, opts ...grpc.CallOption) (*timestamppb.Timestamp, error)
}

type monitorServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMonitorServiceClient(cc grpc.ClientConnInterface) MonitorServiceClient {
	return &monitorServiceClient{cc: cc}
}

func (c *monitorServiceClient) Report(ctx context.Context, request *structpb.Struct, opts ...grpc.CallOption) (*timestamppb.Timestamp, error) {
	out := new(timestamppb.Timestamp)
	if err := c.cc.Invoke(ctx, reportFullMethod, request, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterMonitorServiceServer(s *grpc.Server, srv MonitorServiceServer) {
	s.RegisterService(&monitorServiceDesc, srv)
}

func reportHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MonitorServiceServer).Report(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: reportFullMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MonitorServiceServer).Report(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var monitorServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MonitorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Report",
			Handler:    reportHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "monitor.proto",
}
