package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name. There is no
// .proto file backing it (see codec.go), but gRPC's wire framing still
// expects a "package.Service/Method" path for every call.
const ServiceName = "fricon.v1.Dataset"

func _Dataset_Create_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateDatasetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DatasetServer).Create(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Create"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DatasetServer).Create(ctx, req.(*CreateDatasetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Dataset_Get_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetDatasetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DatasetServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Get"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DatasetServer).Get(ctx, req.(*GetDatasetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Dataset_Update_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UpdateDatasetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DatasetServer).Update(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Update"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DatasetServer).Update(ctx, req.(*UpdateDatasetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Dataset_Delete_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeleteDatasetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DatasetServer).Delete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Delete"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DatasetServer).Delete(ctx, req.(*DeleteDatasetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Dataset_Write_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(DatasetServer).Write(&datasetWriteServer{ServerStream: stream})
}

func _Dataset_List_Handler(srv any, stream grpc.ServerStream) error {
	in := new(ListDatasetsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DatasetServer).List(in, &datasetListServer{ServerStream: stream})
}

func _Dataset_Subscribe_Handler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DatasetServer).Subscribe(in, &datasetSubscribeServer{ServerStream: stream})
}

// ServiceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would emit for the Dataset service: a dispatch table grpc.Server uses to
// route an incoming "fricon.v1.Dataset/Method" path to a Go method, with
// the client-streaming Write and server-streaming List/Subscribe routed
// through the Streams table instead of Methods.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DatasetServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: _Dataset_Create_Handler},
		{MethodName: "Get", Handler: _Dataset_Get_Handler},
		{MethodName: "Update", Handler: _Dataset_Update_Handler},
		{MethodName: "Delete", Handler: _Dataset_Delete_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Write",
			Handler:       _Dataset_Write_Handler,
			ClientStreams: true,
		},
		{
			StreamName:    "List",
			Handler:       _Dataset_List_Handler,
			ServerStreams: true,
		},
		{
			StreamName:    "Subscribe",
			Handler:       _Dataset_Subscribe_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "fricon/dataset.proto",
}

// RegisterDatasetServer registers srv on s, the hand-written analogue of
// the generated RegisterDatasetServer function.
func RegisterDatasetServer(s grpc.ServiceRegistrar, srv DatasetServer) {
	s.RegisterService(&ServiceDesc, srv)
}
