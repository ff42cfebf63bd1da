package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "docclass.v1.DocumentService"

	classifyMethod  = "/" + ServiceName + "/Classify"
	extractMethod   = "/" + ServiceName + "/Extract"
	getResultMethod = "/" + ServiceName + "/GetResult"
)

// DocumentServiceServer takes raw PDF bytes and answers with well-known
// protobuf types, so no generated code is needed on either side.
type DocumentServiceServer interface {
	Classify(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	Extract(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	GetResult(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func RegisterDocumentServiceServer(s grpc.ServiceRegistrar, srv DocumentServiceServer) {
	s.RegisterService(&DocumentService_ServiceDesc, srv)
}

var DocumentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Classify", Handler: classifyHandler},
		{MethodName: "Extract", Handler: extractHandler},
		{MethodName: "GetResult", Handler: getResultHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docclass/v1/document.proto",
}

func classifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServiceServer).Classify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: classifyMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServiceServer).Classify(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServiceServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: extractMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServiceServer).Extract(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getResultHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServiceServer).GetResult(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getResultMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServiceServer).GetResult(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// DocumentServiceClient is the caller side of DocumentServiceServer.
type DocumentServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDocumentServiceClient(cc grpc.ClientConnInterface) *DocumentServiceClient {
	return &DocumentServiceClient{cc: cc}
}

func (c *DocumentServiceClient) Classify(ctx context.Context, pdf []byte, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, classifyMethod, wrapperspb.Bytes(pdf), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DocumentServiceClient) Extract(ctx context.Context, pdf []byte, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, extractMethod, wrapperspb.Bytes(pdf), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DocumentServiceClient) GetResult(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getResultMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
