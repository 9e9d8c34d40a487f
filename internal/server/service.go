package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TranslationServer is the service contract: one bidirectional stream per
// speaker plus a unary settings update. The stream plumbing below is written
// by hand against the JSON codec; there is no generated code.
type TranslationServer interface {
	StreamChat(Translation_StreamChatServer) error
	UpdateParticipantSettings(context.Context, *UpdateParticipantSettingsRequest) (*ParticipantSettingsResponse, error)
}

// UnimplementedTranslationServer provides failing stubs for forward
// compatibility.
type UnimplementedTranslationServer struct{}

func (UnimplementedTranslationServer) StreamChat(Translation_StreamChatServer) error {
	return status.Errorf(codes.Unimplemented, "method StreamChat not implemented")
}

func (UnimplementedTranslationServer) UpdateParticipantSettings(context.Context, *UpdateParticipantSettingsRequest) (*ParticipantSettingsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UpdateParticipantSettings not implemented")
}

// Translation_StreamChatServer is the server view of the bidirectional
// stream.
type Translation_StreamChatServer interface {
	Send(*ChatResponse) error
	Recv() (*ChatRequest, error)
	grpc.ServerStream
}

type translationStreamChatServer struct {
	grpc.ServerStream
}

func (x *translationStreamChatServer) Send(m *ChatResponse) error {
	return x.ServerStream.SendMsg(m)
}

func (x *translationStreamChatServer) Recv() (*ChatRequest, error) {
	m := new(ChatRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _Translation_StreamChat_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(TranslationServer).StreamChat(&translationStreamChatServer{stream})
}

func _Translation_UpdateParticipantSettings_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateParticipantSettingsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranslationServer).UpdateParticipantSettings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/babelroom.Translation/UpdateParticipantSettings",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TranslationServer).UpdateParticipantSettings(ctx, req.(*UpdateParticipantSettingsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var _Translation_serviceDesc = grpc.ServiceDesc{
	ServiceName: "babelroom.Translation",
	HandlerType: (*TranslationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "UpdateParticipantSettings",
			Handler:    _Translation_UpdateParticipantSettings_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamChat",
			Handler:       _Translation_StreamChat_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "babelroom.Translation",
}

// RegisterTranslationServer attaches the service to a gRPC server.
func RegisterTranslationServer(s *grpc.Server, srv TranslationServer) {
	s.RegisterService(&_Translation_serviceDesc, srv)
}
