package server

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"

	"github.com/babelroom/babelroom/internal/config"
)

// Server wraps the gRPC server with the configured transport limits.
type Server struct {
	cfg  config.ServerConfig
	grpc *grpc.Server
	log  *slog.Logger
}

// New builds the gRPC server and registers the Translation service. Audio
// chunks and MP3 payloads ride inside messages, hence the generous size cap.
func New(cfg config.ServerConfig, svc TranslationServer) *Server {
	maxBytes := cfg.MaxMessageMB << 20
	gs := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxBytes),
		grpc.MaxSendMsgSize(maxBytes),
		grpc.NumStreamWorkers(uint32(cfg.MaxWorkers)),
		grpc.ForceServerCodec(jsonCodec{}),
	)
	RegisterTranslationServer(gs, svc)
	return &Server{cfg: cfg, grpc: gs, log: slog.With("component", "server")}
}

// ListenAndServe listens on the configured address and serves until stopped.
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("server: listen %q: %w", s.cfg.GRPCAddr, err)
	}
	return s.Serve(lis)
}

// Serve serves on lis until stopped.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc server listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// GracefulStop drains live streams and stops the server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}
