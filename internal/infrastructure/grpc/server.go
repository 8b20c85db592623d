package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	pkglogger "github.com/wekeepgrowing/semo-keyhub/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server exposes the standard gRPC health service for orchestrator liveness checks.
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
}

func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: logger,
		health: health.NewServer(),
	}

	s.server = grpc.NewServer(
		grpc.UnaryInterceptor(pkglogger.NewGrpcUnaryServerInterceptor(logger)),
	)
	healthpb.RegisterHealthServer(s.server, s.health)
	s.health.SetServingStatus(cfg.Service.Name, healthpb.HealthCheckResponse_SERVING)
	if !cfg.IsProduction() {
		reflection.Register(s.server)
	}
	return s
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.GRPC.Host, s.config.Server.GRPC.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(listener)
}

// Serve runs on an existing listener.
func (s *Server) Serve(listener net.Listener) error {
	s.listener = listener

	s.logger.Info("Starting gRPC server", zap.String("address", listener.Addr().String()))
	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
	return nil
}
