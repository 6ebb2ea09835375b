package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"

	"github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type GRPCServer struct {
	server *grpc.Server
	cfg    *cfg.GRPCConfig
	logger logger.Logger
}

func NewGRPCServer(cfg *cfg.GRPCConfig, logger logger.Logger) *GRPCServer {
	return &GRPCServer{
		server: grpc.NewServer(grpc.ChainUnaryInterceptor(recoveryInterceptor(logger))),
		cfg:    cfg,
		logger: logger,
	}
}

func (s *GRPCServer) RegisterServices(recUC usecase.RecommendUC) {
	s.server.RegisterService(&RecommendServiceDesc, NewRecommendService(recUC, s.logger))
}

func (s *GRPCServer) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	lis, err := net.Listen(s.cfg.NetworkMode, addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.Serve(lis)
}

// Serve обслуживает готовый listener (в тестах — bufconn).
func (s *GRPCServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

func (s *GRPCServer) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infof("gRPC server stopped gracefully")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		s.logger.Warnf("gRPC server forced to stop after timeout")
		return ctx.Err()
	}
}

// recoveryInterceptor превращает панику обработчика в codes.Internal, процесс продолжает работу.
func recoveryInterceptor(logger logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf(fmt.Errorf("panic: %v", r), "gRPC handler panicked: method=%s\n%s", info.FullMethod, debug.Stack())
				resp, err = nil, status.Error(codes.Internal, e.ErrInternalServerError.Error())
			}
		}()

		return handler(ctx, req)
	}
}
