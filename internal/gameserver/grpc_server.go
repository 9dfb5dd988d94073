package gameserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// GRPCServer serves CombatService. It implements server.Service.
type GRPCServer struct {
	addr   string
	srv    *grpc.Server
	logger *zap.Logger
}

// NewGRPCServer creates a server for svc listening on addr.
//
// Precondition: svc and logger must be non-nil.
func NewGRPCServer(addr string, svc *Service, logger *zap.Logger) *GRPCServer {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(logger)))
	svc.Register(srv)
	return &GRPCServer{addr: addr, srv: srv, logger: logger}
}

// Start listens on the configured address and serves until Stop.
func (g *GRPCServer) Start() error {
	lis, err := net.Listen("tcp", g.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.addr, err)
	}
	g.logger.Info("combat service listening", zap.String("addr", lis.Addr().String()))
	if err := g.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serving grpc: %w", err)
	}
	return nil
}

// Stop drains in-flight calls and stops the server.
func (g *GRPCServer) Stop() { g.srv.GracefulStop() }

// LoggingInterceptor logs every call at debug level and failures at warn.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			logger.Warn("grpc call failed", append(fields, zap.Stringer("code", status.Code(err)), zap.Error(err))...)
		} else {
			logger.Debug("grpc call", fields...)
		}
		return resp, err
	}
}
