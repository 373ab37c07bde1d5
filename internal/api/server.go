package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/miradorstack/mirador-selfheal/internal/config"
	selfhealv1 "github.com/miradorstack/mirador-selfheal/internal/grpc/selfhealv1"
)

// Server hosts the SelfHealing service next to the standard health and
// reflection services. The process-wide health entry ("") is SERVING while the
// server runs; the selfheal.v1.SelfHealing entry tracks whether a model is
// loaded, since scoring is the one RPC that cannot work without it.
type Server struct {
	rpc    *grpc.Server
	health *health.Server
	lis    net.Listener
	drain  time.Duration
}

// Listen binds cfg.Address and builds a Server on it.
func Listen(cfg config.ServerConfig, service selfhealv1.SelfHealingServer, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}
	return New(lis, cfg.GracefulTimeout, service, opts...), nil
}

// New builds a Server on lis. drain bounds the graceful stop in Drain.
func New(lis net.Listener, drain time.Duration, service selfhealv1.SelfHealingServer, opts ...grpc.ServerOption) *Server {
	grpc_prometheus.EnableHandlingTimeHistogram()
	rpc := grpc.NewServer(append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}, opts...)...)

	selfhealv1.RegisterSelfHealingServer(rpc, service)
	grpc_prometheus.Register(rpc)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(selfhealv1.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(rpc, hs)
	reflection.Register(rpc)

	return &Server{rpc: rpc, health: hs, lis: lis, drain: drain}
}

// SetModelReady reports model availability on the SelfHealing health entry.
func (s *Server) SetModelReady(ready bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(selfhealv1.ServiceName, st)
}

// Serve blocks until the server stops. A stop through Drain returns nil.
func (s *Server) Serve() error {
	if err := s.rpc.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Drain flips every health entry to NOT_SERVING, lets in-flight RPCs finish and
// force-closes whatever is left once ctx ends. It reports whether the stop was
// forced.
func (s *Server) Drain(ctx context.Context) (forced bool) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.rpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return false
	case <-ctx.Done():
		s.rpc.Stop()
		<-done
		return true
	}
}

// DrainTimeout is the grace period Drain callers should allow.
func (s *Server) DrainTimeout() time.Duration {
	return s.drain
}
