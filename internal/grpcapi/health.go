// Package grpcapi exposes the standard grpc.health.v1 service with one
// entry per garage subsystem, so supervisors can watch the door and battery
// without polling the HTTP API.
package grpcapi

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

const (
	ServiceDoor  = "garage.door"
	ServicePower = "garage.power"
)

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger

	lowThreshold float64
}

// NewServer registers the health service. lowThreshold is the battery level
// at or below which garage.power reports NOT_SERVING.
func NewServer(lowThreshold float64, logger *slog.Logger) *Server {
	s := &Server{
		grpc:         grpc.NewServer(),
		health:       health.NewServer(),
		logger:       logger,
		lowThreshold: lowThreshold,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceDoor, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServicePower, healthpb.HealthCheckResponse_SERVING)
	return s
}

// DoorChanged is registered as a door state listener.
func (s *Server) DoorChanged(st types.DoorState) {
	status := healthpb.HealthCheckResponse_SERVING
	if st == types.DoorStopped {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceDoor, status)
}

// PowerSampled is registered as a power loop hook.
func (s *Server) PowerSampled(smp types.PowerSample) {
	status := healthpb.HealthCheckResponse_SERVING
	if smp.Level <= s.lowThreshold {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServicePower, status)
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc health listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
