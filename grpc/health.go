package grpc

import (
	"fmt"
	"log"
	"net"

	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "board-relay"

// HealthServer serves grpc.health.v1.Health. It starts NOT_SERVING.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	lis    net.Listener
}

func NewHealthServer() *HealthServer {
	h := &HealthServer{
		server: grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.server, h.health)
	h.SetServing(false)
	return h
}

// Serve listens on addr and serves in the background.
func (h *HealthServer) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	h.lis = lis
	go func() {
		if err := h.server.Serve(lis); err != nil {
			log.Printf("gRPC health server stopped: %v", err)
		}
	}()
	log.Printf("gRPC health server listening on %s", lis.Addr())
	return nil
}

// Addr is the bound address once serving.
func (h *HealthServer) Addr() string {
	if h.lis == nil {
		return ""
	}
	return h.lis.Addr().String()
}

// SetServing flips the reported status.
func (h *HealthServer) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
