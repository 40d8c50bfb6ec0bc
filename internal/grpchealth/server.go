// Package grpchealth serves the standard grpc.health.v1.Health service so
// orchestrators can probe the inference service over gRPC.
package grpchealth

import (
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service name reported alongside the overall ("") status.
const ServiceName = "objtrack.Inference"

// Server owns a gRPC listener exposing only the health service.
type Server struct {
	listenAddr string

	server   *grpc.Server
	health   *health.Server
	listener net.Listener

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewServer creates a health server for listenAddr. Nothing is bound until
// Start.
func NewServer(listenAddr string) *Server {
	return &Server{listenAddr: listenAddr, health: health.NewServer()}
}

// Start binds the listener and serves in the background. Both the overall
// and ServiceName statuses start as NOT_SERVING.
func (s *Server) Start() error {
	if s.running.Load() {
		return fmt.Errorf("health server already running")
	}

	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = lis

	s.server = grpc.NewServer()
	healthpb.RegisterHealthServer(s.server, s.health)
	s.SetServing(false)

	s.running.Store(true)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("[grpc] health service listening on %s", lis.Addr())
		if err := s.server.Serve(lis); err != nil && s.running.Load() {
			log.Printf("[grpc] server error: %v", err)
		}
	}()
	return nil
}

// SetServing flips the reported status of both the overall server and
// ServiceName.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop reports NOT_SERVING to watchers and then stops gracefully.
func (s *Server) Stop() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)

	s.health.Shutdown()
	s.server.GracefulStop()
	s.wg.Wait()
	log.Printf("[grpc] health service stopped")
}
