package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/AltairaLabs/legalhub-mcp/internal/gateway/config"
)

// HealthService serves grpc.health.v1 for orchestrators that probe over gRPC
type HealthService struct {
	server *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewHealthService creates a health service reporting SERVING for the
// overall server and for the gateway service name.
func NewHealthService(logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(config.ServiceName, healthpb.HealthCheckResponse_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &HealthService{server: gs, health: hs, logger: logger}
}

// Serve blocks serving lis until Stop is called
func (h *HealthService) Serve(lis net.Listener) error {
	h.logger.Info("Starting gRPC health service", "address", lis.Addr().String())
	if err := h.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc health service: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops the server, forcing it
// after timeout.
func (h *HealthService) Stop(timeout time.Duration) {
	if timeout <= 0 {
		timeout = config.DefaultGRPCStopTimeout
	}
	h.health.Shutdown()

	done := make(chan struct{})
	go func() {
		h.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("gRPC health service stopped gracefully")
	case <-time.After(timeout):
		h.logger.Warn("Graceful shutdown timeout, forcing stop")
		h.server.Stop()
		<-done
	}
}
