package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service reported by the gRPC health endpoint.
const ServiceName = "voicereader.Reader"

// NewGRPCServer returns a gRPC server carrying only the standard health
// service, starting in NOT_SERVING.
func NewGRPCServer() (*grpc.Server, *grpchealth.Server) {
	s := grpc.NewServer()
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

// Publish sets the serving status from a combined check result.
func Publish(hs *grpchealth.Server, st HealthStatus) {
	status := healthpb.HealthCheckResponse_SERVING
	if !st.OK {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(ServiceName, status)
}

// Watch runs checks every interval and publishes the outcome until ctx ends.
func Watch(ctx context.Context, hs *grpchealth.Server, interval time.Duration, log *zap.Logger, checks ...Check) {
	run := func() {
		st := CheckAll(ctx, checks...)
		Publish(hs, st)
		if !st.OK {
			log.Warn("health check failed", zap.String("status", st.String()))
		}
	}
	run()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			run()
		}
	}
}
