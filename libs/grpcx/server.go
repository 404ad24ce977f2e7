package grpcx

import (
	"context"
	"log/slog"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthProbe reports whether the named service is able to serve.
type HealthProbe func(ctx context.Context) error

// NewServer returns a gRPC server with tracing, request id and logging interceptors and the
// standard health service registered.
func NewServer(logger *slog.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerLoggingInterceptor(logger),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// Serve runs srv on addr until ctx is done. probe is evaluated once at startup to set the
// initial serving status of service; it flips to NOT_SERVING on shutdown.
func Serve(ctx context.Context, logger *slog.Logger, addr string, srv *grpc.Server, hs *health.Server, service string, probe HealthProbe) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	status := healthpb.HealthCheckResponse_SERVING
	if probe != nil {
		if err := probe(ctx); err != nil {
			logger.Warn("grpc health probe failed at startup", "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	hs.SetServingStatus(service, status)
	hs.SetServingStatus("", status)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()
	return nil
}
