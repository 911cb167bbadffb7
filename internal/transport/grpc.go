package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCServer implements the Server interface for gRPC transport
type GRPCServer struct {
	server  *grpc.Server
	address string
	logger  *zap.Logger
}

// NewGRPCServer creates a new gRPC server
func NewGRPCServer(cfg ServerConfig) *GRPCServer {
	gsrv := grpc.NewServer()

	healthpb.RegisterHealthServer(gsrv, &HealthServiceImpl{health: cfg.Health})
	RegisterRateLimitServer(gsrv, &RateLimitServiceImpl{rateLimitService: cfg.RateLimit})

	return &GRPCServer{
		address: cfg.Address,
		logger:  cfg.Logger,
		server:  gsrv,
	}
}

// Start starts the gRPC server
func (gs *GRPCServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", gs.address)
	if err != nil {
		gs.logger.Error("Failed to listen on address", zap.String("address", gs.address), zap.Error(err))
		return err
	}

	gs.logger.Info("Starting gRPC server", zap.String("address", gs.address))

	go func() {
		if err := gs.Serve(listener); err != nil {
			gs.logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	return nil
}

// Serve accepts connections on listener until the server stops
func (gs *GRPCServer) Serve(listener net.Listener) error {
	return gs.server.Serve(listener)
}

// Stop gracefully stops the gRPC server
func (gs *GRPCServer) Stop(ctx context.Context) error {
	gs.logger.Info("Stopping gRPC server")
	stopped := make(chan struct{})
	go func() {
		gs.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		gs.server.Stop()
		return ctx.Err()
	}
}

// Addr returns the address the gRPC server is listening on
func (gs *GRPCServer) Addr() string {
	return gs.address
}

// HealthServiceImpl implements the standard gRPC health service
type HealthServiceImpl struct {
	healthpb.UnimplementedHealthServer
	health *service.HealthService
}

func (hs *HealthServiceImpl) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	return &healthpb.HealthCheckResponse{
		Status: hs.currentStatus(ctx),
	}, nil
}

func (hs *HealthServiceImpl) Watch(_ *healthpb.HealthCheckRequest, stream grpc.ServerStreamingServer[healthpb.HealthCheckResponse]) error {
	ctx := stream.Context()
	current := hs.currentStatus(ctx)
	if err := stream.Send(&healthpb.HealthCheckResponse{Status: current}); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			next := hs.currentStatus(ctx)
			if next == current {
				continue
			}

			current = next
			if err := stream.Send(&healthpb.HealthCheckResponse{Status: current}); err != nil {
				return err
			}
		}
	}
}

func (hs *HealthServiceImpl) currentStatus(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	if hs == nil || hs.health == nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}

	if err := hs.health.Ping(ctx); err != nil {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}

	return healthpb.HealthCheckResponse_SERVING
}

// RateLimitServiceImpl implements the RateLimit service
type RateLimitServiceImpl struct {
	rateLimitService *service.RateLimitService
}

// Check records an event and reports whether the caller exceeded its limit
func (rs *RateLimitServiceImpl) Check(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	namespace, id := stringField(req, "namespace"), stringField(req, "id")

	result, err := rs.rateLimitService.Check(ctx, namespace, id)
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		"exceeded":         result.Exceeded,
		"count":            result.Count,
		"threshold":        result.Threshold,
		"remaining":        result.Remaining,
		"interval_seconds": int64(result.Interval / time.Second),
		"retry_after":      int64(result.RetryAfter / time.Second),
	})
}

// Current returns the count for an identifier without recording an event
func (rs *RateLimitServiceImpl) Current(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	namespace, id := stringField(req, "namespace"), stringField(req, "id")

	count, err := rs.rateLimitService.Current(ctx, namespace, id)
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		"namespace": namespace,
		"id":        id,
		"count":     count,
	})
}

// Reset clears the recorded events of an identifier
func (rs *RateLimitServiceImpl) Reset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	namespace, id := stringField(req, "namespace"), stringField(req, "id")

	if err := rs.rateLimitService.Reset(ctx, namespace, id); err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		"message": "rate limit reset",
	})
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

// toStatus maps service errors onto gRPC status codes
func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownNamespace):
		return status.Error(codes.NotFound, err.Error())
	case service.IsClientError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
