package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthServiceName is the service name reported alongside the overall ("") status.
const healthServiceName = "wasteconnect.v1.API"

type healthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

// healthCheck reports liveness of the HTTP process.
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(healthResponse{Status: "ok", Uptime: time.Since(s.started).Seconds()})
}

type pinger interface {
	Ping(ctx context.Context) error
}

// newHealthServer registers the standard gRPC health service on a new server.
func newHealthServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	return gs, hs
}

// checkDatabase pings the database and publishes the result on hs.
func checkDatabase(ctx context.Context, db pinger, hs *health.Server, timeout time.Duration) healthpb.HealthCheckResponse_ServingStatus {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := db.Ping(pctx); err != nil {
		log.Printf("health: database ping failed: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(healthServiceName, status)
	return status
}

// watchDatabase re-checks the database every interval until ctx is done.
func watchDatabase(ctx context.Context, db pinger, hs *health.Server, interval, timeout time.Duration) {
	checkDatabase(ctx, db, hs, timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkDatabase(ctx, db, hs, timeout)
		}
	}
}
