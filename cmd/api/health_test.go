package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestCheckDatabase(t *testing.T) {
	hs := health.NewServer()
	db := &fakePinger{}
	ctx := context.Background()

	if got := checkDatabase(ctx, db, hs, time.Second); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", got)
	}

	db.err = errors.New("no reachable servers")
	checkDatabase(ctx, db, hs, time.Second)

	for _, svc := range []string{"", healthServiceName} {
		resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			t.Fatalf("Check(%q): %v", svc, err)
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
			t.Fatalf("Check(%q) = %v, want NOT_SERVING", svc, resp.GetStatus())
		}
	}
}

func TestWatchDatabase_StopsWithContext(t *testing.T) {
	hs := health.NewServer()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		watchDatabase(ctx, &fakePinger{}, hs, 10*time.Millisecond, time.Second)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchDatabase did not return after cancel")
	}
}

func TestHealthCheckEndpoint(t *testing.T) {
	env := newTestEnv(t, appOptions{})

	code, body := env.do(t, http.MethodGet, "/api/v1/health", nil, "")
	if code != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["uptime"].(float64); !ok {
		t.Fatalf("uptime missing: %v", body)
	}
}
