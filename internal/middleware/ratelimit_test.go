package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestLimiterStore_AllowAndCleanup(t *testing.T) {
	// allow 5 events immediately then the 6th should be rejected
	s := NewLimiterStore(5, 5, time.Hour)
	defer s.Stop()

	key := "test@example.com"
	for i := 0; i < 5; i++ {
		if !s.Allow(key) {
			t.Fatalf("expected allow at iteration %d", i)
		}
	}

	if s.Allow(key) {
		t.Fatalf("expected limiter to block after burst consumed")
	}

	s.evictIdle(time.Now().Add(time.Second))
	s.mu.Lock()
	_, ok := s.clients[key]
	s.mu.Unlock()
	if ok {
		t.Fatalf("expected idle entry to be evicted")
	}

	// a fresh limiter after eviction has its burst back
	if !s.Allow(key) {
		t.Fatalf("expected allow after eviction")
	}
}

func TestLimiterStore_StopTwice(t *testing.T) {
	s := NewLimiterStore(1, 1, time.Hour)
	s.Stop()
	s.Stop()
}

func TestRateLimitCredentials_KeysByEmail(t *testing.T) {
	s := NewLimiterStore(1, 1, time.Hour)
	defer s.Stop()

	app := fiber.New()
	app.Post("/login", RateLimitCredentials(s), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	do := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if got := do(`{"email":"a@example.com"}`); got != http.StatusOK {
		t.Fatalf("first attempt: expected 200, got %d", got)
	}
	if got := do(`{"email":" A@Example.com "}`); got != http.StatusTooManyRequests {
		t.Fatalf("same email: expected 429, got %d", got)
	}
	if got := do(`{"email":"b@example.com"}`); got != http.StatusOK {
		t.Fatalf("different email: expected 200, got %d", got)
	}
}

func TestRateLimitByIP(t *testing.T) {
	s := NewLimiterStore(1, 2, time.Hour)
	defer s.Stop()

	app := fiber.New()
	app.Use(RateLimitByIP(s))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence: %v", codes)
	}
}
