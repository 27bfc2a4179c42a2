// Package middleware holds Fiber middleware shared by the API routes.
package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/PaulBabatuyi/wasteConnect/internal/normalize"
)

// LimiterStore maintains per-key rate limiters and performs periodic cleanup.
type LimiterStore struct {
	mu              sync.Mutex
	limit           rate.Limit
	burst           int
	clients         map[string]*clientEntry
	cleanupInterval time.Duration
	idleTTL         time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore creates a new store for per-key rate limiters.
// limitPerMinute controls allowed events per minute; burst is the burst capacity.
func NewLimiterStore(limitPerMinute int, burst int, cleanupInterval time.Duration) *LimiterStore {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	s := &LimiterStore{
		limit:           rate.Every(time.Minute / time.Duration(limitPerMinute)),
		burst:           burst,
		clients:         map[string]*clientEntry{},
		cleanupInterval: cleanupInterval,
		idleTTL:         10 * time.Minute,
		stopCh:          make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *LimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictIdle(time.Now().Add(-s.idleTTL))
		case <-s.stopCh:
			return
		}
	}
}

// evictIdle drops limiters not used since cutoff.
func (s *LimiterStore) evictIdle(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.clients {
		if v.lastSeen.Before(cutoff) {
			delete(s.clients, k)
		}
	}
}

// Stop stops internal goroutines. Safe to call more than once.
func (s *LimiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// getLimiter returns or creates a limiter for key
func (s *LimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.clients[key]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}
	limiter := rate.NewLimiter(s.limit, s.burst)
	s.clients[key] = &clientEntry{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

// Allow checks whether an event for the given key is permitted.
func (s *LimiterStore) Allow(key string) bool {
	return s.getLimiter(key).Allow()
}

// RateLimitByIP rejects requests with 429 once the client IP exceeds its budget.
func RateLimitByIP(store *LimiterStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !store.Allow("ip:" + c.IP()) {
			return tooManyRequests(c)
		}
		return c.Next()
	}
}

// RateLimitCredentials limits signup/login attempts. It keys by the email
// in the JSON body when present so one account cannot be brute-forced from
// many addresses, falling back to the client IP.
func RateLimitCredentials(store *LimiterStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()

		var body struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&body); err == nil {
			if e := normalize.Email(body.Email); e != "" {
				key = fmt.Sprintf("email:%s", e)
			}
		}

		if !store.Allow(key) {
			return tooManyRequests(c)
		}
		return c.Next()
	}
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"success": false,
		"message": "Too many requests, try again later",
	})
}
