package main

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/PaulBabatuyi/wasteConnect/internal/auth"
)

// claimsKey is the Locals key holding *auth.Claims for authenticated requests.
// The websocket Conn only exposes string-keyed locals, so this stays a string.
const claimsKey = "claims"

// getClaims extracts auth claims stored by authRequired or wsAuth, if present.
func getClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*auth.Claims)
	return claims, ok
}

// bearerToken returns the token of a "Bearer <token>" header value, or ""
// when the scheme is missing.
func bearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// authRequired enforces JWT authentication and attaches the claims for handlers.
func (s *Server) authRequired(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return unauthorized(c)
	}

	claims, err := s.auth.VerifyToken(token)
	if err != nil {
		return unauthorized(c)
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Message: "Unauthorized"})
}
