package main

import (
	"errors"
	"log"
	"net/mail"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/PaulBabatuyi/wasteConnect/internal/auth"
	"github.com/PaulBabatuyi/wasteConnect/internal/data"
	"github.com/PaulBabatuyi/wasteConnect/internal/normalize"
)

const (
	minNameLength     = 3
	minPasswordLength = 6
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	User      *data.User `json:"user"`
}

// validateSignup normalizes req in place and returns a client-facing
// message for the first problem found.
func validateSignup(req *signupRequest) string {
	req.Name = normalize.Text(req.Name)
	req.Email = normalize.Email(req.Email)
	req.Role = normalize.Text(req.Role)
	if req.Role == "" {
		req.Role = data.RoleUser
	}

	switch {
	case req.Name == "" || req.Email == "" || req.Password == "":
		return "name, email and password are required"
	case len(req.Name) < minNameLength:
		return "name must be at least 3 characters"
	case len(req.Password) < minPasswordLength:
		return "password must be at least 6 characters"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "email is invalid"
	}
	switch req.Role {
	case data.RoleUser, data.RoleAdmin, data.RoleVolunteer:
	default:
		return "role must be one of user, admin or volunteer"
	}
	return ""
}

// signup hashes the password, stores the user and returns it.
func (s *Server) signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if msg := validateSignup(&req); msg != "" {
		return badRequest(c, msg)
	}

	// Hash password using auth utility
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("hash password: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Message: "Failed to create user"})
	}

	// Create user in DB; unique email index reports duplicates
	user, err := s.users.CreateUser(c.UserContext(), req.Name, req.Email, hashed, req.Role)
	if err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return c.Status(fiber.StatusConflict).JSON(errorResponse{Message: "Email is already registered"})
		}
		return fail(c, err, "User not found", "Failed to create user")
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse{
		Success: true,
		Message: "User created successfully",
		User:    user,
	})
}

// login checks credentials and returns a signed token. Unknown email and
// wrong password get the same answer.
func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	email := normalize.Email(req.Email)
	if email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	// Lookup user by email
	user, err := s.users.GetUserByEmail(c.UserContext(), email)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return invalidCredentials(c)
		}
		return fail(c, err, "User not found", "Failed to log in")
	}

	// Verify password
	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		return invalidCredentials(c)
	}

	// Generate JWT token
	token, expiresAt, err := s.auth.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		log.Printf("generate token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Message: "Failed to log in"})
	}

	return c.JSON(authResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: &expiresAt,
		User:      user,
	})
}

func invalidCredentials(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Message: "Invalid credentials"})
}
