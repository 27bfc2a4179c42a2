package main

import (
	"context"
	"errors"
	"io"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/PaulBabatuyi/wasteConnect/internal/auth"
	"github.com/PaulBabatuyi/wasteConnect/internal/dashboard"
	"github.com/PaulBabatuyi/wasteConnect/internal/data"
	"github.com/PaulBabatuyi/wasteConnect/internal/middleware"
)

// userStore is the subset of *data.UsersStore the handlers use.
type userStore interface {
	CreateUser(ctx context.Context, name, email, hashedPassword, role string) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	ListUsersExcept(ctx context.Context, excludeID string) ([]*data.UserSummary, error)
}

// messenger is implemented by *messaging.Service.
type messenger interface {
	Send(ctx context.Context, senderID, receiverID, content string) (*data.Message, error)
	Conversation(ctx context.Context, user1, user2 string, limit int) ([]*data.Message, error)
	Conversations(ctx context.Context, userID string) ([]data.Conversation, error)
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
	Delete(ctx context.Context, messageID string) error
}

// snapshotter is implemented by *dashboard.Aggregator.
type snapshotter interface {
	Snapshot(ctx context.Context) (*dashboard.Snapshot, error)
}

// Server holds the dependencies shared by every HTTP and websocket handler.
type Server struct {
	users userStore
	msgs  messenger
	dash  snapshotter
	auth  *auth.JWTManager
	hub   *ConnectionHub

	// baseCtx is used for work started from websocket reads, which have no request context.
	baseCtx context.Context
	started time.Time
}

// newServer returns a ready-to-use Server wired with stores, services and auth manager.
func newServer(ctx context.Context, users userStore, msgs messenger, dash snapshotter, authMgr *auth.JWTManager, hub *ConnectionHub) *Server {
	return &Server{
		users:   users,
		msgs:    msgs,
		dash:    dash,
		auth:    authMgr,
		hub:     hub,
		baseCtx: ctx,
		started: time.Now(),
	}
}

// appOptions configures the Fiber app. Nil limiters disable rate limiting.
type appOptions struct {
	LogOutput   io.Writer
	CORSOrigins string
	APILimiter  *middleware.LimiterStore
	AuthLimiter *middleware.LimiterStore
}

// newApp builds the Fiber app with middleware and all routes mounted.
func (s *Server) newApp(opts appOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "wasteConnect",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	if opts.LogOutput != nil {
		app.Use(logger.New(logger.Config{Output: opts.LogOutput}))
	}
	origins := opts.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	s.routes(app, opts)
	return app
}

func (s *Server) routes(app *fiber.App, opts appOptions) {
	api := app.Group("/api")
	if opts.APILimiter != nil {
		api.Use(middleware.RateLimitByIP(opts.APILimiter))
	}
	v1 := api.Group("/v1")

	v1.Get("/health", s.healthCheck)

	authRoutes := v1.Group("/auth")
	if opts.AuthLimiter != nil {
		authRoutes.Use(middleware.RateLimitCredentials(opts.AuthLimiter))
	}
	authRoutes.Post("/signup", s.signup)
	authRoutes.Post("/login", s.login)

	msgs := v1.Group("/messages")
	msgs.Get("/users", s.authRequired, s.availableUsers)
	msgs.Post("/send", s.sendMessage)
	msgs.Get("/conversation/:user1_id/:user2_id", s.getConversation)
	msgs.Get("/conversations/:user_id", s.getConversations)
	msgs.Put("/mark-read", s.markRead)
	msgs.Delete("/:message_id", s.deleteMessage)

	v1.Get("/dashboard", s.authRequired, s.getDashboard)

	v1.Use("/ws", s.wsAuth)
	v1.Get("/ws", websocket.New(s.handleWebSocket))
}

// errorHandler renders errors that escape handlers (unknown routes, panics
// caught by recover) in the same envelope as everything else.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(errorResponse{Message: message})
}
