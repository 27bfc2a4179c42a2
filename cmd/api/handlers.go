package main

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/PaulBabatuyi/wasteConnect/internal/data"
	"github.com/PaulBabatuyi/wasteConnect/internal/messaging"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type messageResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    *data.Message `json:"data"`
}

type messagesResponse struct {
	Success bool            `json:"success"`
	Data    []*data.Message `json:"data"`
}

type conversationsResponse struct {
	Success bool                `json:"success"`
	Data    []data.Conversation `json:"data"`
}

type markReadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

type usersResponse struct {
	Success bool                `json:"success"`
	Data    []*data.UserSummary `json:"data"`
}

type sendMessageRequest struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

type markReadRequest struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

// fail maps a service error to a status code and JSON body. Anything that
// is not a known sentinel is logged and reported with the generic message.
func fail(c *fiber.Ctx, err error, notFound, internal string) error {
	var ve *messaging.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Message: ve.Error()})
	case errors.Is(err, data.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Message: notFound})
	case errors.Is(err, data.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(errorResponse{Message: "Resource already exists"})
	default:
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Message: internal})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Message: message})
}

// sendMessage stores a message and pushes it to the receiver if they are online.
func (s *Server) sendMessage(c *fiber.Ctx) error {
	// Parse request body
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	// Persist first; live delivery happens inside the service
	msg, err := s.msgs.Send(c.UserContext(), req.SenderID, req.ReceiverID, req.Content)
	if err != nil {
		return fail(c, err, "Message not found", "Failed to send message")
	}

	return c.Status(fiber.StatusCreated).JSON(messageResponse{
		Success: true,
		Message: "Message sent successfully",
		Data:    msg,
	})
}

// getConversation returns the messages between two users, oldest first.
// A missing or non-numeric limit falls back to the default.
func (s *Server) getConversation(c *fiber.Ctx) error {
	// Invalid limits become 0 and the service applies the default
	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, err := s.msgs.Conversation(c.UserContext(), c.Params("user1_id"), c.Params("user2_id"), limit)
	if err != nil {
		return fail(c, err, "Conversation not found", "Failed to load conversation")
	}
	// Always encode an array, never null
	if msgs == nil {
		msgs = []*data.Message{}
	}

	return c.JSON(messagesResponse{Success: true, Data: msgs})
}

// getConversations lists the latest message per counterpart of a user.
func (s *Server) getConversations(c *fiber.Ctx) error {
	convs, err := s.msgs.Conversations(c.UserContext(), c.Params("user_id"))
	if err != nil {
		return fail(c, err, "User not found", "Failed to load conversations")
	}
	if convs == nil {
		convs = []data.Conversation{}
	}

	return c.JSON(conversationsResponse{Success: true, Data: convs})
}

func (s *Server) markRead(c *fiber.Ctx) error {
	// Parse request body
	var req markReadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	// Mark sender -> receiver messages as read
	n, err := s.msgs.MarkRead(c.UserContext(), req.SenderID, req.ReceiverID)
	if err != nil {
		return fail(c, err, "Messages not found", "Failed to mark messages as read")
	}

	return c.JSON(markReadResponse{
		Success: true,
		Message: "Messages marked as read",
		Updated: n,
	})
}

func (s *Server) deleteMessage(c *fiber.Ctx) error {
	if err := s.msgs.Delete(c.UserContext(), c.Params("message_id")); err != nil {
		return fail(c, err, "Message not found", "Failed to delete message")
	}

	return c.JSON(statusResponse{Success: true, Message: "Message deleted successfully"})
}

// availableUsers lists everyone the caller can message.
func (s *Server) availableUsers(c *fiber.Ctx) error {
	// Get claims from locals (set by authRequired)
	claims, ok := getClaims(c)
	if !ok {
		return unauthorized(c)
	}

	// Everyone except the caller
	users, err := s.users.ListUsersExcept(c.UserContext(), claims.ID)
	if err != nil {
		return fail(c, err, "User not found", "Failed to load users")
	}
	if users == nil {
		users = []*data.UserSummary{}
	}

	return c.JSON(usersResponse{Success: true, Data: users})
}
