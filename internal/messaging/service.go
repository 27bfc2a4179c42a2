// Package messaging implements point-to-point messages: sending, history,
// the per-user conversation list and read state.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PaulBabatuyi/wasteConnect/internal/data"
	"github.com/PaulBabatuyi/wasteConnect/internal/normalize"
)

// Conversation history limits.
const (
	DefaultConversationLimit = 50
	MaxConversationLimit     = 500
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError names the required fields that were missing or blank.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	switch len(e.Fields) {
	case 0:
		return "invalid request"
	case 1:
		return e.Fields[0] + " is required"
	default:
		return strings.Join(e.Fields[:len(e.Fields)-1], ", ") + " and " + e.Fields[len(e.Fields)-1] + " are required"
	}
}

// Is lets callers test with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Store is the persistence the service needs; *data.MessagesStore implements it.
type Store interface {
	SaveMessage(ctx context.Context, senderID, receiverID, content string, sentAt time.Time) (*data.Message, error)
	GetConversation(ctx context.Context, user1, user2 string, limit int64) ([]*data.Message, error)
	ListUserMessages(ctx context.Context, userID string) ([]*data.Message, error)
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
	DeleteMessage(ctx context.Context, id string) error
}

// Notifier pushes a freshly stored message to its receiver if they are
// online. Implementations must not block and must treat an offline
// receiver as a normal outcome.
type Notifier interface {
	NotifyMessage(receiverID string, msg *data.Message)
}

// Service coordinates the message store and live delivery.
type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

// NewService returns a Service. notifier may be nil, in which case messages
// are only persisted.
func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, now: time.Now}
}

// Send validates and stores a message, then hands it to the notifier. The
// stored message is returned even if nobody is online to receive it.
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (*data.Message, error) {
	senderID = normalize.ID(senderID)
	receiverID = normalize.ID(receiverID)
	content = normalize.Text(content)

	if err := required(
		field{"sender_id", senderID},
		field{"receiver_id", receiverID},
		field{"content", content},
	); err != nil {
		return nil, err
	}

	msg, err := s.store.SaveMessage(ctx, senderID, receiverID, content, s.now())
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyMessage(receiverID, msg)
	}
	return msg, nil
}

// Conversation returns the latest limit messages between two users, oldest
// first. A non-positive limit means DefaultConversationLimit.
func (s *Service) Conversation(ctx context.Context, user1, user2 string, limit int) ([]*data.Message, error) {
	user1 = normalize.ID(user1)
	user2 = normalize.ID(user2)
	if err := required(field{"user1_id", user1}, field{"user2_id", user2}); err != nil {
		return nil, err
	}

	msgs, err := s.store.GetConversation(ctx, user1, user2, int64(clampLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return msgs, nil
}

// Conversations lists one entry per counterpart the user has exchanged
// messages with, each carrying the most recent message.
func (s *Service) Conversations(ctx context.Context, userID string) ([]data.Conversation, error) {
	userID = normalize.ID(userID)
	if err := required(field{"user_id", userID}); err != nil {
		return nil, err
	}

	msgs, err := s.store.ListUserMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user messages: %w", err)
	}
	return deriveConversations(userID, msgs), nil
}

// MarkRead marks everything senderID sent to receiverID as read and
// reports how many messages changed. Repeating the call changes nothing.
func (s *Service) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	senderID = normalize.ID(senderID)
	receiverID = normalize.ID(receiverID)
	if err := required(field{"sender_id", senderID}, field{"receiver_id", receiverID}); err != nil {
		return 0, err
	}

	n, err := s.store.MarkRead(ctx, senderID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return n, nil
}

// Delete removes a message. The error matches data.ErrNotFound when no
// message has that id.
func (s *Service) Delete(ctx context.Context, messageID string) error {
	messageID = normalize.ID(messageID)
	if messageID == "" {
		return data.ErrNotFound
	}
	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// deriveConversations walks messages newest first and keeps the first one
// seen per counterpart. Output order is first-encounter order, i.e. by the
// recency of each counterpart's latest message. Self-addressed messages
// have no counterpart and are skipped.
func deriveConversations(userID string, newestFirst []*data.Message) []data.Conversation {
	seen := make(map[string]struct{})
	conversations := []data.Conversation{}

	for _, msg := range newestFirst {
		other := msg.SenderID
		if other == userID {
			other = msg.ReceiverID
		}
		if other == userID {
			continue
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		conversations = append(conversations, data.Conversation{CounterpartID: other, LastMessage: msg})
	}
	return conversations
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultConversationLimit
	}
	if limit > MaxConversationLimit {
		return MaxConversationLimit
	}
	return limit
}

type field struct {
	name  string
	value string
}

func required(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
