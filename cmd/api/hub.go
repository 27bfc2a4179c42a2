package main

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/PaulBabatuyi/wasteConnect/internal/data"
)

// Live event names.
const (
	eventReceiveMessage = "receiveMessage"
	eventMessageSent    = "messageSent"
	eventError          = "error"
)

// ErrOffline is returned by SendToUser when the user has no live connection.
var ErrOffline = errors.New("user not connected")

// ServerEvent is the envelope written to live connections.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func receiveMessageEvent(msg *data.Message) *ServerEvent {
	return &ServerEvent{Event: eventReceiveMessage, Data: msg}
}

func messageSentEvent(msg *data.Message) *ServerEvent {
	return &ServerEvent{Event: eventMessageSent, Data: msg}
}

func errorEvent(message string) *ServerEvent {
	return &ServerEvent{Event: eventError, Data: errorPayload{Message: message}}
}

// EventSender is what the hub needs from a connection. Send must not block.
type EventSender interface {
	Send(*ServerEvent) error
}

// ConnectionHub manages live connections for online users. Each user may
// hold several connections, each identified by its own id.
type ConnectionHub struct {
	mu    sync.RWMutex
	conns map[string]map[string]EventSender
}

// NewConnectionHub creates a new hub instance.
func NewConnectionHub() *ConnectionHub {
	return &ConnectionHub{conns: make(map[string]map[string]EventSender)}
}

// Register adds a connection for userID and returns its connection id,
// which must be passed to Unregister when the connection closes.
func (h *ConnectionHub) Register(userID string, s EventSender) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[userID]; !ok {
		h.conns[userID] = make(map[string]EventSender)
	}

	id := uuid.NewString()
	h.conns[userID][id] = s
	return id
}

// Unregister removes a previously registered connection. Unknown ids are ignored.
func (h *ConnectionHub) Unregister(userID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
}

// Connections reports how many live connections userID has.
func (h *ConnectionHub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// SendToUser delivers ev to every connection of userID. It returns
// ErrOffline when there are none, otherwise the first send error. Failed
// connections are unregistered so they are not retried.
func (h *ConnectionHub) SendToUser(userID string, ev *ServerEvent) error {
	h.mu.RLock()
	conns := make(map[string]EventSender, len(h.conns[userID]))
	for id, s := range h.conns[userID] {
		conns[id] = s
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return ErrOffline
	}

	var firstErr error
	var failedIDs []string
	for id, s := range conns {
		if err := s.Send(ev); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failedIDs = append(failedIDs, id)
		}
	}

	for _, id := range failedIDs {
		h.Unregister(userID, id)
	}
	return firstErr
}

// NotifyMessage pushes a stored message to its receiver. An offline
// receiver is normal; they will load the message from history.
func (h *ConnectionHub) NotifyMessage(receiverID string, msg *data.Message) {
	err := h.SendToUser(receiverID, receiveMessageEvent(msg))
	switch {
	case err == nil, errors.Is(err, ErrOffline):
	default:
		log.Printf("delivery to %s failed: %v", receiverID, err)
	}
}
