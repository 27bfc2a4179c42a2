package main

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/PaulBabatuyi/wasteConnect/internal/auth"
	"github.com/PaulBabatuyi/wasteConnect/internal/messaging"
)

const (
	wsSendBuffer   = 32
	wsCloseTimeout = time.Second
)

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("connection send buffer full")
)

// wsConn queues outbound events for one websocket. Send never blocks: a
// full queue means the client is not keeping up, so the connection is
// closed and the client has to reconnect and reload history.
type wsConn struct {
	mu        sync.Mutex
	send      chan []byte
	closed    bool
	closeCode int
}

func newWSConn() *wsConn {
	return &wsConn{send: make(chan []byte, wsSendBuffer)}
}

func (w *wsConn) Send(ev *ServerEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errConnClosed
	}
	select {
	case w.send <- payload:
		return nil
	default:
		// Queue full: shut the connection instead of silently dropping events
		w.closeLocked(websocket.ClosePolicyViolation)
		return errSlowConsumer
	}
}

// close ends the queue after a normal disconnect.
func (w *wsConn) close() {
	w.shutdown(websocket.CloseNormalClosure)
}

// shutdown ends the queue; the write pump then sends a close frame with code.
func (w *wsConn) shutdown(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked(code)
}

func (w *wsConn) closeLocked(code int) {
	if !w.closed {
		w.closed = true
		w.closeCode = code
		close(w.send)
	}
}

// writePump drains the queue onto the socket. When the queue is closed it
// sends a close frame and closes the socket, which also ends the read loop.
func (w *wsConn) writePump(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	for payload := range w.send {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}

	w.mu.Lock()
	code := w.closeCode
	w.mu.Unlock()

	// Best effort: the peer may already be gone
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(wsCloseTimeout))
}

// clientEvent is what clients may send over the socket.
type clientEvent struct {
	Event string `json:"event"`
	Data  struct {
		ReceiverID string `json:"receiver_id"`
		Content    string `json:"content"`
	} `json:"data"`
}

// wsAuth authenticates the upgrade request. Browsers cannot set headers on
// websocket requests, so the token may also come from ?token=.
func (s *Server) wsAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(errorResponse{Message: "WebSocket upgrade required"})
	}

	token := c.Query("token")
	if token == "" {
		token = bearerToken(c.Get(fiber.HeaderAuthorization))
	}
	claims, err := s.auth.VerifyToken(token)
	if err != nil {
		return unauthorized(c)
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

// handleWebSocket registers the connection under the authenticated user,
// then reads sendMessage events until the client goes away.
func (s *Server) handleWebSocket(conn *websocket.Conn) {
	claims, ok := conn.Locals(claimsKey).(*auth.Claims)
	if !ok {
		_ = conn.Close()
		return
	}

	wc := newWSConn()
	connID := s.hub.Register(claims.ID, wc)

	// The conn is released when this handler returns, so wait for the pump.
	pumpDone := make(chan struct{})
	go func() {
		wc.writePump(conn)
		close(pumpDone)
	}()
	defer func() {
		s.hub.Unregister(claims.ID, connID)
		wc.close()
		<-pumpDone
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var in clientEvent
		if err := json.Unmarshal(payload, &in); err != nil {
			_ = wc.Send(errorEvent("invalid message payload"))
			continue
		}
		if in.Event != "sendMessage" {
			_ = wc.Send(errorEvent("unsupported event"))
			continue
		}

		msg, err := s.msgs.Send(s.baseCtx, claims.ID, in.Data.ReceiverID, in.Data.Content)
		if err != nil {
			var ve *messaging.ValidationError
			if errors.As(err, &ve) {
				_ = wc.Send(errorEvent(ve.Error()))
			} else {
				_ = wc.Send(errorEvent("failed to send message"))
			}
			continue
		}
		_ = wc.Send(messageSentEvent(msg))
	}
}
