package main

import (
	"net"
	"net/http"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	websocket "github.com/gofiber/contrib/websocket"

	"github.com/PaulBabatuyi/wasteConnect/internal/data"
	"github.com/PaulBabatuyi/wasteConnect/internal/messaging"
)

// serve starts env.app on a loopback port and returns its address.
func (e *testEnv) serve(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = e.app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = e.app.ShutdownWithTimeout(time.Second)
	})
	return ln.Addr().String()
}

func dialWS(t *testing.T, addr, token string) *fws.Conn {
	t.Helper()

	conn, resp, err := fws.DefaultDialer.Dial("ws://"+addr+"/api/v1/ws?token="+token, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// waitForConnections polls until userID has want live connections.
func waitForConnections(t *testing.T, hub *ConnectionHub, userID string, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(userID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("connections(%s) = %d, want %d", userID, hub.Connections(userID), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type wsMessageEvent struct {
	Event string       `json:"event"`
	Data  data.Message `json:"data"`
}

type wsErrorEvent struct {
	Event string       `json:"event"`
	Data  errorPayload `json:"data"`
}

func readEvent(t *testing.T, conn *fws.Conn, v any) {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(v); err != nil {
		t.Fatalf("read event: %v", err)
	}
}

func TestWebSocket_SendMessageAndPush(t *testing.T) {
	env := newTestEnv(t, appOptions{})
	addr := env.serve(t)

	alice := dialWS(t, addr, env.token(t, "u1"))
	bob := dialWS(t, addr, env.token(t, "u2"))
	waitForConnections(t, env.hub, "u1", 1)
	waitForConnections(t, env.hub, "u2", 1)

	// Sender id comes from the token, not the payload
	err := alice.WriteJSON(map[string]any{
		"event": "sendMessage",
		"data":  map[string]string{"receiver_id": "u2", "content": "bins are out"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	var ack wsMessageEvent
	readEvent(t, alice, &ack)
	if ack.Event != eventMessageSent {
		t.Fatalf("event = %q, want %q", ack.Event, eventMessageSent)
	}
	if ack.Data.SenderID != "u1" || ack.Data.ReceiverID != "u2" || ack.Data.Content != "bins are out" {
		t.Fatalf("unexpected ack: %+v", ack.Data)
	}

	env.hub.NotifyMessage("u2", &ack.Data)

	var pushed wsMessageEvent
	readEvent(t, bob, &pushed)
	if pushed.Event != eventReceiveMessage || pushed.Data.Content != "bins are out" {
		t.Fatalf("unexpected push: %+v", pushed)
	}
}

func TestWebSocket_ErrorEvents(t *testing.T) {
	env := newTestEnv(t, appOptions{})
	addr := env.serve(t)
	conn := dialWS(t, addr, env.token(t, "u1"))

	tests := []struct {
		payload string
		want    string
	}{
		{`not json`, "invalid message payload"},
		{`{"event":"typing","data":{}}`, "unsupported event"},
	}

	for _, tt := range tests {
		if err := conn.WriteMessage(fws.TextMessage, []byte(tt.payload)); err != nil {
			t.Fatalf("write %q: %v", tt.payload, err)
		}

		var ev wsErrorEvent
		readEvent(t, conn, &ev)
		if ev.Event != eventError || ev.Data.Message != tt.want {
			t.Fatalf("%q: got %+v, want error %q", tt.payload, ev, tt.want)
		}
	}
}

func TestWebSocket_ValidationErrorEvent(t *testing.T) {
	env := newTestEnv(t, appOptions{})
	env.msgs.err = &messaging.ValidationError{Fields: []string{"receiver_id"}}
	addr := env.serve(t)
	conn := dialWS(t, addr, env.token(t, "u1"))

	if err := conn.WriteJSON(map[string]any{"event": "sendMessage", "data": map[string]string{"content": "hi"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var ev wsErrorEvent
	readEvent(t, conn, &ev)
	if ev.Event != eventError || ev.Data.Message != "receiver_id is required" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestWebSocket_UnregistersOnDisconnect(t *testing.T) {
	env := newTestEnv(t, appOptions{})
	addr := env.serve(t)

	conn := dialWS(t, addr, env.token(t, "u1"))
	waitForConnections(t, env.hub, "u1", 1)

	_ = conn.Close()
	waitForConnections(t, env.hub, "u1", 0)
}

func TestWebSocket_RejectsBadToken(t *testing.T) {
	env := newTestEnv(t, appOptions{})
	addr := env.serve(t)

	_, resp, err := fws.DefaultDialer.Dial("ws://"+addr+"/api/v1/ws?token=garbage", nil)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}

func TestWebSocket_DroppedConnectionIsClosed(t *testing.T) {
	env := newTestEnv(t, appOptions{})
	addr := env.serve(t)

	conn := dialWS(t, addr, env.token(t, "u1"))
	waitForConnections(t, env.hub, "u1", 1)

	env.hub.mu.RLock()
	var wc *wsConn
	for _, s := range env.hub.conns["u1"] {
		wc, _ = s.(*wsConn)
	}
	env.hub.mu.RUnlock()
	if wc == nil {
		t.Fatal("registered connection is not a *wsConn")
	}

	// Same shutdown the send path takes when the queue overflows.
	wc.shutdown(websocket.ClosePolicyViolation)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !fws.IsCloseError(err, fws.ClosePolicyViolation) {
		t.Fatalf("expected policy-violation close, got %v", err)
	}
	waitForConnections(t, env.hub, "u1", 0)
}
