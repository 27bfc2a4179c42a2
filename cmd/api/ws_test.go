package main

import (
	"encoding/json"
	"errors"
	"testing"

	websocket "github.com/gofiber/contrib/websocket"

	"github.com/PaulBabatuyi/wasteConnect/internal/data"
)

func TestWSConn_OverflowClosesConnection(t *testing.T) {
	wc := newWSConn()

	for i := 0; i < wsSendBuffer; i++ {
		if err := wc.Send(errorEvent("fill")); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	// Nothing drains the queue, so the next send must fail instead of blocking.
	if err := wc.Send(errorEvent("overflow")); !errors.Is(err, errSlowConsumer) {
		t.Fatalf("expected errSlowConsumer, got %v", err)
	}

	// The queue is closed so the write pump ends and the client is disconnected.
	if err := wc.Send(errorEvent("after")); !errors.Is(err, errConnClosed) {
		t.Fatalf("expected errConnClosed after overflow, got %v", err)
	}
	if wc.closeCode != websocket.ClosePolicyViolation {
		t.Fatalf("close code = %d, want %d", wc.closeCode, websocket.ClosePolicyViolation)
	}
	queued := 0
	for range wc.send {
		queued++
	}
	if queued != wsSendBuffer {
		t.Fatalf("queued = %d, want %d", queued, wsSendBuffer)
	}
}

func TestWSConn_SendAfterClose(t *testing.T) {
	wc := newWSConn()
	wc.close()
	wc.shutdown(websocket.ClosePolicyViolation) // second close is a no-op

	if err := wc.Send(errorEvent("late")); !errors.Is(err, errConnClosed) {
		t.Fatalf("expected errConnClosed, got %v", err)
	}
	if wc.closeCode != websocket.CloseNormalClosure {
		t.Fatalf("close code = %d, want normal closure", wc.closeCode)
	}
}

func TestWSConn_QueuesEncodedEvent(t *testing.T) {
	wc := newWSConn()
	msg := &data.Message{SenderID: "a", ReceiverID: "b", Content: "hi"}

	if err := wc.Send(receiveMessageEvent(msg)); err != nil {
		t.Fatalf("send: %v", err)
	}

	var got struct {
		Event string       `json:"event"`
		Data  data.Message `json:"data"`
	}
	if err := json.Unmarshal(<-wc.send, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Event != "receiveMessage" || got.Data.Content != "hi" || got.Data.SenderID != "a" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestHub_DropsAndClosesSaturatedConnection(t *testing.T) {
	hub := NewConnectionHub()
	slow := newWSConn()
	hub.Register("bob", slow)

	for i := 0; i < wsSendBuffer; i++ {
		hub.NotifyMessage("bob", &data.Message{Content: "queued"})
	}
	if n := hub.Connections("bob"); n != 1 {
		t.Fatalf("connection dropped too early, connections = %d", n)
	}

	hub.NotifyMessage("bob", &data.Message{Content: "one too many"})
	if n := hub.Connections("bob"); n != 0 {
		t.Fatalf("saturated connection should be unregistered, connections = %d", n)
	}

	// Draining must terminate: the dropped connection is closed, not left
	// open and silently cut off from further pushes.
	for range slow.send {
	}
	if err := slow.Send(receiveMessageEvent(&data.Message{Content: "after"})); !errors.Is(err, errConnClosed) {
		t.Fatalf("expected dropped connection to be closed, got %v", err)
	}
}
