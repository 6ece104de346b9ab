package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Sauravv193/event-collab-task-management/internal/ws"
)

func dialWS(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, f ws.Frame) {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readWSFrame(t *testing.T, conn *websocket.Conn) ws.Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f ws.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return f
}

func TestChatOverWebSocket(t *testing.T) {
	_, ts := newTestServer(t)

	alice := signup(t, ts.URL, "alice")
	id := eventID(t, createEvent(t, ts.URL, alice.Token, "chat room"))
	topic := fmt.Sprintf("/topic/chat/%d", id)

	conn := dialWS(t, ts.URL)
	writeFrame(t, conn, ws.Frame{
		Type:    ws.FrameConnect,
		Headers: map[string]string{"Authorization": "Bearer " + alice.Token},
	})
	writeFrame(t, conn, ws.Frame{Type: ws.FrameSubscribe, Destination: topic})
	// A heartbeat round-trip is not available; give the subscription a beat.
	time.Sleep(50 * time.Millisecond)

	writeFrame(t, conn, ws.Frame{
		Type:        ws.FrameSend,
		Destination: fmt.Sprintf("/app/chat/%d", id),
		Body:        json.RawMessage(`{"content":"hello room"}`),
	})

	f := readWSFrame(t, conn)
	if f.Type != ws.FrameMessage || f.Destination != topic {
		t.Fatalf("frame = %+v", f)
	}
	var msg map[string]any
	if err := json.Unmarshal(f.Body, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg["content"] != "hello room" || msg["sender"] != "alice" {
		t.Fatalf("message = %v", msg)
	}

	// The message is durable, not just broadcast.
	resp := doJSON(t, http.MethodGet, ts.URL+fmt.Sprintf("/api/v1/events/%d/messages", id), "", nil)
	history := decode[[]map[string]any](t, resp)
	if len(history) != 1 || history[0]["content"] != "hello room" {
		t.Fatalf("history = %v", history)
	}
}

func TestChatSendByNonMemberDropped(t *testing.T) {
	_, ts := newTestServer(t)

	alice := signup(t, ts.URL, "alice")
	mallory := signup(t, ts.URL, "mallory")
	id := eventID(t, createEvent(t, ts.URL, alice.Token, "private room"))

	conn := dialWS(t, ts.URL)
	writeFrame(t, conn, ws.Frame{
		Type:    ws.FrameConnect,
		Headers: map[string]string{"Authorization": "Bearer " + mallory.Token},
	})
	writeFrame(t, conn, ws.Frame{
		Type:        ws.FrameSend,
		Destination: fmt.Sprintf("/app/chat/%d", id),
		Body:        json.RawMessage(`{"content":"let me in"}`),
	})
	time.Sleep(100 * time.Millisecond)

	resp := doJSON(t, http.MethodGet, ts.URL+fmt.Sprintf("/api/v1/events/%d/messages", id), "", nil)
	history := decode[[]map[string]any](t, resp)
	if len(history) != 0 {
		t.Fatalf("non-member message must not persist: %v", history)
	}
}
