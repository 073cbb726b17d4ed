package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skillsenselab/callscribe/streaming"
)

func dialStream(t *testing.T) (*websocket.Conn, *Handlers, func()) {
	t.Helper()
	engine, h := newTestHandlers(t, nil)
	srv := httptest.NewServer(engine)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, h, func() {
		conn.Close()
		srv.Close()
	}
}

func readJSON(t *testing.T, conn *websocket.Conn, dst any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func TestStreamSessionLifecycle(t *testing.T) {
	conn, h, cleanup := dialStream(t)
	defer cleanup()

	var opened sessionOpened
	readJSON(t, conn, &opened)
	if opened.Type != "session" || opened.SessionID == "" {
		t.Fatalf("opening frame = %+v", opened)
	}
	if h.streams.Active() != 1 {
		t.Fatalf("active sessions = %d, want 1", h.streams.Active())
	}

	// One full window of audio yields one window event.
	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 16)); err != nil {
		t.Fatal(err)
	}
	var window streaming.Event
	readJSON(t, conn, &window)
	if window.Type != "window" || window.Window != 1 {
		t.Fatalf("window event = %+v", window)
	}
	if window.Text != "hello world" {
		t.Errorf("window text = %q", window.Text)
	}

	// end_stream yields the final event and a clean close.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"end_stream"}`)); err != nil {
		t.Fatal(err)
	}
	var final streaming.Event
	readJSON(t, conn, &final)
	if final.Type != "final" || final.Text != "hello world" {
		t.Fatalf("final event = %+v", final)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected a normal close, got %v", err)
	}

	waitForZeroSessions(t, h)
}

func TestStreamDisconnectDiscardsSession(t *testing.T) {
	conn, h, cleanup := dialStream(t)
	defer cleanup()

	var opened sessionOpened
	readJSON(t, conn, &opened)

	// Partial audio, then an abrupt disconnect. Nothing is flushed.
	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 10)); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	waitForZeroSessions(t, h)
	if _, ok := h.streams.Get(opened.SessionID); ok {
		t.Error("disconnected session should be discarded")
	}
}

func TestStreamRejectsUnknownControl(t *testing.T) {
	conn, _, cleanup := dialStream(t)
	defer cleanup()

	var opened sessionOpened
	readJSON(t, conn, &opened)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pause"}`)); err != nil {
		t.Fatal(err)
	}
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	readJSON(t, conn, &resp)
	if resp.Error.Code != "INVALID_INPUT" {
		t.Errorf("error code = %q", resp.Error.Code)
	}

	// The session stays usable afterwards.
	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 16)); err != nil {
		t.Fatal(err)
	}
	var window streaming.Event
	readJSON(t, conn, &window)
	if window.Type != "window" {
		t.Errorf("event after bad control = %+v", window)
	}
}

// waitForZeroSessions polls until the handler's session registry drains; the
// close runs on the handler goroutine after the socket drops.
func waitForZeroSessions(t *testing.T, h *Handlers) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.streams.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("active sessions = %d, want 0", h.streams.Active())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
