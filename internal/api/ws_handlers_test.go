package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campusgate/gatewatch/internal/broadcast"
)

func newWSServer(t *testing.T, b *broadcast.EventBroadcaster, origins []string) *httptest.Server {
	t.Helper()
	handlers := NewWSHandlers(b, origins)
	srv := httptest.NewServer(http.HandlerFunc(handlers.Subscribe))
	t.Cleanup(srv.Close)
	return srv
}

func TestSubscribe_ReceivesBroadcast(t *testing.T) {
	b := broadcast.NewEventBroadcaster(nil, nil)
	srv := newWSServer(t, b, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.ConnectionCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("observer never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	b.Broadcast("access_log", map[string]any{"id": "log-1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var ev broadcast.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ev.Type != "access_log" {
		t.Errorf("expected access_log event, got %s", ev.Type)
	}
}

func TestSubscribe_AnswersPing(t *testing.T) {
	b := broadcast.NewEventBroadcaster(nil, nil)
	srv := newWSServer(t, b, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	ping, _ := json.Marshal(broadcast.Event{Type: broadcast.MessagePing})
	if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
		t.Fatalf("write ping failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var ev broadcast.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ev.Type != broadcast.MessagePong {
		t.Errorf("expected pong, got %s", ev.Type)
	}
}

func TestSubscribe_RejectsUnknownOrigin(t *testing.T) {
	b := broadcast.NewEventBroadcaster(nil, nil)
	srv := newWSServer(t, b, []string{"https://dashboard.example.edu"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected dial to fail for disallowed origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 handshake response, got %v", resp)
	}
}

func TestSubscribe_AllowsConfiguredOrigin(t *testing.T) {
	b := broadcast.NewEventBroadcaster(nil, nil)
	srv := newWSServer(t, b, []string{"https://dashboard.example.edu"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"https://dashboard.example.edu"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	conn.Close()
}
