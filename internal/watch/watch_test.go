package watch

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHub_PublishReachesSubscriber(t *testing.T) {
	h := NewHub(0)
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered with hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.Publish(EventUpdateApplied, UpdateAppliedPayload{Session: "s1", Version: 2})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.Contains(string(data), `"update_applied"`) {
		t.Errorf("message = %s, want update_applied event", data)
	}
	if !strings.Contains(string(data), `"seq":1`) {
		t.Errorf("message = %s, want seq 1", data)
	}
}

func TestHub_RejectsBeyondMaxConns(t *testing.T) {
	h := NewHub(1)
	server := httptest.NewServer(h)
	defer server.Close()

	first := dial(t, server)
	defer first.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	second := dial(t, server)
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Error("expected second connection to be closed by the hub")
	}
}

func TestHub_RemoveClientDropsCount(t *testing.T) {
	h := NewHub(0)
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("hub never noticed the disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
